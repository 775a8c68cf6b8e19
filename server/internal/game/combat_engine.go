package game

import (
	"fmt"
	"math/rand"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
)

// Combat tuning.
const (
	PlayerAttackCooldownMS  = 800
	MonsterAttackCooldownMS = 1200
	MonsterRespawnMS        = 8000
	AggroRadius             = 5

	playerBaseHitChance  = 60
	monsterBaseHitChance = 55
	weaponBonus          = 2
	armorBonus           = 3

	attackXP    = 20
	strengthXP  = 12
	hitpointsXP = 6
	defenseXP   = 8
)

// CombatResult is the outcome of a single swing. CombatLog holds the lines
// shown to the player involved, in order.
type CombatResult struct {
	Hit                bool
	DamageDealt        int
	DefenderHealth     int
	IsDefenderDefeated bool
	AttackLeveled      bool
	HitpointsLeveled   bool
	CombatLog          []string
}

// CombatEngine rolls hits, damage and loot. It is not safe for concurrent use;
// the simulation goroutine owns it.
type CombatEngine struct {
	rng *rand.Rand
}

func NewCombatEngine(rng *rand.Rand) *CombatEngine {
	return &CombatEngine{rng: rng}
}

// PlayerAttack resolves p swinging at m. Range and cooldown are the caller's
// concern.
func (ce *CombatEngine) PlayerAttack(p *Player, m *Monster) *CombatResult {
	result := &CombatResult{}
	attack := p.Skills.Level(model.SkillAttack)
	strength := p.Skills.Level(model.SkillStrength)
	if p.Equipment.Equipped(model.SlotWeapon) {
		attack += weaponBonus
		strength += weaponBonus
	}
	hitChance := playerBaseHitChance + attack*2 - m.Defense*2
	if ce.rng.Intn(100) >= hitChance {
		result.DefenderHealth = m.HP
		result.CombatLog = append(result.CombatLog, fmt.Sprintf("You miss %s.", m.Name))
		return result
	}

	damage := 1 + ce.rng.Intn(max(1, strength/2+3))
	m.HP = max(0, m.HP-damage)
	result.Hit = true
	result.DamageDealt = damage
	result.DefenderHealth = m.HP
	result.CombatLog = append(result.CombatLog, fmt.Sprintf("You hit %s for %d.", m.Name, damage))

	result.AttackLeveled = p.Skills.AddXP(model.SkillAttack, attackXP)
	p.Skills.AddXP(model.SkillStrength, strengthXP)
	result.HitpointsLeveled = p.Skills.AddXP(model.SkillHitpoints, hitpointsXP)
	if result.AttackLeveled {
		result.CombatLog = append(result.CombatLog, "Your attack level increased!")
	}
	if result.HitpointsLeveled {
		p.refreshMaxHP()
		result.CombatLog = append(result.CombatLog, "Your hitpoints increased!")
	}
	result.IsDefenderDefeated = m.HP == 0
	return result
}

// MonsterAttack resolves m swinging at p.
func (ce *CombatEngine) MonsterAttack(m *Monster, p *Player) *CombatResult {
	result := &CombatResult{}
	defense := p.Skills.Level(model.SkillDefense)
	if p.Equipment.Equipped(model.SlotArmor) {
		defense += armorBonus
	}
	hitChance := monsterBaseHitChance + m.Attack*3 - defense*2
	if ce.rng.Intn(100) >= hitChance {
		result.DefenderHealth = p.HP
		result.CombatLog = append(result.CombatLog, fmt.Sprintf("%s misses.", m.Name))
		return result
	}
	damage := 1 + ce.rng.Intn(m.Strength+2)
	p.HP = max(0, p.HP-damage)
	p.Skills.AddXP(model.SkillDefense, defenseXP)
	result.Hit = true
	result.DamageDealt = damage
	result.DefenderHealth = p.HP
	result.IsDefenderDefeated = p.HP == 0
	result.CombatLog = append(result.CombatLog, fmt.Sprintf("%s hits you for %d!", m.Name, damage))
	return result
}

// RollLoot draws a monster drop: 10% sword, 10% armor, 40% 12-31 coin, else bread.
func (ce *CombatEngine) RollLoot() model.ItemStack {
	roll := ce.rng.Intn(100)
	switch {
	case roll < 10:
		return model.ItemStack{Type: model.ItemBronzeSword, Amount: 1}
	case roll < 20:
		return model.ItemStack{Type: model.ItemBronzeArmor, Amount: 1}
	case roll < 60:
		return model.ItemStack{Type: model.ItemCoin, Amount: 12 + ce.rng.Intn(20)}
	}
	return model.ItemStack{Type: model.ItemBread, Amount: 1}
}

// Roll returns a uniform int in [0, n).
func (ce *CombatEngine) Roll(n int) int {
	return ce.rng.Intn(n)
}
