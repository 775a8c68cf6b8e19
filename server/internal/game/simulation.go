package game

import (
	"errors"
	"math/rand"

	"github.com/zmeiler/Zach-scripty/server/internal/account"
	"github.com/zmeiler/Zach-scripty/server/internal/model"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

// ErrAlreadyOnline is returned by Join when the username is already in the world.
var ErrAlreadyOnline = errors.New("game: account already logged in")

// WelcomeMessage is the LoginResult text of a successful login.
const WelcomeMessage = "Welcome to Oakridge"

// Simulation is the authoritative world state. It has no internal locking:
// exactly one goroutine (the world actor) may call its methods.
type Simulation struct {
	world       *World
	clock       utils.Clock
	combat      *CombatEngine
	broadcaster Broadcaster

	nextID    int32
	players   []*Player
	monsters  []*Monster
	npcs      []*Npc
	resources []*ResourceNode
}

// NewSimulation seeds monsters, NPCs and resource nodes into world.
func NewSimulation(world *World, clock utils.Clock, rng *rand.Rand, broadcaster Broadcaster) *Simulation {
	s := &Simulation{
		world:       world,
		clock:       clock,
		combat:      NewCombatEngine(rng),
		broadcaster: broadcaster,
		nextID:      1,
	}
	s.seed()
	return s
}

func (s *Simulation) allocID() int32 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Simulation) World() *World { return s.world }

// Join registers a player built from rec and sends it the LoginResult.
func (s *Simulation) Join(rec *account.Record, sessionID string, out Outbox) (*Player, error) {
	for _, p := range s.players {
		if p.Username == rec.Username {
			return nil, ErrAlreadyOnline
		}
	}
	p := newPlayer(s.allocID(), rec, sessionID, out)
	s.players = append(s.players, p)
	out.Send(&protocol.LoginResult{
		Success:     true,
		Message:     WelcomeMessage,
		PlayerID:    p.ID,
		WorldWidth:  int32(s.world.Width()),
		WorldHeight: int32(s.world.Height()),
		Zone:        s.world.AreaName(p.X, p.Y),
		X:           int32(p.X),
		Y:           int32(p.Y),
		HP:          int32(p.HP),
		MaxHP:       int32(p.MaxHP),
		Skills:      p.Skills,
		Inventory:   p.Inventory.Clone(),
		Equipment:   p.Equipment,
	})
	utils.LogInfof("Player %s joined as entity %d at (%d,%d)", p.Username, p.ID, p.X, p.Y)
	return p, nil
}

// Leave removes the player and returns its progress for saving, or nil if absent.
func (s *Simulation) Leave(playerID int32) *account.Record {
	for i, p := range s.players {
		if p.ID == playerID {
			s.players = append(s.players[:i], s.players[i+1:]...)
			utils.LogInfof("Player %s left the world", p.Username)
			return p.Record()
		}
	}
	return nil
}

// LeaveAll removes every player and returns their progress.
func (s *Simulation) LeaveAll() []*account.Record {
	records := s.Records()
	s.players = nil
	return records
}

// Player looks up an online player by entity id.
func (s *Simulation) Player(id int32) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Simulation) PlayerCount() int { return len(s.players) }

// Monster looks up a monster by entity id.
func (s *Simulation) Monster(id int32) *Monster {
	for _, m := range s.monsters {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Simulation) Monsters() []*Monster       { return s.monsters }
func (s *Simulation) Npcs() []*Npc               { return s.npcs }
func (s *Simulation) Resources() []*ResourceNode { return s.resources }

// Records returns a save snapshot of every online player.
func (s *Simulation) Records() []*account.Record {
	out := make([]*account.Record, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Record())
	}
	return out
}

// Tick advances monster AI and player lifecycle, then broadcasts a snapshot.
func (s *Simulation) Tick() {
	s.updateMonsters()
	s.updatePlayers()
	s.broadcaster.Broadcast(s.Snapshot())
}

func (s *Simulation) updateMonsters() {
	now := s.clock.NowMS()
	for _, m := range s.monsters {
		if !m.Alive() {
			if m.RespawnAtMS == 0 {
				m.RespawnAtMS = now + MonsterRespawnMS
			} else if now >= m.RespawnAtMS {
				m.HP = m.MaxHP
				m.X, m.Y = m.SpawnX, m.SpawnY
				m.RespawnAtMS = 0
			}
			continue
		}
		target := s.nearestPlayer(m.X, m.Y, AggroRadius)
		if target == nil {
			continue
		}
		if model.Manhattan(m.X, m.Y, target.X, target.Y) <= 1 {
			s.monsterAttack(m, target, now)
		} else {
			s.stepToward(m, target.X, target.Y)
		}
	}
}

// nearestPlayer picks the closest player within radius; ties go to the
// earliest joined.
func (s *Simulation) nearestPlayer(x, y, radius int) *Player {
	var best *Player
	bestDist := radius + 1
	for _, p := range s.players {
		if d := model.Manhattan(x, y, p.X, p.Y); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func (s *Simulation) monsterAttack(m *Monster, p *Player, now int64) {
	if now-m.LastAttackMS < MonsterAttackCooldownMS {
		return
	}
	m.LastAttackMS = now
	result := s.combat.MonsterAttack(m, p)
	for _, line := range result.CombatLog {
		p.notify(line)
	}
	if result.Hit {
		p.sendUpdate()
	}
}

// stepToward moves each axis at most one cell toward the target, as a single
// diagonal-capable step, only onto walkable ground.
func (s *Simulation) stepToward(m *Monster, tx, ty int) {
	nx, ny := m.X+sign(tx-m.X), m.Y+sign(ty-m.Y)
	if s.world.Walkable(nx, ny) {
		m.X, m.Y = nx, ny
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func (s *Simulation) updatePlayers() {
	for _, p := range s.players {
		if p.HP <= 0 {
			p.HP = p.MaxHP
			p.X, p.Y = SpawnPoint.X, SpawnPoint.Y
			p.arrivedByLadder = false
			p.notify("You wake up back in Oakridge with your wounds mended.")
			p.sendUpdate()
		}
		if p.arrivedByLadder {
			continue
		}
		if dest, ok := s.world.LadderDestination(p.X, p.Y); ok {
			p.X, p.Y = dest.X, dest.Y
			p.arrivedByLadder = true
			p.notify("You climb the ladder.")
		}
	}
}

// Snapshot lists players, living monsters, NPCs and available resource nodes.
func (s *Simulation) Snapshot() *protocol.StateUpdate {
	now := s.clock.NowMS()
	states := make([]model.EntityState, 0, len(s.players)+len(s.monsters)+len(s.npcs)+len(s.resources))
	for _, p := range s.players {
		states = append(states, p.state())
	}
	for _, m := range s.monsters {
		if m.Alive() {
			states = append(states, m.state())
		}
	}
	for _, n := range s.npcs {
		states = append(states, n.state())
	}
	for _, r := range s.resources {
		if r.Available(now) {
			states = append(states, r.state())
		}
	}
	return &protocol.StateUpdate{
		Entities:    states,
		WorldWidth:  int32(s.world.Width()),
		WorldHeight: int32(s.world.Height()),
	}
}

// HandleMove advances the player one step along a fresh path toward (x, y).
func (s *Simulation) HandleMove(playerID int32, x, y int) {
	p := s.Player(playerID)
	if p == nil {
		return
	}
	path := FindPath(s.world, model.Point{X: p.X, Y: p.Y}, model.Point{X: x, Y: y}, MovePathBudget)
	if len(path) == 0 {
		return
	}
	p.X, p.Y = path[0].X, path[0].Y
	p.arrivedByLadder = false
}

// HandleAttack swings at a monster. Dead, distant or cooling-down attempts are
// dropped without a reply.
func (s *Simulation) HandleAttack(playerID, targetID int32) {
	p := s.Player(playerID)
	if p == nil {
		return
	}
	m := s.Monster(targetID)
	if m == nil || !m.Alive() {
		return
	}
	if model.Manhattan(p.X, p.Y, m.X, m.Y) > 1 {
		return
	}
	now := s.clock.NowMS()
	if now-p.LastAttackMS < PlayerAttackCooldownMS {
		return
	}
	p.LastAttackMS = now
	result := s.combat.PlayerAttack(p, m)
	for _, line := range result.CombatLog {
		p.notify(line)
	}
	if result.IsDefenderDefeated {
		s.monsterDeath(m, p, now)
	}
}

func (s *Simulation) monsterDeath(m *Monster, p *Player, now int64) {
	m.RespawnAtMS = now + MonsterRespawnMS
	p.notify(m.Name + " collapses.")
	loot := s.combat.RollLoot()
	p.Inventory.Add(loot.Type, loot.Amount)
	p.sendUpdate()
}
