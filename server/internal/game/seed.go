package game

import "github.com/zmeiler/Zach-scripty/server/internal/model"

type monsterPack struct {
	name                          string
	count                         int
	hp, attack, strength, defense int
	baseX, stepX, baseY, yCycle   int
}

// Monster packs placed at (baseX + stepX*i, baseY + i%yCycle).
var monsterPacks = []monsterPack{
	{name: "Forest Imp", count: 12, hp: 20, attack: 2, strength: 3, defense: 1, baseX: 30, stepX: 3, baseY: 30, yCycle: 5},
	{name: "Rock Beetle", count: 8, hp: 28, attack: 3, strength: 4, defense: 2, baseX: 70, stepX: 2, baseY: 40, yCycle: 4},
	{name: "Bog Stalker", count: 6, hp: 35, attack: 4, strength: 5, defense: 3, baseX: 50, stepX: 2, baseY: 80, yCycle: 3},
}

var npcSeeds = []Npc{
	{
		Name: "Greta the Guide", X: 40, Y: 40,
		Dialogue: []string{
			"Welcome to Oakridge!",
			"Try gathering wood, ore, or fish to train skills.",
			"Visit Joran's shop for supplies.",
		},
	},
	{
		Name: "Joran the Trader", X: 42, Y: 41, Shopkeeper: true,
		Dialogue: []string{
			"Looking to trade?",
			"I buy logs, ore, and fish.",
			"Use the trade option to see prices.",
		},
	},
}

var resourceSeeds = []ResourceNode{
	{Name: "Oak Tree", X: 35, Y: 44, Reward: model.ItemLog, Skill: model.SkillWoodcutting, RespawnSeconds: 10},
	{Name: "Oak Tree", X: 37, Y: 46, Reward: model.ItemLog, Skill: model.SkillWoodcutting, RespawnSeconds: 10},
	{Name: "Copper Vein", X: 65, Y: 52, Reward: model.ItemOre, Skill: model.SkillMining, RespawnSeconds: 12},
	{Name: "Copper Vein", X: 68, Y: 54, Reward: model.ItemOre, Skill: model.SkillMining, RespawnSeconds: 12},
	{Name: "Fishing Spot", X: 48, Y: 60, Reward: model.ItemFish, Skill: model.SkillFishing, RespawnSeconds: 8},
	{Name: "Fishing Spot", X: 52, Y: 61, Reward: model.ItemFish, Skill: model.SkillFishing, RespawnSeconds: 8},
}

// seed populates monsters, NPCs and resource nodes, drawing ids from the
// shared counter.
func (s *Simulation) seed() {
	for _, pack := range monsterPacks {
		for i := 0; i < pack.count; i++ {
			x, y := pack.baseX+pack.stepX*i, pack.baseY+i%pack.yCycle
			s.monsters = append(s.monsters, &Monster{
				ID:       s.allocID(),
				Name:     pack.name,
				X:        x,
				Y:        y,
				HP:       pack.hp,
				MaxHP:    pack.hp,
				Attack:   pack.attack,
				Strength: pack.strength,
				Defense:  pack.defense,
				SpawnX:   x,
				SpawnY:   y,
			})
		}
	}
	for i := range npcSeeds {
		npc := npcSeeds[i]
		npc.ID = s.allocID()
		npc.Dialogue = append([]string(nil), npc.Dialogue...)
		s.npcs = append(s.npcs, &npc)
	}
	for i := range resourceSeeds {
		node := resourceSeeds[i]
		node.ID = s.allocID()
		s.resources = append(s.resources, &node)
	}
}
