package game

import (
	"fmt"
	"strings"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
)

// Shop and gathering tuning.
const (
	BreadPrice   = 6
	SellPrice    = 5
	ShopRadius   = 2
	GatherXP     = 30
	BreadHealing = 8

	shopHint = "Shop: sells bread (6 coins), buys logs/ore/fish (5 coins). Use /buy bread or /sell log."
)

var sellable = map[string]model.ItemType{
	"log":  model.ItemLog,
	"ore":  model.ItemOre,
	"fish": model.ItemFish,
}

// HandleInteract gathers from an available node on (x, y) or talks to an NPC
// standing there. Nodes take precedence.
func (s *Simulation) HandleInteract(playerID int32, x, y int) {
	p := s.Player(playerID)
	if p == nil {
		return
	}
	now := s.clock.NowMS()
	for _, node := range s.resources {
		if node.X == x && node.Y == y && node.Available(now) {
			s.gather(p, node, now)
			return
		}
	}
	for _, npc := range s.npcs {
		if npc.X == x && npc.Y == y {
			s.talk(p, npc)
			return
		}
	}
}

func (s *Simulation) gather(p *Player, node *ResourceNode, now int64) {
	if model.Manhattan(p.X, p.Y, node.X, node.Y) > 1 {
		p.notify("You need to move closer.")
		return
	}
	node.AvailableAtMS = now + int64(node.RespawnSeconds)*1000
	p.Inventory.Add(node.Reward, 1)
	leveled := p.Skills.AddXP(node.Skill, GatherXP)
	p.notify(fmt.Sprintf("You examine the %s.", node.Name))
	p.notify(fmt.Sprintf("You take %s from the %s.", strings.ToLower(node.Reward.String()), node.Name))
	if leveled {
		p.notify(strings.ToLower(node.Skill.String()) + " level up!")
	}
	p.sendUpdate()
}

func (s *Simulation) talk(p *Player, npc *Npc) {
	p.notify(fmt.Sprintf("You talk to %s.", npc.Name))
	if len(npc.Dialogue) > 0 {
		p.notify(npc.Dialogue[s.combat.Roll(len(npc.Dialogue))])
	}
	if npc.Shopkeeper {
		p.notify(shopHint)
	}
}

// HandleChat runs slash commands or broadcasts the text under the player's name.
func (s *Simulation) HandleChat(playerID int32, text string) {
	p := s.Player(playerID)
	if p == nil {
		return
	}
	switch {
	case strings.HasPrefix(text, "/buy"):
		s.buy(p, text)
	case strings.HasPrefix(text, "/sell"):
		s.sell(p, text)
	case strings.HasPrefix(text, "/equip"):
		s.equip(p, text)
	case strings.HasPrefix(text, "/eat"):
		s.eat(p)
	default:
		s.broadcaster.Broadcast(&protocol.Chat{Text: p.Username + ": " + text})
	}
}

// commandArg returns the lower-cased first argument of a command line.
func commandArg(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", false
	}
	return strings.ToLower(fields[1]), true
}

func (s *Simulation) nearShopkeeper(p *Player) bool {
	for _, npc := range s.npcs {
		if npc.Shopkeeper && model.Manhattan(p.X, p.Y, npc.X, npc.Y) <= ShopRadius {
			return true
		}
	}
	return false
}

func (s *Simulation) buy(p *Player, text string) {
	if !s.nearShopkeeper(p) {
		p.notify("You need to be near the shopkeeper.")
		return
	}
	item, ok := commandArg(text)
	if !ok {
		p.notify("Usage: /buy bread")
		return
	}
	if item != "bread" {
		p.notify("The shop only sells bread right now.")
		return
	}
	if !p.Inventory.Remove(model.ItemCoin, BreadPrice) {
		p.notify("Not enough coins.")
		return
	}
	p.Inventory.Add(model.ItemBread, 1)
	p.notify("You buy a loaf of bread.")
	p.sendUpdate()
}

func (s *Simulation) sell(p *Player, text string) {
	if !s.nearShopkeeper(p) {
		p.notify("You need to be near the shopkeeper.")
		return
	}
	item, ok := commandArg(text)
	if !ok {
		p.notify("Usage: /sell log|ore|fish")
		return
	}
	itemType, ok := sellable[item]
	if !ok {
		p.notify("I only buy logs, ore, and fish.")
		return
	}
	if !p.Inventory.Remove(itemType, 1) {
		p.notify("You don't have that item.")
		return
	}
	p.Inventory.Add(model.ItemCoin, SellPrice)
	p.notify("Sold one " + item + ".")
	p.sendUpdate()
}

func (s *Simulation) equip(p *Player, text string) {
	item, ok := commandArg(text)
	if !ok {
		p.notify("Usage: /equip sword|armor")
		return
	}
	var (
		slot     model.Slot
		itemType model.ItemType
		equipped string
		missing  string
	)
	switch item {
	case "sword":
		slot, itemType = model.SlotWeapon, model.ItemBronzeSword
		equipped, missing = "You equip a bronze sword.", "You need a bronze sword."
	case "armor":
		slot, itemType = model.SlotArmor, model.ItemBronzeArmor
		equipped, missing = "You equip bronze armor.", "You need bronze armor."
	default:
		p.notify("Unknown equipment.")
		return
	}
	if !p.Inventory.Remove(itemType, 1) {
		p.notify(missing)
		return
	}
	p.Equipment.Set(slot, itemType)
	p.notify(equipped)
	p.sendUpdate()
}

func (s *Simulation) eat(p *Player) {
	if !p.Inventory.Remove(model.ItemBread, 1) {
		p.notify("You have no bread.")
		return
	}
	p.HP = min(p.MaxHP, p.HP+BreadHealing)
	p.notify("You eat the bread and feel better.")
	p.sendUpdate()
}
