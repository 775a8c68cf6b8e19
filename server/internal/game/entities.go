package game

import (
	"github.com/zmeiler/Zach-scripty/server/internal/account"
	"github.com/zmeiler/Zach-scripty/server/internal/model"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
)

// Outbox delivers messages to one connected client.
type Outbox interface {
	Send(msg protocol.Message)
}

// Broadcaster delivers one message to every connected client.
type Broadcaster interface {
	Broadcast(msg protocol.Message)
}

// SpawnPoint is where new and defeated players wake up.
var SpawnPoint = model.Point{X: 40, Y: 40}

// Player is a logged-in character. Only the simulation goroutine touches it.
type Player struct {
	ID         int32
	Username   string
	SessionID  string
	Appearance string
	X, Y       int
	HP         int
	MaxHP      int
	Skills     model.SkillSet
	Inventory  *model.Inventory
	Equipment  model.Equipment

	LastAttackMS int64

	passwordHash string
	salt         string
	// arrivedByLadder suppresses the return trip until the player moves off the anchor.
	arrivedByLadder bool
	out             Outbox
}

func newPlayer(id int32, rec *account.Record, sessionID string, out Outbox) *Player {
	p := &Player{
		ID:           id,
		Username:     rec.Username,
		SessionID:    sessionID,
		Appearance:   rec.Appearance,
		X:            rec.X,
		Y:            rec.Y,
		HP:           rec.HP,
		Skills:       rec.Skills,
		Inventory:    rec.Inventory.Clone(),
		Equipment:    rec.Equipment,
		passwordHash: rec.PasswordHash,
		salt:         rec.Salt,
		out:          out,
	}
	p.refreshMaxHP()
	return p
}

// refreshMaxHP recomputes the ceiling from the Hitpoints level and clamps hp to it.
func (p *Player) refreshMaxHP() {
	p.MaxHP = p.Skills.MaxHP()
	if p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}
}

func (p *Player) notify(text string) {
	p.out.Send(&protocol.Notify{Text: text})
}

func (p *Player) sendUpdate() {
	p.out.Send(&protocol.PlayerUpdate{
		HP:        int32(p.HP),
		MaxHP:     int32(p.MaxHP),
		Skills:    p.Skills,
		Inventory: p.Inventory.Clone(),
		Equipment: p.Equipment,
	})
}

// Record captures the player's progress for persistence with the credential
// loaded at login.
func (p *Player) Record() *account.Record {
	return &account.Record{
		Username:     p.Username,
		PasswordHash: p.passwordHash,
		Salt:         p.salt,
		X:            p.X,
		Y:            p.Y,
		HP:           p.HP,
		Appearance:   p.Appearance,
		Skills:       p.Skills,
		Inventory:    p.Inventory.Clone(),
		Equipment:    p.Equipment,
	}
}

func (p *Player) state() model.EntityState {
	return model.EntityState{
		ID: p.ID, Kind: model.EntityPlayer,
		X: int32(p.X), Y: int32(p.Y), HP: int32(p.HP), MaxHP: int32(p.MaxHP),
		Name: p.Username,
	}
}

// Monster never leaves the registry; death only arms its respawn timer.
type Monster struct {
	ID       int32
	Name     string
	X, Y     int
	HP       int
	MaxHP    int
	Attack   int
	Strength int
	Defense  int

	LastAttackMS int64
	SpawnX       int
	SpawnY       int
	// RespawnAtMS is zero while alive and on the tick a death is first seen.
	RespawnAtMS int64
}

func (m *Monster) Alive() bool { return m.HP > 0 }

func (m *Monster) state() model.EntityState {
	return model.EntityState{
		ID: m.ID, Kind: model.EntityMonster,
		X: int32(m.X), Y: int32(m.Y), HP: int32(m.HP), MaxHP: int32(m.MaxHP),
		Name: m.Name,
	}
}

type Npc struct {
	ID         int32
	Name       string
	X, Y       int
	Dialogue   []string
	Shopkeeper bool
}

func (n *Npc) state() model.EntityState {
	return model.EntityState{
		ID: n.ID, Kind: model.EntityNpc,
		X: int32(n.X), Y: int32(n.Y), HP: 1, MaxHP: 1,
		Name: n.Name,
	}
}

// ResourceNode yields one unit of Reward per gather, then rests for RespawnSeconds.
type ResourceNode struct {
	ID             int32
	Name           string
	X, Y           int
	Reward         model.ItemType
	Skill          model.SkillType
	RespawnSeconds int
	AvailableAtMS  int64
}

func (r *ResourceNode) Available(nowMS int64) bool { return nowMS >= r.AvailableAtMS }

func (r *ResourceNode) state() model.EntityState {
	return model.EntityState{
		ID: r.ID, Kind: model.EntityResource,
		X: int32(r.X), Y: int32(r.Y), HP: 1, MaxHP: 1,
		Name: r.Name,
	}
}
