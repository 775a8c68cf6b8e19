package protocol

import (
	"fmt"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
)

// Kind is the leading int32 discriminator of every message. The ordinal order is fixed.
type Kind int32

const (
	KindLogin Kind = iota
	KindLoginResult
	KindChat
	KindMoveRequest
	KindAttackRequest
	KindInteractRequest
	KindStateUpdate
	KindPlayerUpdate
	KindNotify
	KindLogout
	numKinds
)

var kindNames = [numKinds]string{
	"LOGIN", "LOGIN_RESULT", "CHAT", "MOVE_REQUEST", "ATTACK_REQUEST",
	"INTERACT_REQUEST", "STATE_UPDATE", "PLAYER_UPDATE", "NOTIFY", "LOGOUT",
}

func (k Kind) Valid() bool { return k >= 0 && k < numKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
	return kindNames[k]
}

// Message is one framed protocol message.
type Message interface {
	Kind() Kind
}

// Login is sent by the client to authenticate. Guest logins ignore the credentials.
type Login struct {
	Username   string
	Password   string
	Appearance string
	Guest      bool
}

// LoginResult answers a Login. The state fields are only on the wire when Success is set.
type LoginResult struct {
	Success     bool
	Message     string
	PlayerID    int32
	WorldWidth  int32
	WorldHeight int32
	Zone        string
	X           int32
	Y           int32
	HP          int32
	MaxHP       int32
	Skills      model.SkillSet
	Inventory   *model.Inventory
	Equipment   model.Equipment
}

// Chat carries chat text in both directions.
type Chat struct {
	Text string
}

type MoveRequest struct {
	X int32
	Y int32
}

type AttackRequest struct {
	TargetID int32
}

type InteractRequest struct {
	X int32
	Y int32
}

// StateUpdate is the per-tick snapshot of every live entity.
type StateUpdate struct {
	Entities    []model.EntityState
	WorldWidth  int32
	WorldHeight int32
}

// PlayerUpdate refreshes the receiving player's own stats.
type PlayerUpdate struct {
	HP        int32
	MaxHP     int32
	Skills    model.SkillSet
	Inventory *model.Inventory
	Equipment model.Equipment
}

type Notify struct {
	Text string
}

type Logout struct{}

func (*Login) Kind() Kind           { return KindLogin }
func (*LoginResult) Kind() Kind     { return KindLoginResult }
func (*Chat) Kind() Kind            { return KindChat }
func (*MoveRequest) Kind() Kind     { return KindMoveRequest }
func (*AttackRequest) Kind() Kind   { return KindAttackRequest }
func (*InteractRequest) Kind() Kind { return KindInteractRequest }
func (*StateUpdate) Kind() Kind     { return KindStateUpdate }
func (*PlayerUpdate) Kind() Kind    { return KindPlayerUpdate }
func (*Notify) Kind() Kind          { return KindNotify }
func (*Logout) Kind() Kind          { return KindLogout }
