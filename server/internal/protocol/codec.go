package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
)

const (
	// MaxStringLength caps a single decoded string, in bytes.
	MaxStringLength = 64 * 1024
	// MaxEntities caps the entity count of a decoded StateUpdate.
	MaxEntities = 1 << 16
	// MaxStacks caps inventory stack counts and max-slot values on the wire.
	MaxStacks = 1024
)

var (
	ErrUnknownKind       = errors.New("protocol: unknown message kind")
	ErrUnknownItem       = errors.New("protocol: unknown item ordinal")
	ErrUnknownEntityKind = errors.New("protocol: unknown entity kind ordinal")
	ErrSkillCount        = errors.New("protocol: skill count exceeds known skills")
	ErrSlotCount         = errors.New("protocol: slot count exceeds known slots")
	ErrStringTooLong     = errors.New("protocol: string length out of range")
	ErrInvalidUTF8       = errors.New("protocol: string is not valid UTF-8")
	ErrCountOutOfRange   = errors.New("protocol: element count out of range")
)

// Marshal encodes one message, kind tag first. Integers are big-endian int32,
// booleans one byte, strings an int32 byte length followed by UTF-8.
func Marshal(m Message) ([]byte, error) {
	e := &encoder{buf: make([]byte, 0, 64)}
	e.i32(int32(m.Kind()))
	switch msg := m.(type) {
	case *Login:
		e.str(msg.Username)
		e.str(msg.Password)
		e.str(msg.Appearance)
		e.boolean(msg.Guest)
	case *LoginResult:
		e.boolean(msg.Success)
		e.str(msg.Message)
		if msg.Success {
			e.i32(msg.PlayerID)
			e.i32(msg.WorldWidth)
			e.i32(msg.WorldHeight)
			e.str(msg.Zone)
			e.i32(msg.X)
			e.i32(msg.Y)
			e.i32(msg.HP)
			e.i32(msg.MaxHP)
			e.skills(&msg.Skills)
			e.inventory(msg.Inventory)
			e.equipment(&msg.Equipment)
		}
	case *Chat:
		e.str(msg.Text)
	case *MoveRequest:
		e.i32(msg.X)
		e.i32(msg.Y)
	case *AttackRequest:
		e.i32(msg.TargetID)
	case *InteractRequest:
		e.i32(msg.X)
		e.i32(msg.Y)
	case *StateUpdate:
		e.i32(int32(len(msg.Entities)))
		for i := range msg.Entities {
			e.entity(&msg.Entities[i])
		}
		e.i32(msg.WorldWidth)
		e.i32(msg.WorldHeight)
	case *PlayerUpdate:
		e.i32(msg.HP)
		e.i32(msg.MaxHP)
		e.skills(&msg.Skills)
		e.inventory(msg.Inventory)
		e.equipment(&msg.Equipment)
	case *Notify:
		e.str(msg.Text)
	case *Logout:
	default:
		return nil, fmt.Errorf("marshal %T: %w", m, ErrUnknownKind)
	}
	return e.buf, nil
}

// Write encodes m and writes it to w in a single call.
func Write(w io.Writer, m Message) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

type encoder struct {
	buf []byte
}

func (e *encoder) i32(v int32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(v))
}

func (e *encoder) boolean(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) str(s string) {
	e.i32(int32(len(s)))
	e.buf = append(e.buf, s...)
}

// skills writes count then level, xp per skill in enumeration order.
func (e *encoder) skills(s *model.SkillSet) {
	e.i32(int32(model.NumSkills))
	for _, skill := range model.AllSkills() {
		e.i32(int32(s.Level(skill)))
		e.i32(int32(s.XP(skill)))
	}
}

func (e *encoder) inventory(inv *model.Inventory) {
	if inv == nil {
		inv = model.NewInventory(model.DefaultInventorySlots)
	}
	items := inv.Items()
	e.i32(int32(len(items)))
	for _, st := range items {
		e.i32(int32(st.Type))
		e.i32(int32(st.Amount))
	}
	e.i32(int32(inv.MaxSlots()))
}

func (e *encoder) equipment(eq *model.Equipment) {
	e.i32(int32(model.NumSlots))
	for _, slot := range model.AllSlots() {
		e.i32(int32(eq.Get(slot)))
	}
}

func (e *encoder) entity(s *model.EntityState) {
	e.i32(s.ID)
	e.i32(int32(s.Kind))
	e.i32(s.X)
	e.i32(s.Y)
	e.i32(s.HP)
	e.i32(s.MaxHP)
	e.str(s.Name)
}

// Decoder reads messages from a stream, one per call.
type Decoder struct {
	r       *bufio.Reader
	scratch [4]byte
}

func NewDecoder(r io.Reader) *Decoder {
	if br, ok := r.(*bufio.Reader); ok {
		return &Decoder{r: br}
	}
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads the next message. Any error leaves the stream unusable.
func (d *Decoder) Decode() (Message, error) {
	tag, err := d.i32()
	if err != nil {
		return nil, err
	}
	kind := Kind(tag)
	switch kind {
	case KindLogin:
		m := &Login{}
		if m.Username, err = d.str(); err != nil {
			return nil, err
		}
		if m.Password, err = d.str(); err != nil {
			return nil, err
		}
		if m.Appearance, err = d.str(); err != nil {
			return nil, err
		}
		if m.Guest, err = d.boolean(); err != nil {
			return nil, err
		}
		return m, nil
	case KindLoginResult:
		return d.loginResult()
	case KindChat:
		text, err := d.str()
		if err != nil {
			return nil, err
		}
		return &Chat{Text: text}, nil
	case KindMoveRequest:
		x, y, err := d.pair()
		if err != nil {
			return nil, err
		}
		return &MoveRequest{X: x, Y: y}, nil
	case KindAttackRequest:
		id, err := d.i32()
		if err != nil {
			return nil, err
		}
		return &AttackRequest{TargetID: id}, nil
	case KindInteractRequest:
		x, y, err := d.pair()
		if err != nil {
			return nil, err
		}
		return &InteractRequest{X: x, Y: y}, nil
	case KindStateUpdate:
		return d.stateUpdate()
	case KindPlayerUpdate:
		return d.playerUpdate()
	case KindNotify:
		text, err := d.str()
		if err != nil {
			return nil, err
		}
		return &Notify{Text: text}, nil
	case KindLogout:
		return &Logout{}, nil
	}
	return nil, fmt.Errorf("kind %d: %w", tag, ErrUnknownKind)
}

func (d *Decoder) loginResult() (*LoginResult, error) {
	m := &LoginResult{}
	var err error
	if m.Success, err = d.boolean(); err != nil {
		return nil, err
	}
	if m.Message, err = d.str(); err != nil {
		return nil, err
	}
	if !m.Success {
		return m, nil
	}
	if m.PlayerID, err = d.i32(); err != nil {
		return nil, err
	}
	if m.WorldWidth, m.WorldHeight, err = d.pair(); err != nil {
		return nil, err
	}
	if m.Zone, err = d.str(); err != nil {
		return nil, err
	}
	if m.X, m.Y, err = d.pair(); err != nil {
		return nil, err
	}
	if m.HP, m.MaxHP, err = d.pair(); err != nil {
		return nil, err
	}
	if m.Skills, err = d.skills(); err != nil {
		return nil, err
	}
	if m.Inventory, err = d.inventory(); err != nil {
		return nil, err
	}
	if m.Equipment, err = d.equipment(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Decoder) stateUpdate() (*StateUpdate, error) {
	count, err := d.i32()
	if err != nil {
		return nil, err
	}
	if count < 0 || count > MaxEntities {
		return nil, fmt.Errorf("entity count %d: %w", count, ErrCountOutOfRange)
	}
	m := &StateUpdate{Entities: make([]model.EntityState, 0, count)}
	for i := int32(0); i < count; i++ {
		var s model.EntityState
		if s.ID, err = d.i32(); err != nil {
			return nil, err
		}
		kind, err := d.i32()
		if err != nil {
			return nil, err
		}
		s.Kind = model.EntityKind(kind)
		if !s.Kind.Valid() {
			return nil, fmt.Errorf("entity kind %d: %w", kind, ErrUnknownEntityKind)
		}
		if s.X, s.Y, err = d.pair(); err != nil {
			return nil, err
		}
		if s.HP, s.MaxHP, err = d.pair(); err != nil {
			return nil, err
		}
		if s.Name, err = d.str(); err != nil {
			return nil, err
		}
		m.Entities = append(m.Entities, s)
	}
	if m.WorldWidth, m.WorldHeight, err = d.pair(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Decoder) playerUpdate() (*PlayerUpdate, error) {
	m := &PlayerUpdate{}
	var err error
	if m.HP, m.MaxHP, err = d.pair(); err != nil {
		return nil, err
	}
	if m.Skills, err = d.skills(); err != nil {
		return nil, err
	}
	if m.Inventory, err = d.inventory(); err != nil {
		return nil, err
	}
	if m.Equipment, err = d.equipment(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Decoder) i32() (int32, error) {
	if _, err := io.ReadFull(d.r, d.scratch[:4]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(d.scratch[:4])), nil
}

func (d *Decoder) pair() (int32, int32, error) {
	a, err := d.i32()
	if err != nil {
		return 0, 0, err
	}
	b, err := d.i32()
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (d *Decoder) boolean() (bool, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// str decodes a length-prefixed string; a length of -1 (absent) decodes as "".
func (d *Decoder) str() (string, error) {
	n, err := d.i32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		if n == -1 {
			return "", nil
		}
		return "", fmt.Errorf("length %d: %w", n, ErrStringTooLong)
	}
	if n > MaxStringLength {
		return "", fmt.Errorf("length %d: %w", n, ErrStringTooLong)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidUTF8
	}
	return string(buf), nil
}

// skills reads a skills block. Position i is skill ordinal i; the count may not
// exceed the known skills and unsent skills keep their defaults.
func (d *Decoder) skills() (model.SkillSet, error) {
	s := model.NewSkillSet()
	count, err := d.i32()
	if err != nil {
		return s, err
	}
	if count < 0 || count > int32(model.NumSkills) {
		return s, fmt.Errorf("skill count %d: %w", count, ErrSkillCount)
	}
	for i := int32(0); i < count; i++ {
		level, xp, err := d.pair()
		if err != nil {
			return s, err
		}
		s.Set(model.SkillType(i), int(level), int(xp))
	}
	return s, nil
}

func (d *Decoder) inventory() (*model.Inventory, error) {
	count, err := d.i32()
	if err != nil {
		return nil, err
	}
	if count < 0 || count > MaxStacks {
		return nil, fmt.Errorf("stack count %d: %w", count, ErrCountOutOfRange)
	}
	stacks := make([]model.ItemStack, 0, count)
	for i := int32(0); i < count; i++ {
		ordinal, amount, err := d.pair()
		if err != nil {
			return nil, err
		}
		item := model.ItemType(ordinal)
		if !item.Valid() {
			return nil, fmt.Errorf("item %d: %w", ordinal, ErrUnknownItem)
		}
		stacks = append(stacks, model.ItemStack{Type: item, Amount: int(amount)})
	}
	maxSlots, err := d.i32()
	if err != nil {
		return nil, err
	}
	if maxSlots < 0 || maxSlots > MaxStacks {
		return nil, fmt.Errorf("max slots %d: %w", maxSlots, ErrCountOutOfRange)
	}
	inv := model.NewInventory(int(maxSlots))
	for _, st := range stacks {
		inv.Add(st.Type, st.Amount)
	}
	return inv, nil
}

func (d *Decoder) equipment() (model.Equipment, error) {
	var eq model.Equipment
	count, err := d.i32()
	if err != nil {
		return eq, err
	}
	if count < 0 || count > int32(model.NumSlots) {
		return eq, fmt.Errorf("slot count %d: %w", count, ErrSlotCount)
	}
	for i := int32(0); i < count; i++ {
		ordinal, err := d.i32()
		if err != nil {
			return eq, err
		}
		item := model.ItemType(ordinal)
		if !item.Valid() {
			return eq, fmt.Errorf("item %d: %w", ordinal, ErrUnknownItem)
		}
		eq.Set(model.Slot(i), item)
	}
	return eq, nil
}
