package account

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
)

// Defaults applied to fields missing from a stored record.
const (
	DefaultX          = 40
	DefaultY          = 40
	DefaultHP         = 50
	DefaultAppearance = "body:0;hair:0;color:0"
)

// Record is the persisted progress and credential of one account.
type Record struct {
	Username     string
	PasswordHash string
	Salt         string
	X            int
	Y            int
	HP           int
	Appearance   string
	Skills       model.SkillSet
	Inventory    *model.Inventory
	Equipment    model.Equipment
}

// NewRecord returns a record holding only defaults.
func NewRecord(username string) *Record {
	return &Record{
		Username:   username,
		X:          DefaultX,
		Y:          DefaultY,
		HP:         DefaultHP,
		Appearance: DefaultAppearance,
		Skills:     model.NewSkillSet(),
		Inventory:  model.NewInventory(model.DefaultInventorySlots),
	}
}

// Clone returns a copy that shares no mutable state with r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Inventory != nil {
		c.Inventory = r.Inventory.Clone()
	}
	return &c
}

type stackJSON struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
}

type recordJSON struct {
	Username     string            `json:"username"`
	PasswordHash string            `json:"passwordHash"`
	Salt         string            `json:"salt"`
	X            int               `json:"x"`
	Y            int               `json:"y"`
	HP           int               `json:"hp"`
	Appearance   string            `json:"appearance"`
	Skills       map[string]int    `json:"skills"`
	XP           map[string]int    `json:"xp"`
	Inventory    []stackJSON       `json:"inventory"`
	Equipment    map[string]string `json:"equipment"`
}

// Marshal renders the record as indented JSON.
func (r *Record) Marshal() ([]byte, error) {
	out := recordJSON{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Salt:         r.Salt,
		X:            r.X,
		Y:            r.Y,
		HP:           r.HP,
		Appearance:   r.Appearance,
		Skills:       make(map[string]int, model.NumSkills),
		XP:           make(map[string]int, model.NumSkills),
		Inventory:    []stackJSON{},
		Equipment:    make(map[string]string, model.NumSlots),
	}
	for _, s := range model.AllSkills() {
		out.Skills[s.String()] = r.Skills.Level(s)
		out.XP[s.String()] = r.Skills.XP(s)
	}
	if r.Inventory != nil {
		for _, st := range r.Inventory.Items() {
			out.Inventory = append(out.Inventory, stackJSON{Type: st.Type.String(), Amount: st.Amount})
		}
	}
	for _, slot := range model.AllSlots() {
		out.Equipment[slot.String()] = r.Equipment.Get(slot).String()
	}
	return json.MarshalIndent(out, "", "  ")
}

// ParseRecord decodes a stored record. Missing fields take their defaults and
// unknown item or skill names are skipped.
func ParseRecord(data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("account record: %w", ErrCorrupt)
	}
	doc := gjson.ParseBytes(data)
	r := NewRecord(doc.Get("username").String())
	r.PasswordHash = doc.Get("passwordHash").String()
	r.Salt = doc.Get("salt").String()
	r.X = intOr(doc.Get("x"), DefaultX)
	r.Y = intOr(doc.Get("y"), DefaultY)
	r.HP = intOr(doc.Get("hp"), DefaultHP)
	if a := doc.Get("appearance"); a.Exists() && a.Type == gjson.String {
		r.Appearance = a.String()
	}

	skills := doc.Get("skills")
	xp := doc.Get("xp")
	for _, s := range model.AllSkills() {
		level := intOr(skills.Get(s.String()), r.Skills.Level(s))
		points := intOr(xp.Get(s.String()), r.Skills.XP(s))
		r.Skills.Set(s, level, points)
	}

	doc.Get("inventory").ForEach(func(_, stack gjson.Result) bool {
		item, err := model.ParseItemType(stack.Get("type").String())
		if err == nil {
			r.Inventory.Add(item, int(stack.Get("amount").Int()))
		}
		return true
	})

	doc.Get("equipment").ForEach(func(key, value gjson.Result) bool {
		slot, err := model.ParseSlot(key.String())
		if err != nil {
			return true
		}
		if item, err := model.ParseItemType(value.String()); err == nil {
			r.Equipment.Set(slot, item)
		}
		return true
	})
	return r, nil
}

func intOr(v gjson.Result, def int) int {
	if v.Type != gjson.Number {
		return def
	}
	return int(v.Int())
}
