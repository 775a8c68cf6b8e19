package model

import "fmt"

// Slot is an equipment slot. The ordinal order is the wire order of the equipment block.
type Slot int

const (
	SlotWeapon Slot = iota
	SlotArmor
	NumSlots
)

var slotNames = [NumSlots]string{"WEAPON", "ARMOR"}

func (s Slot) Valid() bool { return s >= 0 && s < NumSlots }

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return slotNames[s]
}

// AllSlots lists every slot in enumeration order.
func AllSlots() []Slot {
	return []Slot{SlotWeapon, SlotArmor}
}

// Equipment maps each slot to an item; unset slots hold ItemNone.
type Equipment struct {
	slots [NumSlots]ItemType
}

func (e *Equipment) Get(s Slot) ItemType {
	if !s.Valid() {
		return ItemNone
	}
	return e.slots[s]
}

func (e *Equipment) Set(s Slot, item ItemType) {
	if !s.Valid() {
		return
	}
	e.slots[s] = item
}

// Equipped reports whether the slot holds anything.
func (e *Equipment) Equipped(s Slot) bool {
	return e.Get(s) != ItemNone
}

// ParseSlot maps a persisted slot name back to its Slot.
func ParseSlot(name string) (Slot, error) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("slot %q: %w", name, ErrUnknownName)
}
