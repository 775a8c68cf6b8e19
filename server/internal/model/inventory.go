package model

// DefaultInventorySlots bounds the number of distinct stacks a player can carry.
const DefaultInventorySlots = 24

// ItemStack is an amount of a single item type.
type ItemStack struct {
	Type   ItemType
	Amount int
}

// Inventory is an ordered list of stacks with at most one stack per item type.
// Slots count distinct stacks, not units.
type Inventory struct {
	stacks   []ItemStack
	maxSlots int
}

func NewInventory(maxSlots int) *Inventory {
	if maxSlots < 0 {
		maxSlots = 0
	}
	return &Inventory{maxSlots: maxSlots}
}

func (inv *Inventory) MaxSlots() int { return inv.maxSlots }

// Items returns a copy of the stacks in discovery order.
func (inv *Inventory) Items() []ItemStack {
	out := make([]ItemStack, len(inv.stacks))
	copy(out, inv.stacks)
	return out
}

// Add merges amount into the existing stack of that type or opens a new stack.
// It fails when amount is not positive, the type is ItemNone, or a new stack would exceed maxSlots.
func (inv *Inventory) Add(t ItemType, amount int) bool {
	if amount <= 0 || t == ItemNone || !t.Valid() {
		return false
	}
	for i := range inv.stacks {
		if inv.stacks[i].Type == t {
			inv.stacks[i].Amount += amount
			return true
		}
	}
	if len(inv.stacks) >= inv.maxSlots {
		return false
	}
	inv.stacks = append(inv.stacks, ItemStack{Type: t, Amount: amount})
	return true
}

// Remove takes amount units of t. Nothing changes when fewer are held.
// A stack that reaches zero is deleted.
func (inv *Inventory) Remove(t ItemType, amount int) bool {
	if amount <= 0 {
		return false
	}
	for i := range inv.stacks {
		if inv.stacks[i].Type != t {
			continue
		}
		if inv.stacks[i].Amount < amount {
			return false
		}
		inv.stacks[i].Amount -= amount
		if inv.stacks[i].Amount == 0 {
			inv.stacks = append(inv.stacks[:i], inv.stacks[i+1:]...)
		}
		return true
	}
	return false
}

// Count returns the units held of t.
func (inv *Inventory) Count(t ItemType) int {
	for _, s := range inv.stacks {
		if s.Type == t {
			return s.Amount
		}
	}
	return 0
}

// Clone returns an independent copy.
func (inv *Inventory) Clone() *Inventory {
	return &Inventory{stacks: inv.Items(), maxSlots: inv.maxSlots}
}
