package model

import (
	"errors"
	"fmt"
)

// ErrUnknownName is returned when a persisted enum name does not match any known value.
var ErrUnknownName = errors.New("unknown enum name")

// Point is a tile coordinate.
type Point struct {
	X int
	Y int
}

// Manhattan returns the 4-directional grid distance between two points.
func Manhattan(x1, y1, x2, y2 int) int {
	return abs(x1-x2) + abs(y1-y2)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// TileType is a terrain kind of the world grid.
type TileType int

const (
	TileGrass TileType = iota
	TileDirt
	TileWater
	TileStone
	TileSand
	TileWoodFloor
	TileLava
	TileBridge
	TileRoad
	TileWall
	TileDoor
	TileLadder
	numTileTypes
)

type tileInfo struct {
	name     string
	walkable bool
	color    uint32
}

var tileTable = [numTileTypes]tileInfo{
	TileGrass:     {"GRASS", true, 0x3f9b3f},
	TileDirt:      {"DIRT", true, 0x8b5a2b},
	TileWater:     {"WATER", false, 0x2f5fd1},
	TileStone:     {"STONE", true, 0x7f7f7f},
	TileSand:      {"SAND", true, 0xd8c36a},
	TileWoodFloor: {"WOOD_FLOOR", true, 0x9b6b3f},
	TileLava:      {"LAVA", false, 0xd13f2f},
	TileBridge:    {"BRIDGE", true, 0x9b7b4f},
	TileRoad:      {"ROAD", true, 0x6b4b2f},
	TileWall:      {"WALL", false, 0x3f3f3f},
	TileDoor:      {"DOOR", true, 0x6b3f1f},
	TileLadder:    {"LADDER", true, 0x8f8f5f},
}

func (t TileType) valid() bool { return t >= 0 && t < numTileTypes }

// Walkable reports whether entities may stand on the tile. Unknown values are walls.
func (t TileType) Walkable() bool {
	if !t.valid() {
		return false
	}
	return tileTable[t].walkable
}

// Color is the 0xRRGGBB display color of the tile.
func (t TileType) Color() uint32 {
	if !t.valid() {
		return tileTable[TileWall].color
	}
	return tileTable[t].color
}

func (t TileType) String() string {
	if !t.valid() {
		return fmt.Sprintf("TileType(%d)", int(t))
	}
	return tileTable[t].name
}

// ItemType identifies an inventory item. The ordinal order is part of the wire protocol.
type ItemType int32

const (
	ItemNone ItemType = iota
	ItemBronzeSword
	ItemBronzeAxe
	ItemBronzePickaxe
	ItemBronzeArmor
	ItemLog
	ItemOre
	ItemFish
	ItemBread
	ItemCoin
	NumItemTypes
)

var itemNames = [NumItemTypes]string{
	"NONE", "BRONZE_SWORD", "BRONZE_AXE", "BRONZE_PICKAXE", "BRONZE_ARMOR",
	"LOG", "ORE", "FISH", "BREAD", "COIN",
}

// Valid reports whether the ordinal is in range.
func (i ItemType) Valid() bool { return i >= 0 && i < NumItemTypes }

func (i ItemType) String() string {
	if !i.Valid() {
		return fmt.Sprintf("ItemType(%d)", int32(i))
	}
	return itemNames[i]
}

// ParseItemType maps a persisted name such as "BRONZE_SWORD" back to its ItemType.
func ParseItemType(name string) (ItemType, error) {
	for i, n := range itemNames {
		if n == name {
			return ItemType(i), nil
		}
	}
	return ItemNone, fmt.Errorf("item %q: %w", name, ErrUnknownName)
}

// SkillType identifies a trainable skill. The ordinal order is the wire order of the skills block.
type SkillType int

const (
	SkillAttack SkillType = iota
	SkillStrength
	SkillDefense
	SkillHitpoints
	SkillMining
	SkillWoodcutting
	SkillFishing
	NumSkills
)

var skillNames = [NumSkills]string{
	"ATTACK", "STRENGTH", "DEFENSE", "HITPOINTS", "MINING", "WOODCUTTING", "FISHING",
}

// AllSkills lists every skill in enumeration order.
func AllSkills() []SkillType {
	out := make([]SkillType, NumSkills)
	for i := range out {
		out[i] = SkillType(i)
	}
	return out
}

func (s SkillType) Valid() bool { return s >= 0 && s < NumSkills }

func (s SkillType) String() string {
	if !s.Valid() {
		return fmt.Sprintf("SkillType(%d)", int(s))
	}
	return skillNames[s]
}

// EntityKind is the kind ordinal carried in entity snapshots.
type EntityKind int32

const (
	EntityPlayer EntityKind = iota
	EntityMonster
	EntityNpc
	EntityResource
	NumEntityKinds
)

func (k EntityKind) Valid() bool { return k >= 0 && k < NumEntityKinds }

func (k EntityKind) String() string {
	switch k {
	case EntityPlayer:
		return "PLAYER"
	case EntityMonster:
		return "MONSTER"
	case EntityNpc:
		return "NPC"
	case EntityResource:
		return "RESOURCE"
	}
	return fmt.Sprintf("EntityKind(%d)", int32(k))
}

// EntityState is the read-only snapshot of one entity sent to clients.
type EntityState struct {
	ID    int32
	Kind  EntityKind
	X     int32
	Y     int32
	HP    int32
	MaxHP int32
	Name  string
}

// ParseSkillType maps a persisted name such as "MINING" back to its SkillType.
func ParseSkillType(name string) (SkillType, error) {
	for i, n := range skillNames {
		if n == name {
			return SkillType(i), nil
		}
	}
	return 0, fmt.Errorf("skill %q: %w", name, ErrUnknownName)
}
