package game

import (
	"math"
	"math/rand"

	"github.com/zmeiler/Zach-scripty/server/internal/model"
)

// AreaSize is the edge length of one named zone block.
const AreaSize = 20

var areaNames = [...]string{
	"Oakridge Village", "Mosswood", "Glimmer Lake", "Ashen Mine", "Stonegate Keep",
	"Cavern of Echoes", "Briar Hollow", "Wandering Plains", "Sunlit Meadow", "Old Watchtower",
	"Fogbound Marsh", "Windbreak Ridge", "Silverbrook", "Redleaf Grove", "Moonlit Crossing",
	"Frostfield", "Bandit Camp", "Sage Hill", "Driftwood Shore", "Thornpass",
	"Deeproot Forest", "Ember Trail", "Riverbend", "Cragspire", "Dawnfield",
	"Wildwood", "Seafarer Cove", "Ancient Ruins", "Whispering Fen", "Highstone Gate",
}

// World is the generated tile grid. It is immutable once Generate returns and
// may be read from any goroutine.
type World struct {
	width, height int
	tiles         []model.TileType // column-major: x*height + y
	areaCols      int
	areaRows      int
	areas         []string
	castleLadder  model.Point
	dungeonLadder model.Point
}

// Generate builds the world deterministically from seed.
func Generate(seed int64, width, height int) *World {
	w := &World{
		width:  width,
		height: height,
		tiles:  make([]model.TileType, width*height),
	}
	rng := rand.New(rand.NewSource(seed))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			noise := (math.Sin(float64(x)*0.12) + math.Cos(float64(y)*0.11) + rng.Float64()*0.4) / 2.4
			tile := model.TileGrass
			switch {
			case noise < -0.25:
				tile = model.TileWater
			case noise < -0.05:
				tile = model.TileSand
			case noise > 0.55:
				tile = model.TileStone
			case noise > 0.3:
				tile = model.TileDirt
			}
			w.set(x, y, tile)
		}
	}
	for x := 10; x < width-10; x++ {
		w.set(x, height/2, model.TileRoad)
	}
	for y := 10; y < height-10; y++ {
		w.set(width/2, y, model.TileRoad)
	}

	w.castleLadder = w.stampStructure(85, 25, 12, 10, model.TileWoodFloor)
	w.set(85+12/2, 25+10-1, model.TileDoor)
	w.dungeonLadder = w.stampStructure(90, 95, 10, 8, model.TileStone)

	w.buildAreas()
	return w
}

// stampStructure draws a walled rectangle with the given floor and a ladder at
// its center, which it returns. Cells outside the grid are skipped.
func (w *World) stampStructure(sx, sy, width, height int, floor model.TileType) model.Point {
	for x := sx; x < sx+width; x++ {
		for y := sy; y < sy+height; y++ {
			if x == sx || y == sy || x == sx+width-1 || y == sy+height-1 {
				w.set(x, y, model.TileWall)
			} else {
				w.set(x, y, floor)
			}
		}
	}
	ladder := model.Point{X: sx + width/2, Y: sy + height/2}
	w.set(ladder.X, ladder.Y, model.TileLadder)
	return ladder
}

func (w *World) buildAreas() {
	w.areaCols = max(1, w.width/AreaSize)
	w.areaRows = max(1, w.height/AreaSize)
	w.areas = make([]string, w.areaCols*w.areaRows)
	for i := range w.areas {
		w.areas[i] = areaNames[i%len(areaNames)]
	}
}

func (w *World) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < w.width && y < w.height
}

func (w *World) set(x, y int, t model.TileType) {
	if w.inBounds(x, y) {
		w.tiles[x*w.height+y] = t
	}
}

func (w *World) Width() int  { return w.width }
func (w *World) Height() int { return w.height }

// Tile returns the tile at (x, y); outside the grid it is a wall.
func (w *World) Tile(x, y int) model.TileType {
	if !w.inBounds(x, y) {
		return model.TileWall
	}
	return w.tiles[x*w.height+y]
}

func (w *World) Walkable(x, y int) bool {
	return w.Tile(x, y).Walkable()
}

// AreaName names the zone block containing (x, y), clamped to the grid.
func (w *World) AreaName(x, y int) string {
	ax := clamp(x/AreaSize, 0, w.areaCols-1)
	ay := clamp(y/AreaSize, 0, w.areaRows-1)
	return w.areas[ax*w.areaRows+ay]
}

// LadderDestination returns the paired ladder when (x, y) is one of the two anchors.
func (w *World) LadderDestination(x, y int) (model.Point, bool) {
	p := model.Point{X: x, Y: y}
	switch p {
	case w.castleLadder:
		return w.dungeonLadder, true
	case w.dungeonLadder:
		return w.castleLadder, true
	}
	return model.Point{}, false
}

var neighborOffsets = [...]model.Point{{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1}}

// Neighbors returns the walkable 4-neighbors of (x, y).
func (w *World) Neighbors(x, y int) []model.Point {
	out := make([]model.Point, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		nx, ny := x+d.X, y+d.Y
		if w.Walkable(nx, ny) {
			out = append(out, model.Point{X: nx, Y: ny})
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
