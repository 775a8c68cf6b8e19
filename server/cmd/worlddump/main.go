package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"github.com/zmeiler/Zach-scripty/server/configs"
	"github.com/zmeiler/Zach-scripty/server/internal/game"
	"github.com/zmeiler/Zach-scripty/server/internal/model"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

var glyphs = map[model.TileType]byte{
	model.TileGrass:     '.',
	model.TileDirt:      ',',
	model.TileWater:     '~',
	model.TileStone:     ':',
	model.TileSand:      '_',
	model.TileWoodFloor: '=',
	model.TileLava:      '^',
	model.TileBridge:    'b',
	model.TileRoad:      '+',
	model.TileWall:      '#',
	model.TileDoor:      'D',
	model.TileLadder:    'H',
}

type discard struct{}

func (discard) Broadcast(protocol.Message) {}

func main() {
	configPath := flag.String("config", "config.json", "Path to the configuration file")
	seed := flag.Int64("seed", 0, "World seed (overrides the configuration when non-zero)")
	entities := flag.Bool("entities", true, "Overlay seeded monsters (M), NPCs (N) and resource nodes (R)")
	flag.Parse()

	cfg, err := configs.LoadConfig(*configPath)
	if err != nil {
		utils.LogFatalf("Failed to load configuration: %v", err)
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}

	world := game.Generate(cfg.World.Seed, cfg.World.Width, cfg.World.Height)
	rows := make([][]byte, world.Height())
	for y := range rows {
		rows[y] = make([]byte, world.Width())
		for x := range rows[y] {
			rows[y][x] = glyphs[world.Tile(x, y)]
		}
	}

	mark := func(x, y int, c byte) {
		if y >= 0 && y < len(rows) && x >= 0 && x < len(rows[y]) {
			rows[y][x] = c
		}
	}
	if *entities {
		sim := game.NewSimulation(world, utils.SystemClock{}, rand.New(rand.NewSource(cfg.World.Seed)), discard{})
		for _, m := range sim.Monsters() {
			mark(m.X, m.Y, 'M')
		}
		for _, n := range sim.Npcs() {
			mark(n.X, n.Y, 'N')
		}
		for _, r := range sim.Resources() {
			mark(r.X, r.Y, 'R')
		}
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	fmt.Fprintf(out, "seed %d, %dx%d\n", cfg.World.Seed, world.Width(), world.Height())
	for _, row := range rows {
		out.Write(row)
		out.WriteByte('\n')
	}

	fmt.Fprintln(out, "\nladders:")
	for y := 0; y < world.Height(); y++ {
		for x := 0; x < world.Width(); x++ {
			if dest, ok := world.LadderDestination(x, y); ok {
				fmt.Fprintf(out, "  (%d,%d) -> (%d,%d) in %s\n", x, y, dest.X, dest.Y, world.AreaName(x, y))
			}
		}
	}

	fmt.Fprintln(out, "\nzones:")
	seen := map[string]bool{}
	for x := 0; x < world.Width(); x += game.AreaSize {
		for y := 0; y < world.Height(); y += game.AreaSize {
			name := world.AreaName(x, y)
			if !seen[name] {
				seen[name] = true
				fmt.Fprintf(out, "  %-22s from (%d,%d)\n", name, x, y)
			}
		}
	}
}
