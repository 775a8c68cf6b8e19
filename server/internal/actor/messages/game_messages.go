package messages

import (
	"time"

	"github.com/zmeiler/Zach-scripty/server/internal/account"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
)

// Tick advances the simulation by one step.
type Tick struct {
	Elapsed time.Duration
}

// PlayerCommand routes a gameplay request (chat, move, attack, interact) from
// a logged-in session to the WorldActor.
type PlayerCommand struct {
	PlayerID int32
	Command  protocol.Message
}

// FlushPlayers removes every online player from the world. It is answered with
// FlushPlayersResult carrying their records.
type FlushPlayers struct{}

type FlushPlayersResult struct {
	Records []*account.Record
}

// WorldStatsRequest is answered with WorldStats.
type WorldStatsRequest struct{}

type WorldStats struct {
	Players int
	Ticks   int64
}
