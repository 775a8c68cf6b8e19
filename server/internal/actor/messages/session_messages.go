package messages

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/zmeiler/Zach-scripty/server/internal/account"
)

// JoinWorld is sent by a PlayerSessionActor once the account has been
// authenticated. The WorldActor answers with JoinResult.
type JoinWorld struct {
	Record     *account.Record
	SessionID  string
	SessionPID *actor.PID
}

// JoinResult reports the entity id assigned to the player, or Err when the
// world refused the login.
type JoinResult struct {
	PlayerID int32
	Err      error
}

// LeaveWorld removes the player and triggers a save of its progress.
type LeaveWorld struct {
	PlayerID int32
}

// SavePlayerRequest is sent to the PlayerDataActor to persist one record.
type SavePlayerRequest struct {
	Record *account.Record
}

// SavePlayersRequest persists every record and is answered with
// SavePlayersResponse once all of them (and every save queued before it) have
// been attempted.
type SavePlayersRequest struct {
	Records []*account.Record
}

type SavePlayersResponse struct {
	Saved  int
	Failed int
}
