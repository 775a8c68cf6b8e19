package actor

import (
	"github.com/asynkron/protoactor-go/actor"

	"github.com/zmeiler/Zach-scripty/server/internal/actor/messages"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

// RoomActor fans broadcast frames out to every connected session. Sessions
// join on connect, before they log in.
type RoomActor struct {
	roomName string
	members  map[string]*actor.PID // session id -> PlayerSessionActor
}

// NewRoomActor creates a new RoomActor instance.
func NewRoomActor(roomName string) actor.Actor {
	return &RoomActor{
		roomName: roomName,
		members:  make(map[string]*actor.PID),
	}
}

// Receive is the message handling loop for the RoomActor.
func (a *RoomActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		utils.LogInfof("[RoomActor %s - %s] Started.", a.roomName, ctx.Self().Id)

	case *actor.Stopping:
		utils.LogInfof("[RoomActor %s - %s] Stopping with %d members.", a.roomName, ctx.Self().Id, len(a.members))

	case *actor.Stopped:
		utils.LogInfof("[RoomActor %s - %s] Stopped.", a.roomName, ctx.Self().Id)

	case *messages.JoinRoomRequest:
		a.members[msg.SessionID] = msg.SessionPID
		utils.LogDebugf("[RoomActor %s] Session %s joined. Members: %d", a.roomName, msg.SessionID, len(a.members))

	case *messages.LeaveRoomRequest:
		a.handleLeave(msg)

	case *messages.BroadcastToRoom:
		a.broadcast(ctx, msg.Payload)

	case *messages.RoomSizeRequest:
		ctx.Respond(&messages.RoomSize{Members: len(a.members)})

	default:
		utils.LogDebugf("[RoomActor %s - %s] Received unknown message: %T", a.roomName, ctx.Self().Id, msg)
	}
}

func (a *RoomActor) handleLeave(msg *messages.LeaveRoomRequest) {
	pid, ok := a.members[msg.SessionID]
	if !ok {
		return
	}
	if msg.SessionPID != nil && !pid.Equal(msg.SessionPID) {
		utils.LogWarnf("[RoomActor %s] Mismatched PID for leave request of session %s: got %s, stored %s",
			a.roomName, msg.SessionID, msg.SessionPID.Id, pid.Id)
		return
	}
	delete(a.members, msg.SessionID)
	utils.LogDebugf("[RoomActor %s] Session %s left. Members: %d", a.roomName, msg.SessionID, len(a.members))
}

// broadcast sends the same frame to every member.
func (a *RoomActor) broadcast(ctx actor.Context, payload []byte) {
	fwd := &messages.ForwardToClient{Payload: payload}
	for _, pid := range a.members {
		ctx.Send(pid, fwd)
	}
}

// PropsForRoom creates actor.Props for RoomActor.
func PropsForRoom(roomName string) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor { return NewRoomActor(roomName) })
}
