package messages

import "github.com/asynkron/protoactor-go/actor"

// JoinRoomRequest adds a session to the broadcast room.
type JoinRoomRequest struct {
	SessionID  string
	SessionPID *actor.PID
}

// LeaveRoomRequest removes a session from the broadcast room.
type LeaveRoomRequest struct {
	SessionID  string
	SessionPID *actor.PID
}

// BroadcastToRoom fans an encoded frame out to every member. Payload is
// shared between recipients and must not be modified.
type BroadcastToRoom struct {
	Payload []byte
}

// RoomSizeRequest asks the room for its member count; answered with RoomSize.
type RoomSizeRequest struct{}

type RoomSize struct {
	Members int
}
