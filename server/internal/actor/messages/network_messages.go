package messages

import (
	"net"

	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
)

// ClientConnected hands a freshly accepted connection to its PlayerSessionActor.
type ClientConnected struct {
	Conn net.Conn
}

// ClientDisconnected is sent when the read loop hits EOF, a read error or a
// malformed message.
type ClientDisconnected struct {
	Reason string
}

// ClientMessage carries one decoded message from the read loop.
type ClientMessage struct {
	Message protocol.Message
}

// ForwardToClient carries an already encoded frame to be written to the client.
type ForwardToClient struct {
	Payload []byte
}

// NotInfluenceReceiveTimeout keeps broadcast traffic from resetting a
// session's idle timeout.
func (*ForwardToClient) NotInfluenceReceiveTimeout() {}
