package actor

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/zmeiler/Zach-scripty/server/internal/account"
	"github.com/zmeiler/Zach-scripty/server/internal/actor/messages"
	"github.com/zmeiler/Zach-scripty/server/internal/game"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

// Login failure texts sent in a failed LoginResult.
const (
	msgInvalidPassword    = "Invalid password"
	msgAlreadyLoggedIn    = "Account already logged in"
	msgServiceUnavailable = "Account service unavailable"
)

const authenticateTimeout = 10 * time.Second

// SessionState is the lifecycle of one connection.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticating
	StateActive
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateAuthenticating:
		return "Authenticating"
	case StateActive:
		return "Active"
	case StateDisconnected:
		return "Disconnected"
	}
	return "Unknown"
}

// Authenticator resolves login credentials to an account record.
// *account.Store implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, c account.Credentials) (*account.Record, error)
}

// SessionConfig is shared by every PlayerSessionActor.
type SessionConfig struct {
	Auth     Authenticator
	WorldPID *actor.PID
	RoomPID  *actor.PID

	AuthTimeout  time.Duration // time allowed to complete a login after connecting
	IdleTimeout  time.Duration // time allowed between client messages once logged in
	WriteTimeout time.Duration
}

// PlayerSessionActor manages a single client's connection and game session.
// It owns all writes to the connection.
type PlayerSessionActor struct {
	cfg      SessionConfig
	conn     net.Conn
	state    SessionState
	playerID int32
	username string
	// joining is set while a JoinWorld request is in flight.
	joining bool
	// authTimer fires once, AuthTimeout after the connection arrives.
	authTimer *time.Timer
	authLate  bool
}

// authExpired is delivered by authTimer.
type authExpired struct{}

func (*authExpired) NotInfluenceReceiveTimeout() {}

// NewPlayerSessionActor creates a new PlayerSessionActor instance.
func NewPlayerSessionActor(cfg SessionConfig) actor.Actor {
	return &PlayerSessionActor{cfg: cfg, state: StateConnecting}
}

// Receive is the main message handling loop for the PlayerSessionActor.
func (a *PlayerSessionActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		utils.LogDebugf("[%s] PlayerSessionActor started.", ctx.Self().Id)

	case *actor.Stopping:
		if a.conn != nil {
			a.conn.Close()
		}

	case *actor.Stopped:
		utils.LogDebugf("[%s] PlayerSessionActor stopped: %s", ctx.Self().Id, a.username)

	case *actor.ReceiveTimeout:
		utils.LogInfof("[%s] No client activity in state %v. Disconnecting.", ctx.Self().Id, a.state)
		a.disconnect(ctx, "idle timeout")

	case *authExpired:
		if a.state != StateAuthenticating {
			return
		}
		if a.joining {
			// Settled by the JoinResult.
			a.authLate = true
			return
		}
		utils.LogInfof("[%s] No login within %v. Disconnecting.", ctx.Self().Id, a.cfg.AuthTimeout)
		a.disconnect(ctx, "auth timeout")

	case *messages.ClientConnected:
		a.conn = msg.Conn
		a.state = StateAuthenticating
		utils.LogInfof("[%s] Client connected from %s", ctx.Self().Id, msg.Conn.RemoteAddr())
		ctx.Send(a.cfg.RoomPID, &messages.JoinRoomRequest{SessionID: ctx.Self().Id, SessionPID: ctx.Self()})
		a.armAuthTimer(ctx)

	case *messages.ClientMessage:
		// Once Active, any client message pushes the idle receive timeout back.
		if a.state == StateDisconnected {
			return
		}
		a.handleClientMessage(ctx, msg.Message)

	case *messages.ForwardToClient:
		a.write(ctx, msg.Payload)

	case *messages.JoinResult:
		a.handleJoinResult(ctx, msg)

	case *messages.ClientDisconnected:
		a.disconnect(ctx, msg.Reason)

	default:
		utils.LogDebugf("[%s] PlayerSessionActor %s received unknown message: %T", ctx.Self().Id, a.username, msg)
	}
}

// armAuthTimer starts the login deadline. Client traffic never extends it.
func (a *PlayerSessionActor) armAuthTimer(ctx actor.Context) {
	if a.cfg.AuthTimeout <= 0 || a.authTimer != nil {
		return
	}
	root, self := ctx.ActorSystem().Root, ctx.Self()
	a.authTimer = time.AfterFunc(a.cfg.AuthTimeout, func() {
		root.Send(self, &authExpired{})
	})
}

func (a *PlayerSessionActor) stopAuthTimer() {
	if a.authTimer != nil {
		a.authTimer.Stop()
	}
}

// handleClientMessage dispatches by message kind. Kinds a client should not
// send are ignored.
func (a *PlayerSessionActor) handleClientMessage(ctx actor.Context, msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Login:
		a.handleLogin(ctx, m)
	case *protocol.Logout:
		a.disconnect(ctx, "logout")
	case *protocol.Chat, *protocol.MoveRequest, *protocol.AttackRequest, *protocol.InteractRequest:
		if a.state != StateActive {
			return
		}
		ctx.Send(a.cfg.WorldPID, &messages.PlayerCommand{PlayerID: a.playerID, Command: m})
	}
}

func (a *PlayerSessionActor) handleLogin(ctx actor.Context, m *protocol.Login) {
	if a.state != StateAuthenticating || a.joining {
		return
	}
	authCtx, cancel := context.WithTimeout(context.Background(), authenticateTimeout)
	defer cancel()
	rec, err := a.cfg.Auth.Authenticate(authCtx, account.Credentials{
		Username:   m.Username,
		Password:   m.Password,
		Appearance: m.Appearance,
		Guest:      m.Guest,
	})
	if err != nil {
		reason := msgServiceUnavailable
		if errors.Is(err, account.ErrInvalidPassword) {
			reason = msgInvalidPassword
		} else {
			utils.LogErrorf("[%s] Login for %q failed: %v", ctx.Self().Id, m.Username, err)
		}
		utils.LogInfof("[%s] Login refused for %q: %s", ctx.Self().Id, m.Username, reason)
		a.send(ctx, &protocol.LoginResult{Success: false, Message: reason})
		return
	}
	a.joining = true
	a.username = rec.Username
	ctx.Request(a.cfg.WorldPID, &messages.JoinWorld{
		Record:     rec,
		SessionID:  ctx.Self().Id,
		SessionPID: ctx.Self(),
	})
}

func (a *PlayerSessionActor) handleJoinResult(ctx actor.Context, msg *messages.JoinResult) {
	a.joining = false
	if a.state == StateDisconnected {
		// The client went away while the join was in flight.
		if msg.Err == nil {
			ctx.Send(a.cfg.WorldPID, &messages.LeaveWorld{PlayerID: msg.PlayerID})
		}
		ctx.Stop(ctx.Self())
		return
	}
	if msg.Err != nil {
		reason := msgServiceUnavailable
		if errors.Is(msg.Err, game.ErrAlreadyOnline) {
			reason = msgAlreadyLoggedIn
		}
		a.send(ctx, &protocol.LoginResult{Success: false, Message: reason})
		a.username = ""
		if a.authLate {
			a.disconnect(ctx, "auth timeout")
		}
		return
	}
	a.playerID = msg.PlayerID
	a.state = StateActive
	a.stopAuthTimer()
	if a.cfg.IdleTimeout > 0 {
		ctx.SetReceiveTimeout(a.cfg.IdleTimeout)
	}
	utils.LogInfof("[%s] %s logged in as entity %d", ctx.Self().Id, a.username, a.playerID)
}

func (a *PlayerSessionActor) send(ctx actor.Context, msg protocol.Message) {
	payload, err := protocol.Marshal(msg)
	if err != nil {
		utils.LogErrorf("[%s] Failed to encode %v: %v", ctx.Self().Id, msg.Kind(), err)
		return
	}
	a.write(ctx, payload)
}

// write is best effort; a failed write disconnects this session only.
func (a *PlayerSessionActor) write(ctx actor.Context, payload []byte) {
	if a.conn == nil || a.state == StateDisconnected {
		return
	}
	if a.cfg.WriteTimeout > 0 {
		a.conn.SetWriteDeadline(time.Now().Add(a.cfg.WriteTimeout))
	}
	if _, err := a.conn.Write(payload); err != nil {
		utils.LogInfof("[%s] Error writing to client %s: %v", ctx.Self().Id, a.conn.RemoteAddr(), err)
		a.disconnect(ctx, "write failed")
	}
}

// disconnect is idempotent. It leaves the room and the world, closes the
// connection and stops the actor.
func (a *PlayerSessionActor) disconnect(ctx actor.Context, reason string) {
	if a.state == StateDisconnected {
		return
	}
	wasActive := a.state == StateActive
	a.state = StateDisconnected
	utils.LogInfof("[%s] Disconnecting %s: %s", ctx.Self().Id, a.username, reason)

	a.stopAuthTimer()
	ctx.CancelReceiveTimeout()
	ctx.Send(a.cfg.RoomPID, &messages.LeaveRoomRequest{SessionID: ctx.Self().Id, SessionPID: ctx.Self()})
	if a.conn != nil {
		a.conn.Close()
	}
	if a.joining {
		// Stop once the JoinResult arrives so the player can be removed.
		return
	}
	if wasActive {
		ctx.Send(a.cfg.WorldPID, &messages.LeaveWorld{PlayerID: a.playerID})
	}
	ctx.Stop(ctx.Self())
}

// PropsForSession creates actor.Props for PlayerSessionActor.
func PropsForSession(cfg SessionConfig) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor { return NewPlayerSessionActor(cfg) })
}
