package actor

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/zmeiler/Zach-scripty/server/internal/account"
	"github.com/zmeiler/Zach-scripty/server/internal/actor/messages"
	"github.com/zmeiler/Zach-scripty/server/internal/game"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

// departedTTL outlasts any login that could have read an account before the
// player's last logout was saved.
const departedTTL = 3 * authenticateTimeout

// RecordStager holds a departing player's record until its queued save is
// written. *account.Store implements it.
type RecordStager interface {
	Stage(rec *account.Record)
}

type departure struct {
	rec *account.Record
	at  time.Time
}

// WorldActor owns the Simulation. Every mutation of players, monsters and
// resource nodes happens inside Receive.
type WorldActor struct {
	actorSystem *actor.ActorSystem
	sim         *game.Simulation
	dataPID     *actor.PID
	staging     RecordStager
	// departed keeps recent logouts so a quick reconnect resumes from them.
	departed   map[string]departure
	ticks      int64
	tickBudget int64
}

// NewWorldActor wraps sim. Departing players are staged with staging (may be
// nil) and saved through dataPID.
func NewWorldActor(system *actor.ActorSystem, sim *game.Simulation, dataPID *actor.PID, staging RecordStager, tickBudgetMS int64) actor.Actor {
	return &WorldActor{
		actorSystem: system,
		sim:         sim,
		dataPID:     dataPID,
		staging:     staging,
		departed:    make(map[string]departure),
		tickBudget:  tickBudgetMS,
	}
}

func (a *WorldActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		utils.LogInfof("[WorldActor %s] Started with %d monsters, %d NPCs, %d resource nodes.",
			ctx.Self().Id, len(a.sim.Monsters()), len(a.sim.Npcs()), len(a.sim.Resources()))

	case *actor.Stopping:
		utils.LogInfof("[WorldActor %s] Stopping with %d players online.", ctx.Self().Id, a.sim.PlayerCount())

	case *actor.Stopped:
		utils.LogInfof("[WorldActor %s] Stopped.", ctx.Self().Id)

	case *messages.Tick:
		a.handleTick(msg)

	case *messages.JoinWorld:
		a.handleJoin(ctx, msg)

	case *messages.LeaveWorld:
		a.handleLeave(ctx, msg)

	case *messages.PlayerCommand:
		a.handleCommand(msg)

	case *messages.FlushPlayers:
		records := a.sim.LeaveAll()
		utils.LogInfof("[WorldActor %s] Flushed %d players.", ctx.Self().Id, len(records))
		ctx.Respond(&messages.FlushPlayersResult{Records: records})

	case *messages.WorldStatsRequest:
		ctx.Respond(&messages.WorldStats{Players: a.sim.PlayerCount(), Ticks: a.ticks})

	default:
		utils.LogDebugf("[WorldActor %s] Received unknown message: %T", ctx.Self().Id, msg)
	}
}

func (a *WorldActor) handleTick(msg *messages.Tick) {
	a.ticks++
	if a.tickBudget > 0 && msg.Elapsed.Milliseconds() > 2*a.tickBudget {
		utils.LogWarnf("[WorldActor] Tick %d overran: %v since the previous tick.", a.ticks, msg.Elapsed)
	}
	a.sim.Tick()

	now := time.Now()
	for name, d := range a.departed {
		if now.Sub(d.at) > departedTTL {
			delete(a.departed, name)
		}
	}
}

func (a *WorldActor) handleJoin(ctx actor.Context, msg *messages.JoinWorld) {
	rec := msg.Record
	if d, ok := a.departed[rec.Username]; ok {
		// The login may have read the account before the last logout was saved.
		resumed := d.rec.Clone()
		resumed.Appearance = rec.Appearance
		rec = resumed
	}
	out := &sessionOutbox{root: a.actorSystem.Root, pid: msg.SessionPID}
	p, err := a.sim.Join(rec, msg.SessionID, out)
	if err != nil {
		utils.LogInfof("[WorldActor %s] Refused %s: %v", ctx.Self().Id, rec.Username, err)
		ctx.Respond(&messages.JoinResult{Err: err})
		return
	}
	delete(a.departed, rec.Username)
	ctx.Respond(&messages.JoinResult{PlayerID: p.ID})
}

func (a *WorldActor) handleLeave(ctx actor.Context, msg *messages.LeaveWorld) {
	rec := a.sim.Leave(msg.PlayerID)
	if rec == nil {
		return
	}
	a.departed[rec.Username] = departure{rec: rec, at: time.Now()}
	if a.staging != nil {
		a.staging.Stage(rec)
	}
	if a.dataPID != nil {
		ctx.Send(a.dataPID, &messages.SavePlayerRequest{Record: rec})
	}
}

func (a *WorldActor) handleCommand(msg *messages.PlayerCommand) {
	switch cmd := msg.Command.(type) {
	case *protocol.Chat:
		a.sim.HandleChat(msg.PlayerID, cmd.Text)
	case *protocol.MoveRequest:
		a.sim.HandleMove(msg.PlayerID, int(cmd.X), int(cmd.Y))
	case *protocol.AttackRequest:
		a.sim.HandleAttack(msg.PlayerID, cmd.TargetID)
	case *protocol.InteractRequest:
		a.sim.HandleInteract(msg.PlayerID, int(cmd.X), int(cmd.Y))
	}
}

// PropsForWorld creates actor.Props for WorldActor.
func PropsForWorld(system *actor.ActorSystem, sim *game.Simulation, dataPID *actor.PID, staging RecordStager, tickBudgetMS int64) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor {
		return NewWorldActor(system, sim, dataPID, staging, tickBudgetMS)
	})
}

// sessionOutbox encodes messages for one player and forwards them to its
// PlayerSessionActor.
type sessionOutbox struct {
	root *actor.RootContext
	pid  *actor.PID
}

func (o *sessionOutbox) Send(msg protocol.Message) {
	payload, err := protocol.Marshal(msg)
	if err != nil {
		utils.LogErrorf("Failed to encode %v for %s: %v", msg.Kind(), o.pid.Id, err)
		return
	}
	o.root.Send(o.pid, &messages.ForwardToClient{Payload: payload})
}

// roomBroadcaster encodes a message once and hands the frame to the RoomActor.
type roomBroadcaster struct {
	root *actor.RootContext
	pid  *actor.PID
}

// NewRoomBroadcaster returns a game.Broadcaster that fans out through the room at pid.
func NewRoomBroadcaster(system *actor.ActorSystem, roomPID *actor.PID) game.Broadcaster {
	return &roomBroadcaster{root: system.Root, pid: roomPID}
}

func (b *roomBroadcaster) Broadcast(msg protocol.Message) {
	payload, err := protocol.Marshal(msg)
	if err != nil {
		utils.LogErrorf("Failed to encode broadcast %v: %v", msg.Kind(), err)
		return
	}
	b.root.Send(b.pid, &messages.BroadcastToRoom{Payload: payload})
}
