package actor

import (
	"context"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/sirupsen/logrus"

	"github.com/zmeiler/Zach-scripty/server/internal/account"
	"github.com/zmeiler/Zach-scripty/server/internal/actor/messages"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

const saveTimeout = 10 * time.Second

// RecordSaver persists account records. *account.Store implements it.
type RecordSaver interface {
	Save(ctx context.Context, rec *account.Record) error
}

// PlayerDataActor serializes account saves. Failures are logged and dropped.
type PlayerDataActor struct {
	saver  RecordSaver
	saved  int
	failed int
}

func NewPlayerDataActor(saver RecordSaver) actor.Actor {
	return &PlayerDataActor{saver: saver}
}

func (a *PlayerDataActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		utils.LogInfof("[PlayerDataActor %s] Started.", ctx.Self().Id)

	case *actor.Stopped:
		utils.LogInfof("[PlayerDataActor %s] Stopped after %d saves (%d failed).", ctx.Self().Id, a.saved, a.failed)

	case *messages.SavePlayerRequest:
		a.save(msg.Record)

	case *messages.SavePlayersRequest:
		var resp messages.SavePlayersResponse
		for _, rec := range msg.Records {
			if a.save(rec) {
				resp.Saved++
			} else {
				resp.Failed++
			}
		}
		ctx.Respond(&resp)
	}
}

func (a *PlayerDataActor) save(rec *account.Record) bool {
	if rec == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.saver.Save(ctx, rec); err != nil {
		a.failed++
		utils.WithFields(logrus.Fields{"username": rec.Username}).
			Errorf("Failed to save account progress: %v", err)
		return false
	}
	a.saved++
	utils.LogDebugf("[PlayerDataActor] Saved %s at (%d,%d).", rec.Username, rec.X, rec.Y)
	return true
}

// PropsForPlayerData creates actor.Props for PlayerDataActor.
func PropsForPlayerData(saver RecordSaver) *actor.Props {
	return actor.PropsFromProducer(func() actor.Actor { return NewPlayerDataActor(saver) })
}
