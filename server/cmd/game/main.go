package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"github.com/zmeiler/Zach-scripty/server/configs"
	"github.com/zmeiler/Zach-scripty/server/internal/account"
	internalActor "github.com/zmeiler/Zach-scripty/server/internal/actor" // Renamed to avoid conflict with protoactor's actor package
	"github.com/zmeiler/Zach-scripty/server/internal/actor/messages"
	"github.com/zmeiler/Zach-scripty/server/internal/game"
	"github.com/zmeiler/Zach-scripty/server/internal/network"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

const (
	tickPoll          = 20 * time.Millisecond
	memoryCacheBytes  = 64 << 20
	shutdownSaveGrace = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "config.json", "Path to the configuration file")
	flag.Parse()

	// --- Configuration Loading ---
	configs.CreateExampleConfigFile(*configPath)
	cfg, err := configs.LoadConfig(*configPath)
	if err != nil {
		// Our logger is not configured yet.
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// --- Initialize Logger ---
	logCloser := utils.ConfigureLogger(utils.LogOptions{
		Level:      cfg.Server.LogLevel,
		Format:     cfg.Server.LogFormat,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()
	utils.LogInfof("Starting Oakridge world server. Port: %d, seed: %d, world: %dx%d, accounts: %s, cache: %s",
		cfg.Server.TCPPort, cfg.World.Seed, cfg.World.Width, cfg.World.Height, cfg.Accounts.Backend, cfg.Cache.Backend)

	// --- Account Store ---
	store, err := openAccountStore(context.Background(), cfg)
	if err != nil {
		utils.LogFatalf("Failed to open account store: %v", err)
	}
	defer store.Close()

	// --- Initialize Actor System ---
	actorSystem := actor.NewActorSystem()

	dataPID, err := actorSystem.Root.SpawnNamed(internalActor.PropsForPlayerData(store), "player-data")
	if err != nil {
		utils.LogFatalf("Failed to spawn PlayerDataActor: %v", err)
	}
	roomPID, err := actorSystem.Root.SpawnNamed(internalActor.PropsForRoom("world"), "room-world")
	if err != nil {
		utils.LogFatalf("Failed to spawn RoomActor: %v", err)
	}

	world := game.Generate(cfg.World.Seed, cfg.World.Width, cfg.World.Height)
	sim := game.NewSimulation(world, utils.SystemClock{}, rand.New(rand.NewSource(time.Now().UnixNano())),
		internalActor.NewRoomBroadcaster(actorSystem, roomPID))
	tickPeriod := time.Duration(cfg.World.TickMillis) * time.Millisecond
	worldPID, err := actorSystem.Root.SpawnNamed(
		internalActor.PropsForWorld(actorSystem, sim, dataPID, store, tickPeriod.Milliseconds()), "world")
	if err != nil {
		utils.LogFatalf("Failed to spawn WorldActor: %v", err)
	}

	// --- Tick Driver ---
	stopTicks := make(chan struct{})
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		utils.Ticker(tickPeriod, tickPoll, stopTicks, func(elapsed time.Duration) {
			actorSystem.Root.Send(worldPID, &messages.Tick{Elapsed: elapsed})
		})
	}()

	// --- Initialize Network Server ---
	tcpServer := network.NewTCPServer(cfg.Server.Host, cfg.Server.TCPPort, actorSystem, internalActor.SessionConfig{
		Auth:         store,
		WorldPID:     worldPID,
		RoomPID:      roomPID,
		AuthTimeout:  time.Duration(cfg.Server.AuthTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	})
	if err := tcpServer.Start(); err != nil {
		utils.LogFatalf("Failed to start TCP server: %v", err)
	}
	utils.LogInfof("Oakridge world server running. Press Ctrl+C to shut down.")

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.LogInfof("Shutting down...")

	tcpServer.Stop()
	close(stopTicks)
	<-tickerDone

	// Players whose disconnect has not reached the world yet are saved here.
	saveRemaining(actorSystem, worldPID, dataPID)

	for _, pid := range []*actor.PID{worldPID, roomPID, dataPID} {
		if err := actorSystem.Root.StopFuture(pid).Wait(); err != nil {
			utils.LogWarnf("Error stopping %s: %v", pid.Id, err)
		}
	}
	actorSystem.Shutdown()
	utils.LogInfof("Oakridge world server shut down gracefully.")
}

func saveRemaining(system *actor.ActorSystem, worldPID, dataPID *actor.PID) {
	res, err := system.Root.RequestFuture(worldPID, &messages.FlushPlayers{}, shutdownSaveGrace).Result()
	if err != nil {
		utils.LogErrorf("Failed to flush players: %v", err)
		return
	}
	records := res.(*messages.FlushPlayersResult).Records
	res, err = system.Root.RequestFuture(dataPID, &messages.SavePlayersRequest{Records: records}, shutdownSaveGrace).Result()
	if err != nil {
		utils.LogErrorf("Failed to save players: %v", err)
		return
	}
	saved := res.(*messages.SavePlayersResponse)
	utils.LogInfof("Saved %d players on shutdown (%d failed).", saved.Saved, saved.Failed)
}

// openAccountStore builds the persistence tier from configuration: a file or
// Postgres backend, optionally fronted by an in-process or Redis cache.
func openAccountStore(ctx context.Context, cfg *configs.Config) (*account.Store, error) {
	var backend account.Backend
	switch cfg.Accounts.Backend {
	case "file":
		fb, err := account.NewFileBackend(cfg.Accounts.Dir)
		if err != nil {
			return nil, err
		}
		backend = fb
	case "postgres":
		pb, err := account.NewPostgresBackend(ctx, cfg.Database.PostgresURL)
		if err != nil {
			return nil, err
		}
		backend = pb
	default:
		return nil, fmt.Errorf("unknown accounts backend %q", cfg.Accounts.Backend)
	}

	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	var cache account.Cache
	switch cfg.Cache.Backend {
	case "", "none":
	case "memory":
		mc, err := account.NewMemoryCache(memoryCacheBytes, ttl)
		if err != nil {
			backend.Close()
			return nil, err
		}
		cache = mc
	case "redis":
		rc, err := account.NewRedisCache(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, ttl)
		if err != nil {
			backend.Close()
			return nil, err
		}
		cache = rc
	default:
		backend.Close()
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if cache != nil {
		backend = account.NewCachedBackend(backend, cache)
	}
	return account.NewStore(backend), nil
}
