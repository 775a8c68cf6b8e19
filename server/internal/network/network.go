package network

import (
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	sessionactor "github.com/zmeiler/Zach-scripty/server/internal/actor"
	"github.com/zmeiler/Zach-scripty/server/internal/actor/messages"
	"github.com/zmeiler/Zach-scripty/server/internal/protocol"
	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

const shutdownGrace = 10 * time.Second

// TCPServer accepts client connections, spawns a PlayerSessionActor for each
// and runs the per-connection read loop.
type TCPServer struct {
	listener    net.Listener
	host        string
	port        int
	actorSystem *actor.ActorSystem
	sessionCfg  sessionactor.SessionConfig

	wg       sync.WaitGroup
	shutdown chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
}

// NewTCPServer creates a new TCPServer. Port 0 picks a free port.
func NewTCPServer(host string, port int, system *actor.ActorSystem, sessionCfg sessionactor.SessionConfig) *TCPServer {
	if sessionCfg.WorldPID == nil || sessionCfg.RoomPID == nil {
		utils.LogFatalf("TCPServer: world and room PIDs are required")
	}
	return &TCPServer{
		host:        host,
		port:        port,
		actorSystem: system,
		sessionCfg:  sessionCfg,
		shutdown:    make(chan struct{}),
		conns:       make(map[net.Conn]struct{}),
	}
}

// Start begins listening for TCP connections.
func (s *TCPServer) Start() error {
	listenAddr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	var err error
	s.listener, err = net.Listen("tcp", listenAddr)
	if err != nil {
		utils.LogErrorf("Error starting TCP server on %s: %v", listenAddr, err)
		return err
	}
	utils.LogInfof("TCP Server started and listening on %s", s.listener.Addr())

	s.wg.Add(1)
	go s.acceptConnections()
	return nil
}

// Addr is the bound listener address, valid after Start.
func (s *TCPServer) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *TCPServer) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				utils.LogInfof("TCP accept loop shutting down.")
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			utils.LogWarnf("Error accepting connection: %v", err)
			continue
		}
		utils.LogDebugf("Accepted new connection from %s", conn.RemoteAddr())

		s.track(conn)
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *TCPServer) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *TCPServer) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConnection spawns the session actor and then decodes client messages
// until the stream ends or turns malformed.
func (s *TCPServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer s.untrack(conn)

	sessionPID := s.actorSystem.Root.Spawn(sessionactor.PropsForSession(s.sessionCfg))
	s.actorSystem.Root.Send(sessionPID, &messages.ClientConnected{Conn: conn})

	dec := protocol.NewDecoder(conn)
	for {
		msg, err := dec.Decode()
		if err != nil {
			s.handleReadError(conn, sessionPID, err)
			return
		}
		s.actorSystem.Root.Send(sessionPID, &messages.ClientMessage{Message: msg})
	}
}

func (s *TCPServer) handleReadError(conn net.Conn, sessionPID *actor.PID, err error) {
	var reason string
	var ne net.Error
	switch {
	case errors.Is(err, io.EOF):
		reason = "EOF"
	case errors.Is(err, net.ErrClosed):
		reason = "closed"
	case errors.As(err, &ne) && ne.Timeout():
		reason = "timeout"
	default:
		// Truncated or malformed stream.
		utils.LogWarnf("[%s] Dropping connection: %v", conn.RemoteAddr(), err)
		reason = err.Error()
	}
	s.actorSystem.Root.Send(sessionPID, &messages.ClientDisconnected{Reason: reason})
	conn.Close()
}

// Stop closes the listener and every open connection, then waits for the
// read loops to exit. Calls after the first are no-ops.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(s.stop)
}

func (s *TCPServer) stop() {
	utils.LogInfof("Stopping TCP Server...")
	close(s.shutdown)
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			utils.LogWarnf("Error closing TCP listener: %v", err)
		}
	}
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		utils.LogInfof("TCP Server stopped.")
	case <-time.After(shutdownGrace):
		utils.LogWarnf("TCP Server shutdown timed out waiting for connection handlers.")
	}
}
