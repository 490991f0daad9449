// Package server accepts TCP connections, runs one worker per connection and
// routes decoded messages to handlers.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/battleship-server/internal/handler"
	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
)

// ErrAlreadyRunning is returned by Start on a running server
var ErrAlreadyRunning = errors.New("server already running")

// Config holds configuration for the game server
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxMessageSize uint32        `yaml:"max_message_size"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns sensible defaults for the game server
func DefaultConfig() Config {
	return Config{
		Host:           "",
		Port:           8888,
		MaxMessageSize: protocol.DefaultMaxMessageSize,
		WriteTimeout:   10 * time.Second,
	}
}

// DisconnectHook runs after a connection has left the live table
type DisconnectHook func(conn *network.Connection)

// Stats is a point-in-time view of server traffic
type Stats struct {
	Connections   int    `json:"connections"`
	TotalAccepted uint64 `json:"total_accepted"`
	BytesSent     uint64 `json:"bytes_sent"`
	BytesReceived uint64 `json:"bytes_received"`
}

// Server owns the listener and the live connection table
type Server struct {
	cfg    Config
	logger *slog.Logger

	handlers []handler.Handler
	hooks    []DisconnectHook

	mu    sync.RWMutex
	conns map[uuid.UUID]*network.Connection

	listener net.Listener
	running  atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	accepted atomic.Uint64
	// traffic of connections that have already closed
	closedSent     atomic.Uint64
	closedReceived atomic.Uint64
}

// New creates a Server. Handlers and hooks must be registered before Start.
func New(cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = protocol.DefaultMaxMessageSize
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Server{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "server")),
		conns:  make(map[uuid.UUID]*network.Connection),
	}
}

// RegisterHandler appends h. Earlier handlers win when several accept a type.
func (s *Server) RegisterHandler(h handler.Handler) {
	s.handlers = append(s.handlers, h)
}

// OnDisconnect adds a hook run for every closed connection
func (s *Server) OnDisconnect(hook DisconnectHook) {
	s.hooks = append(s.hooks, hook)
}

// Start listens and serves in the background until ctx is done or Stop is called
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrAlreadyRunning
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.listener = ln
	s.cancel = cancel
	s.running.Store(true)

	s.logger.Info("game server listening", slog.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()
	return nil
}

// Stop closes the listener and every live connection, then waits for workers
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.shutdown()
	s.wg.Wait()
}

func (s *Server) shutdown() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.logger.Info("stopping game server")
	_ = s.listener.Close()
	for _, conn := range s.snapshot() {
		conn.Disconnect()
	}
}

// IsRunning reports whether the server is accepting connections
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Addr returns the bound listen address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		raw, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", slog.String("error", err.Error()))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		conn := network.NewConnection(raw, network.Config{
			MaxMessageSize: s.cfg.MaxMessageSize,
			WriteTimeout:   s.cfg.WriteTimeout,
		})
		if !s.track(conn) {
			return
		}
		s.accepted.Add(1)

		s.logger.Info("client connected",
			slog.String("conn_id", conn.ID().String()),
			slog.String("remote", conn.RemoteAddr()))

		s.wg.Add(1)
		go s.serve(ctx, conn)
	}
}

// track adds conn to the live table. A connection accepted while the server
// is stopping is closed instead, since shutdown may already have taken its
// snapshot.
func (s *Server) track(conn *network.Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		conn.Disconnect()
		return false
	}
	s.conns[conn.ID()] = conn
	return true
}

// serve is the per-connection worker
func (s *Server) serve(ctx context.Context, conn *network.Connection) {
	defer s.wg.Done()
	defer s.remove(conn)

	for {
		h, payload, err := conn.Receive()
		if err != nil {
			s.logReceiveError(conn, err)
			return
		}
		s.dispatch(ctx, conn, protocol.Message{Header: h, Payload: payload})
	}
}

func (s *Server) logReceiveError(conn *network.Connection, err error) {
	attrs := []any{slog.String("conn_id", conn.ID().String())}
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		s.logger.Debug("client closed connection", attrs...)
	case errors.Is(err, protocol.ErrMessageTooLarge):
		s.logger.Warn("oversized message, dropping client", append(attrs, slog.String("error", err.Error()))...)
	default:
		s.logger.Info("receive failed", append(attrs, slog.String("error", err.Error()))...)
	}
}

func (s *Server) dispatch(ctx context.Context, conn *network.Connection, msg protocol.Message) {
	t := msg.Header.Type
	if t == protocol.TypePing {
		if err := conn.SendMessage(protocol.TypePong, nil); err != nil {
			s.logger.Debug("pong failed", slog.String("error", err.Error()))
		}
		return
	}

	for _, h := range s.handlers {
		if !h.CanHandle(t) {
			continue
		}
		if err := h.Handle(ctx, conn, msg); err != nil {
			s.logger.Warn("handler failed",
				slog.String("conn_id", conn.ID().String()),
				slog.String("type", t.String()),
				slog.String("error", err.Error()))
		}
		return
	}

	s.logger.Warn("no handler for message",
		slog.String("conn_id", conn.ID().String()),
		slog.String("type", t.String()))
}

// remove evicts conn from the live table and runs disconnect hooks
func (s *Server) remove(conn *network.Connection) {
	s.mu.Lock()
	delete(s.conns, conn.ID())
	s.mu.Unlock()

	conn.Disconnect()
	s.closedSent.Add(conn.BytesSent())
	s.closedReceived.Add(conn.BytesReceived())

	for _, hook := range s.hooks {
		hook(conn)
	}

	s.logger.Info("client disconnected",
		slog.String("conn_id", conn.ID().String()),
		slog.Uint64("bytes_sent", conn.BytesSent()),
		slog.Uint64("bytes_received", conn.BytesReceived()))
}

// Broadcast sends one frame to every live connection. The table lock is
// released before any write.
func (s *Server) Broadcast(h protocol.Header, payload []byte) {
	for _, conn := range s.snapshot() {
		if !conn.IsConnected() {
			continue
		}
		if err := conn.Send(h, payload); err != nil {
			s.logger.Debug("broadcast send failed",
				slog.String("conn_id", conn.ID().String()),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Server) snapshot() []*network.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*network.Connection, 0, len(s.conns))
	for _, conn := range s.conns {
		out = append(out, conn)
	}
	return out
}

// ConnectionCount returns the number of live connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// Stats returns traffic totals across live and closed connections
func (s *Server) Stats() Stats {
	st := Stats{
		TotalAccepted: s.accepted.Load(),
		BytesSent:     s.closedSent.Load(),
		BytesReceived: s.closedReceived.Load(),
	}
	for _, conn := range s.snapshot() {
		st.Connections++
		st.BytesSent += conn.BytesSent()
		st.BytesReceived += conn.BytesReceived()
	}
	return st
}
