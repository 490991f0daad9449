// Package network wraps a TCP socket with framed send/receive and the
// authentication state of the player behind it.
package network

import (
	"encoding"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/battleship-server/internal/model"
	"github.com/mcoot/battleship-server/internal/protocol"
)

// ErrNotConnected is returned when sending on a closed connection
var ErrNotConnected = errors.New("connection closed")

// Config holds per-connection limits
type Config struct {
	MaxMessageSize uint32
	// WriteTimeout bounds a single Send. Zero disables the deadline.
	WriteTimeout time.Duration
}

// DefaultConfig returns default connection settings
func DefaultConfig() Config {
	return Config{
		MaxMessageSize: protocol.DefaultMaxMessageSize,
		WriteTimeout:   10 * time.Second,
	}
}

// Connection owns one client socket. Receive is called only by the worker
// that owns the connection; Send may be called from any goroutine.
type Connection struct {
	id          uuid.UUID
	conn        net.Conn
	cfg         Config
	connectedAt time.Time

	connected     atomic.Bool
	authenticated atomic.Bool
	userID        atomic.Uint64
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64

	tokenMu sync.RWMutex
	token   string

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewConnection wraps an accepted socket
func NewConnection(conn net.Conn, cfg Config) *Connection {
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = protocol.DefaultMaxMessageSize
	}
	c := &Connection{
		id:          uuid.New(),
		conn:        conn,
		cfg:         cfg,
		connectedAt: time.Now(),
	}
	c.connected.Store(true)
	return c
}

// ID returns the identifier used to key the live-connection table
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// RemoteAddr returns the peer address
func (c *Connection) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// ConnectedAt returns when the connection was accepted
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// Send writes one framed message. Partial writes are continued and EINTR is
// retried; any other failure closes the connection.
func (c *Connection) Send(h protocol.Header, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	buf, err := protocol.Frame(h, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}

	written := 0
	for written < len(buf) {
		n, err := c.conn.Write(buf[written:])
		written += n
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			c.Disconnect()
			return fmt.Errorf("send %s: %w", h.Type, err)
		}
		if n == 0 {
			c.Disconnect()
			return fmt.Errorf("send %s: %w", h.Type, ErrNotConnected)
		}
	}

	c.bytesSent.Add(uint64(written))
	return nil
}

// SendMessage encodes body and sends it with the current time in the header
func (c *Connection) SendMessage(t protocol.MessageType, body encoding.BinaryMarshaler) error {
	h, payload, err := protocol.Encode(t, body, time.Now())
	if err != nil {
		return err
	}
	return c.Send(h, payload)
}

// Receive blocks for one framed message. Any failure, including an orderly
// close by the peer, leaves the connection disconnected.
func (c *Connection) Receive() (protocol.Header, []byte, error) {
	h, payload, err := protocol.ReadMessage(c.conn, c.cfg.MaxMessageSize)
	if err != nil {
		c.Disconnect()
		return h, nil, err
	}
	c.bytesReceived.Add(uint64(protocol.HeaderSize + len(payload)))
	return h, payload, nil
}

// Authenticate binds the connection to a user. Later calls overwrite the identity.
func (c *Connection) Authenticate(userID model.UserID, token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
	c.userID.Store(uint64(userID))
	c.authenticated.Store(true)
}

// Deauthenticate clears the bound identity after a logout
func (c *Connection) Deauthenticate() {
	c.authenticated.Store(false)
	c.userID.Store(0)
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}

// Disconnect closes the socket. Safe to call more than once.
func (c *Connection) Disconnect() {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		_ = c.conn.Close()
	})
}

func (c *Connection) IsConnected() bool {
	return c.connected.Load()
}

func (c *Connection) IsAuthenticated() bool {
	return c.authenticated.Load()
}

func (c *Connection) UserID() model.UserID {
	return model.UserID(c.userID.Load())
}

func (c *Connection) SessionToken() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

func (c *Connection) BytesSent() uint64 {
	return c.bytesSent.Load()
}

func (c *Connection) BytesReceived() uint64 {
	return c.bytesReceived.Load()
}
