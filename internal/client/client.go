// Package client speaks the game protocol over TCP. It is used by the bsctl
// CLI and the end-to-end tests.
package client

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mcoot/battleship-server/internal/protocol"
)

// ErrClosed is returned once the connection has gone away
var ErrClosed = errors.New("connection closed")

// maxPending bounds how many unclaimed messages are kept for later Await calls
const maxPending = 256

// ServerError is an ERROR message received from the server
type ServerError struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Options configures a Client
type Options struct {
	DialTimeout    time.Duration
	MaxMessageSize uint32
}

// DefaultOptions returns the options used by Dial
func DefaultOptions() Options {
	return Options{
		DialTimeout:    5 * time.Second,
		MaxMessageSize: protocol.DefaultMaxMessageSize,
	}
}

// Client is one protocol connection. Send may be called concurrently; Await
// and the typed helpers are meant for a single goroutine.
type Client struct {
	conn net.Conn

	writeMu sync.Mutex
	tokenMu sync.RWMutex
	token   string

	incoming chan protocol.Message
	done     chan struct{}
	readErr  error

	pending []protocol.Message
}

// Dial connects to addr with DefaultOptions
func Dial(ctx context.Context, addr string) (*Client, error) {
	return DialWithOptions(ctx, addr, DefaultOptions())
}

// DialWithOptions connects to addr and starts the reader goroutine
func DialWithOptions(ctx context.Context, addr string, opts Options) (*Client, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if opts.MaxMessageSize == 0 {
		opts.MaxMessageSize = protocol.DefaultMaxMessageSize
	}

	c := &Client{
		conn:     conn,
		incoming: make(chan protocol.Message, 64),
		done:     make(chan struct{}),
	}
	go c.readLoop(opts.MaxMessageSize)
	return c, nil
}

func (c *Client) readLoop(maxSize uint32) {
	defer close(c.done)
	for {
		h, payload, err := protocol.ReadMessage(c.conn, maxSize)
		if err != nil {
			c.readErr = err
			return
		}
		c.incoming <- protocol.Message{Header: h, Payload: payload}
	}
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Token returns the session token from the last successful login
func (c *Client) Token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

// Send writes one message, stamping the session token when there is one
func (c *Client) Send(t protocol.MessageType, body encoding.BinaryMarshaler) error {
	h, payload, err := protocol.Encode(t, body, time.Now())
	if err != nil {
		return err
	}
	h.SetToken(c.Token())

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteMessage(c.conn, h, payload)
}

// Next returns the next message in arrival order, including any held back by Await
func (c *Client) Next(ctx context.Context) (protocol.Message, error) {
	if len(c.pending) > 0 {
		msg := c.pending[0]
		c.pending = c.pending[1:]
		return msg, nil
	}
	return c.receive(ctx)
}

func (c *Client) receive(ctx context.Context) (protocol.Message, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case <-c.done:
		// drain anything read before the connection closed
		select {
		case msg := <-c.incoming:
			return msg, nil
		default:
		}
		if c.readErr != nil {
			return protocol.Message{}, fmt.Errorf("%w: %w", ErrClosed, c.readErr)
		}
		return protocol.Message{}, ErrClosed
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	}
}

// Await returns the first message of type want. Other messages are kept for
// later calls. An ERROR message ends the wait with a *ServerError.
func (c *Client) Await(ctx context.Context, want protocol.MessageType) (protocol.Message, error) {
	for i, msg := range c.pending {
		if msg.Header.Type == want || msg.Header.Type == protocol.TypeError {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return c.check(msg)
		}
	}

	for {
		msg, err := c.receive(ctx)
		if err != nil {
			return protocol.Message{}, err
		}
		if msg.Header.Type == want || msg.Header.Type == protocol.TypeError {
			return c.check(msg)
		}
		c.hold(msg)
	}
}

func (c *Client) hold(msg protocol.Message) {
	if len(c.pending) >= maxPending {
		c.pending = c.pending[1:]
	}
	c.pending = append(c.pending, msg)
}

func (c *Client) check(msg protocol.Message) (protocol.Message, error) {
	if msg.Header.Type != protocol.TypeError {
		return msg, nil
	}
	var e protocol.ErrorMessage
	if err := e.UnmarshalBinary(msg.Payload); err != nil {
		return msg, err
	}
	return msg, &ServerError{Code: e.Code, Message: e.Message}
}

// request sends a message and decodes the reply of type want into out
func (c *Client) request(ctx context.Context, t protocol.MessageType, body encoding.BinaryMarshaler, want protocol.MessageType, out encoding.BinaryUnmarshaler) error {
	if err := c.Send(t, body); err != nil {
		return err
	}
	msg, err := c.Await(ctx, want)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return out.UnmarshalBinary(msg.Payload)
}
