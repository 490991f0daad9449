package testutil

import (
	"encoding"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcoot/battleship-server/internal/network"
	"github.com/mcoot/battleship-server/internal/protocol"
)

// Peer is the client end of an in-memory connection. Frames written by the
// server side are decoded and queued on Messages.
type Peer struct {
	conn     net.Conn
	Messages chan protocol.Message
}

// NewPipeConn returns a server-side Connection wired to a Peer
func NewPipeConn(t testing.TB) (*network.Connection, *Peer) {
	t.Helper()

	server, client := net.Pipe()
	conn := network.NewConnection(server, network.DefaultConfig())
	peer := &Peer{
		conn:     client,
		Messages: make(chan protocol.Message, 64),
	}

	go func() {
		for {
			h, payload, err := protocol.ReadMessage(client, protocol.DefaultMaxMessageSize)
			if err != nil {
				return
			}
			peer.Messages <- protocol.Message{Header: h, Payload: payload}
		}
	}()

	t.Cleanup(func() {
		conn.Disconnect()
		_ = client.Close()
	})
	return conn, peer
}

// Expect waits for the next message and checks its type
func (p *Peer) Expect(t testing.TB, want protocol.MessageType) protocol.Message {
	t.Helper()
	select {
	case msg := <-p.Messages:
		require.Equal(t, want, msg.Header.Type, "unexpected message type")
		return msg
	case <-time.After(time.Second):
		require.FailNow(t, "timed out waiting for message", "want %s", want)
		return protocol.Message{}
	}
}

// ExpectInto waits for a message of type want and decodes it into body
func (p *Peer) ExpectInto(t testing.TB, want protocol.MessageType, body encoding.BinaryUnmarshaler) {
	t.Helper()
	msg := p.Expect(t, want)
	require.NoError(t, body.UnmarshalBinary(msg.Payload))
}

// ExpectNone asserts that nothing arrives within wait
func (p *Peer) ExpectNone(t testing.TB, wait time.Duration) {
	t.Helper()
	select {
	case msg := <-p.Messages:
		require.FailNow(t, "unexpected message", "got %s", msg.Header.Type)
	case <-time.After(wait):
	}
}

// Send writes a frame from the client side
func (p *Peer) Send(t testing.TB, typ protocol.MessageType, body encoding.BinaryMarshaler) {
	t.Helper()
	h, payload, err := protocol.Encode(typ, body, time.Now())
	require.NoError(t, err)
	require.NoError(t, protocol.WriteMessage(p.conn, h, payload))
}

// Close closes the client side
func (p *Peer) Close() {
	_ = p.conn.Close()
}

// RecordingBroadcaster captures broadcast frames instead of sending them
type RecordingBroadcaster struct {
	mu       sync.Mutex
	messages []protocol.Message
}

func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{}
}

func (b *RecordingBroadcaster) Broadcast(h protocol.Header, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, protocol.Message{Header: h, Payload: payload})
}

// StatusUpdates decodes every captured PLAYER_STATUS_UPDATE in order
func (b *RecordingBroadcaster) StatusUpdates() []protocol.PlayerInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []protocol.PlayerInfo
	for _, msg := range b.messages {
		if msg.Header.Type != protocol.TypePlayerStatusUpdate {
			continue
		}
		var info protocol.PlayerInfo
		if err := info.UnmarshalBinary(msg.Payload); err == nil {
			out = append(out, info)
		}
	}
	return out
}

// Reset discards captured frames
func (b *RecordingBroadcaster) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}
