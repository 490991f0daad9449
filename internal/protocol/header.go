// Package protocol implements the binary framing used between game clients
// and the server: a fixed 77 byte header followed by a typed payload.
// All multi-byte integers are little-endian.
package protocol

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	// HeaderSize is the encoded size of Header on the wire
	HeaderSize = 1 + 4 + 8 + TokenSize

	// TokenSize is the fixed width of the session token field
	TokenSize = 64

	// DefaultMaxMessageSize bounds the payload length a receiver accepts
	DefaultMaxMessageSize uint32 = 64 * 1024
)

// MessageType identifies the payload that follows a header.
// Numeric values are fixed by the wire format.
type MessageType uint8

const (
	TypeAuthRegister MessageType = 1
	TypeAuthLogin    MessageType = 2
	TypeAuthResponse MessageType = 3
	TypeAuthLogout   MessageType = 4

	TypePlayerListRequest  MessageType = 10
	TypePlayerList         MessageType = 11
	TypePlayerStatusUpdate MessageType = 12

	TypeChallengeSend     MessageType = 20
	TypeChallengeReceived MessageType = 21
	TypeChallengeResponse MessageType = 22
	TypeChallengeResult   MessageType = 23
	TypeChallengeCancel   MessageType = 24

	TypeMatchStart MessageType = 30

	TypeQueueJoin          MessageType = 40
	TypeQueueLeave         MessageType = 41
	TypeQueueStatusRequest MessageType = 42
	TypeQueueStatus        MessageType = 43

	TypeError MessageType = 90

	TypePing MessageType = 101
	TypePong MessageType = 102
)

var typeNames = map[MessageType]string{
	TypeAuthRegister:       "AUTH_REGISTER",
	TypeAuthLogin:          "AUTH_LOGIN",
	TypeAuthResponse:       "AUTH_RESPONSE",
	TypeAuthLogout:         "AUTH_LOGOUT",
	TypePlayerListRequest:  "PLAYER_LIST_REQUEST",
	TypePlayerList:         "PLAYER_LIST",
	TypePlayerStatusUpdate: "PLAYER_STATUS_UPDATE",
	TypeChallengeSend:      "CHALLENGE_SEND",
	TypeChallengeReceived:  "CHALLENGE_RECEIVED",
	TypeChallengeResponse:  "CHALLENGE_RESPONSE",
	TypeChallengeResult:    "CHALLENGE_RESULT",
	TypeChallengeCancel:    "CHALLENGE_CANCEL",
	TypeMatchStart:         "MATCH_START",
	TypeQueueJoin:          "QUEUE_JOIN",
	TypeQueueLeave:         "QUEUE_LEAVE",
	TypeQueueStatusRequest: "QUEUE_STATUS_REQUEST",
	TypeQueueStatus:        "QUEUE_STATUS",
	TypeError:              "ERROR",
	TypePing:               "PING",
	TypePong:               "PONG",
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// Header precedes every payload on the wire
type Header struct {
	Type         MessageType
	Length       uint32
	Timestamp    int64
	SessionToken [TokenSize]byte
}

// NewHeader builds a header for a payload of the given length
func NewHeader(t MessageType, length uint32, now time.Time) Header {
	return Header{
		Type:      t,
		Length:    length,
		Timestamp: now.Unix(),
	}
}

// SetToken copies token into the fixed-width token field, truncating if needed
func (h *Header) SetToken(token string) {
	h.SessionToken = [TokenSize]byte{}
	copy(h.SessionToken[:], fitString(token, TokenSize))
}

// Token returns the session token with padding removed
func (h Header) Token() string {
	return trimNull(h.SessionToken[:])
}

// MarshalBinary encodes the header into exactly HeaderSize bytes
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf, nil
}

func (h Header) put(buf []byte) {
	buf[0] = byte(h.Type)
	binary.LittleEndian.PutUint32(buf[1:5], h.Length)
	binary.LittleEndian.PutUint64(buf[5:13], uint64(h.Timestamp))
	copy(buf[13:HeaderSize], h.SessionToken[:])
}

// UnmarshalBinary decodes a header from the first HeaderSize bytes of data
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, got %d", ErrShortPayload, HeaderSize, len(data))
	}
	h.Type = MessageType(data[0])
	h.Length = binary.LittleEndian.Uint32(data[1:5])
	h.Timestamp = int64(binary.LittleEndian.Uint64(data[5:13]))
	copy(h.SessionToken[:], data[13:HeaderSize])
	return nil
}
