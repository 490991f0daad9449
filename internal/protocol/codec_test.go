package protocol

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CodecSuite struct {
	suite.Suite
	now time.Time
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func (s *CodecSuite) SetupTest() {
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// countingReader records how many bytes were consumed from the underlying reader
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func (s *CodecSuite) TestHeaderSizeIs77() {
	s.Equal(77, HeaderSize)

	h := NewHeader(TypePing, 0, s.now)
	raw, err := h.MarshalBinary()
	s.Require().NoError(err)
	s.Len(raw, 77)
}

func (s *CodecSuite) TestHeaderLayoutIsLittleEndian() {
	h := NewHeader(TypeChallengeSend, 0x01020304, s.now)
	h.SetToken("tok")
	raw, _ := h.MarshalBinary()

	s.Equal(byte(TypeChallengeSend), raw[0])
	s.Equal([]byte{0x04, 0x03, 0x02, 0x01}, raw[1:5])
	s.Equal([]byte("tok"), raw[13:16])
	s.Equal(make([]byte, TokenSize-3), raw[16:])
}

func (s *CodecSuite) TestRoundTrip() {
	payload := []byte("hello world")
	h := NewHeader(TypeChallengeSend, uint32(len(payload)), s.now)
	h.SetToken("session-token")

	var buf bytes.Buffer
	s.Require().NoError(WriteMessage(&buf, h, payload))
	s.Equal(HeaderSize+len(payload), buf.Len())

	got, gotPayload, err := ReadMessage(&buf, DefaultMaxMessageSize)
	s.Require().NoError(err)
	s.Equal(h, got)
	s.Equal("session-token", got.Token())
	s.Equal(s.now.Unix(), got.Timestamp)
	s.Equal(payload, gotPayload)
}

func (s *CodecSuite) TestZeroLengthHasEmptyPayload() {
	var buf bytes.Buffer
	s.Require().NoError(WriteMessage(&buf, NewHeader(TypePing, 0, s.now), nil))

	h, payload, err := ReadMessage(&buf, DefaultMaxMessageSize)
	s.Require().NoError(err)
	s.Equal(TypePing, h.Type)
	s.Empty(payload)
}

func (s *CodecSuite) TestWriteRejectsLengthMismatch() {
	var buf bytes.Buffer
	err := WriteMessage(&buf, NewHeader(TypePing, 4, s.now), []byte("ab"))
	s.ErrorIs(err, ErrLengthMismatch)
	s.Zero(buf.Len())
}

func (s *CodecSuite) TestOversizedLengthRejectedWithoutBuffering() {
	h := NewHeader(TypePlayerList, 1024, s.now)
	raw, _ := h.MarshalBinary()
	stream := append(raw, bytes.Repeat([]byte{0xAA}, 1024)...)

	r := &countingReader{r: bytes.NewReader(stream)}
	_, payload, err := ReadMessage(r, 512)

	s.ErrorIs(err, ErrMessageTooLarge)
	s.Nil(payload)
	s.Equal(HeaderSize, r.n)
}

func (s *CodecSuite) TestTruncatedHeader() {
	h := NewHeader(TypePing, 0, s.now)
	raw, _ := h.MarshalBinary()

	_, _, err := ReadMessage(bytes.NewReader(raw[:40]), DefaultMaxMessageSize)
	s.ErrorIs(err, io.ErrUnexpectedEOF)
}

func (s *CodecSuite) TestPeerClosedBeforeHeader() {
	_, _, err := ReadMessage(bytes.NewReader(nil), DefaultMaxMessageSize)
	s.ErrorIs(err, io.EOF)
}

func (s *CodecSuite) TestTruncatedPayload() {
	h := NewHeader(TypeChallengeSend, 10, s.now)
	raw, _ := h.MarshalBinary()
	stream := append(raw, []byte("12345")...)

	_, _, err := ReadMessage(bytes.NewReader(stream), DefaultMaxMessageSize)
	s.ErrorIs(err, io.ErrUnexpectedEOF)
}

func (s *CodecSuite) TestShortPayloadBlocksUntilComplete() {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload := []byte("0123456789")
	h := NewHeader(TypeChallengeSend, uint32(len(payload)), s.now)
	frame, err := Frame(h, payload)
	s.Require().NoError(err)

	type result struct {
		payload []byte
		err     error
	}
	done := make(chan result, 1)
	go func() {
		_, p, err := ReadMessage(server, DefaultMaxMessageSize)
		done <- result{p, err}
	}()

	_, err = client.Write(frame[:len(frame)-1])
	s.Require().NoError(err)

	select {
	case <-done:
		s.FailNow("read returned before the final byte arrived")
	case <-time.After(50 * time.Millisecond):
	}

	_, err = client.Write(frame[len(frame)-1:])
	s.Require().NoError(err)

	select {
	case r := <-done:
		s.Require().NoError(r.err)
		s.Equal(payload, r.payload)
	case <-time.After(time.Second):
		s.FailNow("read did not complete")
	}
}

func (s *CodecSuite) TestEncodeSetsLength() {
	h, payload, err := Encode(TypeQueueJoin, QueueJoin{TimeLimit: 300}, s.now)
	s.Require().NoError(err)
	s.Equal(TypeQueueJoin, h.Type)
	s.Equal(uint32(QueueJoinSize), h.Length)
	s.Len(payload, QueueJoinSize)
}

func (s *CodecSuite) TestEncodeNilBody() {
	h, payload, err := Encode(TypePong, nil, s.now)
	s.Require().NoError(err)
	s.Zero(h.Length)
	s.Empty(payload)
}

func (s *CodecSuite) TestMessageTypeString() {
	s.Equal("CHALLENGE_SEND", TypeChallengeSend.String())
	s.Equal("UNKNOWN(250)", MessageType(250).String())
}

func (s *CodecSuite) TestErrorsAreDistinct() {
	s.False(errors.Is(ErrMessageTooLarge, ErrShortPayload))
}
