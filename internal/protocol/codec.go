package protocol

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMessageTooLarge is returned when a header declares a payload above the limit.
	// The stream cannot be resynchronised afterwards.
	ErrMessageTooLarge = errors.New("message exceeds maximum size")

	// ErrShortPayload is returned when a body is smaller than its fixed layout
	ErrShortPayload = errors.New("payload too short")

	// ErrLengthMismatch is returned when a header's length disagrees with its payload
	ErrLengthMismatch = errors.New("header length does not match payload")
)

// WriteMessage writes the header followed by exactly h.Length payload bytes
func WriteMessage(w io.Writer, h Header, payload []byte) error {
	buf, err := Frame(h, payload)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Frame encodes a header and payload into a single buffer ready for the wire
func Frame(h Header, payload []byte) ([]byte, error) {
	if int(h.Length) != len(payload) {
		return nil, fmt.Errorf("%w: header says %d, payload is %d", ErrLengthMismatch, h.Length, len(payload))
	}
	buf := make([]byte, HeaderSize+len(payload))
	h.put(buf)
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// ReadHeader reads exactly HeaderSize bytes and rejects oversized lengths
func ReadHeader(r io.Reader, maxSize uint32) (Header, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, err
	}

	var h Header
	if err := h.UnmarshalBinary(raw[:]); err != nil {
		return Header{}, err
	}
	if h.Length > maxSize {
		return h, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, h.Length, maxSize)
	}
	return h, nil
}

// ReadMessage reads one framed message. The payload is only allocated once the
// header has passed the size check.
func ReadMessage(r io.Reader, maxSize uint32) (Header, []byte, error) {
	h, err := ReadHeader(r, maxSize)
	if err != nil {
		return h, nil, err
	}
	if h.Length == 0 {
		return h, nil, nil
	}

	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return h, nil, err
	}
	return h, payload, nil
}
