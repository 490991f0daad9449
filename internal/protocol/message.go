package protocol

import (
	"encoding"
	"time"
)

// Message is one decoded frame
type Message struct {
	Header  Header
	Payload []byte
}

// Encode marshals body and returns a header describing it
func Encode(t MessageType, body encoding.BinaryMarshaler, now time.Time) (Header, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = body.MarshalBinary()
		if err != nil {
			return Header{}, nil, err
		}
	}
	return NewHeader(t, uint32(len(payload)), now), payload, nil
}

// Decode unmarshals a message payload into body
func Decode(payload []byte, body encoding.BinaryUnmarshaler) error {
	return body.UnmarshalBinary(payload)
}
