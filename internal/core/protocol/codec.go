package protocol

import (
	"errors"

	"github.com/rotisserie/eris"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrUnknownPacket = errors.New("protocol: unknown packet type")
	ErrEmptyPacket   = errors.New("protocol: empty packet")
)

// MaxDatagramSize bounds an encoded packet so that it fits an unreliable
// datagram.
const MaxDatagramSize = 1200

type envelope struct {
	Type PacketType         `msgpack:"t"`
	Body msgpack.RawMessage `msgpack:"b"`
}

// Encode serializes p into a typed msgpack envelope.
func Encode(p Packet) ([]byte, error) {
	if p == nil {
		return nil, ErrEmptyPacket
	}
	body, err := msgpack.Marshal(p)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to encode %s packet", p.Type())
	}
	data, err := msgpack.Marshal(&envelope{Type: p.Type(), Body: body})
	if err != nil {
		return nil, eris.Wrap(err, "failed to encode envelope")
	}
	return data, nil
}

// Decode parses an envelope produced by Encode.
func Decode(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPacket
	}
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrap(err, "failed to decode envelope")
	}

	p, err := newPacket(env.Type)
	if err != nil {
		return nil, err
	}
	if err := msgpack.Unmarshal(env.Body, p); err != nil {
		return nil, eris.Wrapf(err, "failed to decode %s packet", env.Type)
	}
	return p, nil
}

func newPacket(t PacketType) (Packet, error) {
	switch t {
	case PacketJoin:
		return &JoinPacket{}, nil
	case PacketStart:
		return &StartPacket{}, nil
	case PacketInput:
		return &InputPacket{}, nil
	case PacketConfirm:
		return &ConfirmPacket{}, nil
	case PacketWin:
		return &WinPacket{}, nil
	default:
		return nil, eris.Wrapf(ErrUnknownPacket, "type %d", t)
	}
}
