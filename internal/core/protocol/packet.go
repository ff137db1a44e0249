package protocol

import (
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/rollback"
)

// PacketType tags the body of an envelope on the wire.
type PacketType uint8

const (
	PacketJoin PacketType = iota + 1
	PacketStart
	PacketInput
	PacketConfirm
	PacketWin
)

func (t PacketType) String() string {
	switch t {
	case PacketJoin:
		return "join"
	case PacketStart:
		return "start"
	case PacketInput:
		return "input"
	case PacketConfirm:
		return "confirm"
	case PacketWin:
		return "win"
	default:
		return "unknown"
	}
}

type Packet interface {
	Type() PacketType
}

// JoinPacket is the first packet a peer sends to the authority.
type JoinPacket struct {
	Name string `msgpack:"name"`
}

// StartPacket assigns the participant number of the receiving peer.
type StartPacket struct {
	Player  game.PlayerNumber `msgpack:"player"`
	Session string            `msgpack:"session"`
}

// InputPacket carries a window of inputs of one participant. Inputs[i] is
// the input of Frame-i.
type InputPacket struct {
	Player game.PlayerNumber `msgpack:"player"`
	Frame  game.Frame        `msgpack:"frame"`
	Inputs []byte            `msgpack:"inputs"`
}

// NewInputPacket builds a packet from a newest-first input window.
func NewInputPacket(player game.PlayerNumber, frame game.Frame, window []game.PlayerInput) *InputPacket {
	inputs := make([]byte, len(window))
	for i, in := range window {
		inputs[i] = byte(in)
	}
	return &InputPacket{Player: player, Frame: frame, Inputs: inputs}
}

// Each calls fn for every carried input, newest first. Frames before 0 are
// never produced.
func (p *InputPacket) Each(fn func(frame game.Frame, input game.PlayerInput)) {
	for i, in := range p.Inputs {
		if game.Frame(i) > p.Frame {
			return
		}
		fn(p.Frame-game.Frame(i), game.PlayerInput(in))
	}
}

// ConfirmPacket is the authority's validation of Frame with the checksum of
// every participant body.
type ConfirmPacket struct {
	Frame     game.Frame                             `msgpack:"frame"`
	Checksums [game.MaxPlayers]rollback.PhysicsState `msgpack:"checksums"`
}

type WinPacket struct {
	Winner game.PlayerNumber `msgpack:"winner"`
}

func (*JoinPacket) Type() PacketType    { return PacketJoin }
func (*StartPacket) Type() PacketType   { return PacketStart }
func (*InputPacket) Type() PacketType   { return PacketInput }
func (*ConfirmPacket) Type() PacketType { return PacketConfirm }
func (*WinPacket) Type() PacketType     { return PacketWin }
