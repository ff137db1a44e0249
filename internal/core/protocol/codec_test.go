package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/rollback"
)

func TestCodec_InputPacketFitsDatagram(t *testing.T) {
	window := make([]game.PlayerInput, 50)
	for i := range window {
		window[i] = game.InputLeft | game.InputShoot
	}
	data, err := Encode(NewInputPacket(1, 4000, window))
	require.NoError(t, err)
	assert.Less(t, len(data), MaxDatagramSize)

	p, err := Decode(data)
	require.NoError(t, err)
	in, ok := p.(*InputPacket)
	require.True(t, ok)
	assert.Equal(t, game.PlayerNumber(1), in.Player)
	assert.Equal(t, game.Frame(4000), in.Frame)
	assert.Len(t, in.Inputs, 50)
}

func TestCodec_ConfirmPacket(t *testing.T) {
	sent := &ConfirmPacket{Frame: 30, Checksums: [game.MaxPlayers]rollback.PhysicsState{7, 0xFFFFFFFF}}
	data, err := Encode(sent)
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sent, p)
}

func TestCodec_Errors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyPacket)

	_, err = Encode(nil)
	assert.ErrorIs(t, err, ErrEmptyPacket)

	data, err := msgpack.Marshal(&envelope{Type: 99})
	require.NoError(t, err)
	_, err = Decode(data)
	assert.True(t, eris.Is(err, ErrUnknownPacket))

	_, err = Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestInputPacket_EachStopsAtFrameZero(t *testing.T) {
	p := NewInputPacket(0, 2, []game.PlayerInput{game.InputUp, game.InputDown, game.InputLeft, game.InputRight})

	var frames []game.Frame
	var inputs []game.PlayerInput
	p.Each(func(f game.Frame, in game.PlayerInput) {
		frames = append(frames, f)
		inputs = append(inputs, in)
	})
	assert.Equal(t, []game.Frame{2, 1, 0}, frames)
	assert.Equal(t, []game.PlayerInput{game.InputUp, game.InputDown, game.InputLeft}, inputs)
}

func TestPipe(t *testing.T) {
	a, b := Pipe(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.Send(ctx, &WinPacket{Winner: 1}))
	p, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, &WinPacket{Winner: 1}, p)

	require.NoError(t, b.Close())
	_, err = a.Receive(ctx)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.ErrorIs(t, a.Send(ctx, &JoinPacket{}), ErrConnectionClosed)
}
