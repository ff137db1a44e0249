package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
)

func TestLoop_RunsTicksAndTasks(t *testing.T) {
	var ticks atomic.Int32
	l := NewLoop(time.Millisecond, func(context.Context) error {
		ticks.Add(1)
		return errors.New("logged, not fatal")
	}, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var order []int
	finished := make(chan struct{})
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Post(ctx, func(context.Context) error {
			order = append(order, i)
			if i == 2 {
				close(finished)
			}
			return nil
		}))
	}
	<-finished
	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestLoop_ServeDeliversPackets(t *testing.T) {
	local, remote := protocol.Pipe(8)
	l := NewLoop(0, nil, log.NewNop())

	got := make(chan protocol.Packet, 2)
	handle := func(_ context.Context, p protocol.Packet) error {
		got <- p
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, local, handle) }()

	require.NoError(t, remote.Send(ctx, &protocol.WinPacket{Winner: 1}))
	require.NoError(t, remote.Send(ctx, &protocol.StartPacket{Player: 0}))
	assert.Equal(t, &protocol.WinPacket{Winner: 1}, <-got)
	assert.Equal(t, &protocol.StartPacket{Player: 0}, <-got)

	require.NoError(t, remote.Close())
	assert.ErrorIs(t, <-done, protocol.ErrConnectionClosed)
}
