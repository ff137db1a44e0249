package session

import (
	"context"
	"errors"
	"time"

	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
	"golang.org/x/sync/errgroup"
)

// Task runs on the loop goroutine.
type Task func(ctx context.Context) error

// Handler consumes one received packet on the loop goroutine.
type Handler func(ctx context.Context, p protocol.Packet) error

// Loop serializes every access to a session. Ticks and posted tasks run on
// the goroutine that called Run; receivers only post.
type Loop struct {
	log    log.Log
	period time.Duration
	tick   Task
	tasks  chan Task
}

// NewLoop drives tick every period. A nil tick or a zero period only runs
// posted tasks.
func NewLoop(period time.Duration, tick Task, logger log.Log) *Loop {
	return &Loop{
		log:    logger.With(log.String("component", "loop")),
		period: period,
		tick:   tick,
		tasks:  make(chan Task, 256),
	}
}

// Post queues task. It blocks while the queue is full.
func (l *Loop) Post(ctx context.Context, task Task) error {
	select {
	case l.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes ticks and tasks until ctx is done. Task and tick errors are
// logged and do not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	var ticks <-chan time.Time
	if l.tick != nil && l.period > 0 {
		ticker := time.NewTicker(l.period)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case task := <-l.tasks:
			if err := task(ctx); err != nil {
				l.log.Warn("task failed", log.Error(err))
			}
		case <-ticks:
			if err := l.tick(ctx); err != nil {
				l.log.Warn("tick failed", log.Error(err))
			}
		}
	}
}

// Receive posts every packet read from conn to handle. Undecodable packets
// are dropped. It returns once the connection closes or ctx is done.
func (l *Loop) Receive(ctx context.Context, conn protocol.Conn, handle Handler) error {
	for {
		p, err := conn.Receive(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, protocol.ErrConnectionClosed):
			return err
		case err != nil:
			l.log.Warn("dropped packet", log.String("peer", conn.RemoteAddr()), log.Error(err))
			continue
		}
		if err := l.Post(ctx, func(ctx context.Context) error { return handle(ctx, p) }); err != nil {
			return nil
		}
	}
}

// Serve runs the loop and the receiver of conn together. The first to fail
// stops both.
func (l *Loop) Serve(ctx context.Context, conn protocol.Conn, handle Handler) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.Run(ctx)
	})
	g.Go(func() error {
		return l.Receive(ctx, conn, handle)
	})
	return g.Wait()
}
