package protocol

import (
	"context"
	"errors"
	"sync"
)

var ErrConnectionClosed = errors.New("protocol: connection is closed")

// PacketSender is the unreliable send capability used once per tick.
type PacketSender interface {
	Send(ctx context.Context, p Packet) error
}

// Conn is one peer connection carrying whole packets.
type Conn interface {
	PacketSender
	// Receive blocks until a packet arrives, ctx is done or the connection
	// closes.
	Receive(ctx context.Context) (Packet, error)
	RemoteAddr() string
	Close() error
}

// Listener accepts peer connections for the authority.
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() string
	Close() error
}

// Pipe returns two in-process connected ends. Packets are encoded and
// decoded like on a real transport.
func Pipe(buffer int) (Conn, Conn) {
	ab := make(chan []byte, buffer)
	ba := make(chan []byte, buffer)
	done := make(chan struct{})
	once := &sync.Once{}
	a := &pipeConn{name: "pipe-a", in: ba, out: ab, done: done, once: once}
	b := &pipeConn{name: "pipe-b", in: ab, out: ba, done: done, once: once}
	return a, b
}

type pipeConn struct {
	name string
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

func (c *pipeConn) Send(ctx context.Context, p Packet) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *pipeConn) Receive(ctx context.Context) (Packet, error) {
	select {
	case data := <-c.in:
		return Decode(data)
	case <-c.done:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *pipeConn) RemoteAddr() string { return c.name }

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
