// Package quic carries packets as unreliable QUIC datagrams.
package quic

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rotisserie/eris"
	"github.com/zeusync/duelsim/internal/core/protocol"
)

func config() *quic.Config {
	return &quic.Config{
		EnableDatagrams: true,
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 5 * time.Second,
	}
}

// Conn is a protocol.Conn over one QUIC connection.
type Conn struct {
	conn *quic.Conn
}

var _ protocol.Conn = (*Conn)(nil)

func newConn(conn *quic.Conn) *Conn {
	return &Conn{conn: conn}
}

// Dial connects to an authority listening on addr.
func Dial(ctx context.Context, addr, alpn string) (*Conn, error) {
	conn, err := quic.DialAddr(ctx, addr, ClientTLS(alpn), config())
	if err != nil {
		return nil, eris.Wrapf(err, "failed to dial %s", addr)
	}
	return newConn(conn), nil
}

func (c *Conn) Send(_ context.Context, p protocol.Packet) error {
	data, err := protocol.Encode(p)
	if err != nil {
		return err
	}
	if err := c.conn.SendDatagram(data); err != nil {
		return eris.Wrap(err, "failed to send datagram")
	}
	return nil
}

func (c *Conn) Receive(ctx context.Context) (protocol.Packet, error) {
	data, err := c.conn.ReceiveDatagram(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, protocol.ErrConnectionClosed
	}
	return protocol.Decode(data)
}

func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *Conn) Close() error {
	return c.conn.CloseWithError(0, "closed")
}

// Listener accepts QUIC peers.
type Listener struct {
	listener *quic.Listener
}

var _ protocol.Listener = (*Listener)(nil)

// Listen starts accepting on addr with the given server TLS config.
func Listen(addr string, tlsConfig *tls.Config) (*Listener, error) {
	listener, err := quic.ListenAddr(addr, tlsConfig, config())
	if err != nil {
		return nil, eris.Wrap(err, "failed to start QUIC listener")
	}
	return &Listener{listener: listener}, nil
}

func (l *Listener) Accept(ctx context.Context) (protocol.Conn, error) {
	conn, err := l.listener.Accept(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "failed to accept connection")
	}
	return newConn(conn), nil
}

func (l *Listener) Addr() string {
	return l.listener.Addr().String()
}

func (l *Listener) Close() error {
	return l.listener.Close()
}
