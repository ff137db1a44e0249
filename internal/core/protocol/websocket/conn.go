// Package websocket carries packets as binary websocket messages.
package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/zeusync/duelsim/internal/core/protocol"
)

const (
	writeTimeout = 5 * time.Second
	bufferSize   = 4096
	queueSize    = 64
)

type message struct {
	data []byte
	err  error
}

// Conn is a protocol.Conn over one websocket. A reader goroutine drains the
// socket so that Receive can honour ctx.
type Conn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	incoming chan message
	done     chan struct{}
	once     sync.Once
}

var _ protocol.Conn = (*Conn)(nil)

func newConn(conn *websocket.Conn) *Conn {
	c := &Conn{
		conn:     conn,
		incoming: make(chan message, queueSize),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Dial connects to an authority at url, e.g. ws://host:port/duel.
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:   bufferSize,
		WriteBufferSize:  bufferSize,
		HandshakeTimeout: writeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to dial %s", url)
	}
	return newConn(conn), nil
}

func (c *Conn) readLoop() {
	defer close(c.incoming)
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case c.incoming <- message{err: err}:
			case <-c.done:
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		select {
		case c.incoming <- message{data: data}:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) Send(_ context.Context, p protocol.Packet) error {
	data, err := protocol.Encode(p)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return eris.Wrap(err, "failed to write message")
	}
	return nil
}

func (c *Conn) Receive(ctx context.Context) (protocol.Packet, error) {
	select {
	case msg, ok := <-c.incoming:
		if !ok {
			return nil, protocol.ErrConnectionClosed
		}
		if msg.err != nil {
			return nil, protocol.ErrConnectionClosed
		}
		return protocol.Decode(msg.data)
	case <-c.done:
		return nil, protocol.ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// Listener upgrades HTTP requests on one path into connections.
type Listener struct {
	upgrader websocket.Upgrader
	accepted chan *Conn
	closed   chan struct{}
	once     sync.Once

	listener net.Listener
	server   *http.Server
}

var _ protocol.Listener = (*Listener)(nil)

// NewListener returns a listener that is only fed through ServeHTTP.
func NewListener() *Listener {
	return &Listener{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		accepted: make(chan *Conn, queueSize),
		closed:   make(chan struct{}),
	}
}

// Listen serves upgrades on addr and path.
func Listen(addr, path string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to listen on %s", addr)
	}

	l := NewListener()
	mux := http.NewServeMux()
	mux.Handle(path, l)
	l.listener = ln
	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: writeTimeout}
	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = l.Close()
		}
	}()
	return l, nil
}

func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newConn(conn)
	select {
	case l.accepted <- c:
	case <-l.closed:
		_ = c.Close()
	}
}

func (l *Listener) Accept(ctx context.Context) (protocol.Conn, error) {
	select {
	case c := <-l.accepted:
		return c, nil
	case <-l.closed:
		return nil, protocol.ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Listener) Addr() string {
	if l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closed)
		if l.server != nil {
			err = l.server.Close()
		}
	})
	return err
}
