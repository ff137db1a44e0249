package quic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/duelsim/internal/core/protocol"
)

func TestServerTLS_SelfSigned(t *testing.T) {
	cfg, err := ServerTLS("", "", DefaultALPN)
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	assert.Equal(t, []string{DefaultALPN}, cfg.NextProtos)

	_, err = ServerTLS("missing.pem", "missing.key", DefaultALPN)
	assert.Error(t, err)
}

func TestConn_Datagrams(t *testing.T) {
	tlsConfig, err := ServerTLS("", "", DefaultALPN)
	require.NoError(t, err)
	l, err := Listen("127.0.0.1:0", tlsConfig)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan protocol.Conn, 1)
	go func() {
		c, err := l.Accept(ctx)
		if err == nil {
			accepted <- c
		}
	}()

	client, err := Dial(ctx, l.Addr(), DefaultALPN)
	require.NoError(t, err)
	defer client.Close()

	var server protocol.Conn
	select {
	case server = <-accepted:
	case <-ctx.Done():
		t.Fatal("no connection accepted")
	}

	require.NoError(t, client.Send(ctx, &protocol.JoinPacket{Name: "bot"}))
	p, err := server.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, &protocol.JoinPacket{Name: "bot"}, p)
}
