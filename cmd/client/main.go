package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/duelsim/internal/config"
	"github.com/zeusync/duelsim/internal/core/events/bus"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
	"github.com/zeusync/duelsim/internal/core/protocol/quic"
	"github.com/zeusync/duelsim/internal/core/protocol/websocket"
	"github.com/zeusync/duelsim/internal/core/session"
	"github.com/zeusync/duelsim/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	name := flag.String("name", "bot", "name announced to the server")
	style := flag.String("bot", "duelist", "input script: duelist, turret or idle")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
	}
	script, ok := scripts[*style]
	if !ok {
		fmt.Fprintln(os.Stderr, "Unknown bot:", *style)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dial(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error connecting:", err)
		os.Exit(1)
	}
	defer conn.Close()

	app := injector.InitializeClient(cfg, conn)
	defer func() { _ = app.Log.Sync() }()

	if err := run(ctx, app, conn, *name, script); err != nil {
		app.Log.Error("client stopped", log.Error(err))
	}
}

func dial(ctx context.Context, cfg *config.Config) (protocol.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Network.Transport {
	case config.TransportWebSocket:
		return websocket.Dial(ctx, "ws://"+cfg.Network.Address+cfg.Network.Path)
	default:
		return quic.Dial(ctx, cfg.Network.Address, cfg.Network.ALPN)
	}
}

func run(ctx context.Context, app *injector.ClientApp, conn protocol.Conn, name string, script script) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := app.Client
	_, err := app.Events.Subscribe(bus.TypeWinner, func(e bus.Event) error {
		winner := e.Data.(session.Winner)
		app.Log.Info("duel over",
			log.Bool("won", winner.Player == client.Player()),
			log.Uint32("frame", uint32(winner.Frame)))
		cancel()
		return nil
	})
	if err != nil {
		return err
	}

	if err := conn.Send(ctx, &protocol.JoinPacket{Name: name}); err != nil {
		return err
	}

	period := time.Duration(float64(app.Config.Game.FixedPeriod) * float64(time.Second))
	loop := session.NewLoop(period, func(ctx context.Context) error {
		return client.Tick(ctx, script(client.Frame()+1))
	}, app.Log)

	err = loop.Serve(ctx, conn, client.Handle)
	if errors.Is(err, protocol.ErrConnectionClosed) && client.Finished() {
		return nil
	}
	return err
}
