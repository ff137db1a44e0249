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

	"github.com/pkg/profile"
	"github.com/zeusync/duelsim/internal/config"
	"github.com/zeusync/duelsim/internal/core/events/bus"
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
	"github.com/zeusync/duelsim/internal/core/protocol/quic"
	"github.com/zeusync/duelsim/internal/core/protocol/websocket"
	"github.com/zeusync/duelsim/internal/core/session"
	"github.com/zeusync/duelsim/internal/injector"
	"golang.org/x/sync/errgroup"
)

// linger keeps the session open after the winner is known so that the win
// packet reaches both peers.
const linger = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	profileMode := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
	}

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	app := injector.InitializeServer(cfg)
	defer func() { _ = app.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, app); err != nil {
		app.Log.Error("server stopped", log.Error(err))
	}
}

func listen(cfg *config.Config) (protocol.Listener, error) {
	switch cfg.Network.Transport {
	case config.TransportWebSocket:
		return websocket.Listen(cfg.Network.Address, cfg.Network.Path)
	default:
		tlsConfig, err := quic.ServerTLS(cfg.Network.CertFile, cfg.Network.KeyFile, cfg.Network.ALPN)
		if err != nil {
			return nil, err
		}
		return quic.Listen(cfg.Network.Address, tlsConfig)
	}
}

func run(ctx context.Context, app *injector.ServerApp) error {
	listener, err := listen(app.Config)
	if err != nil {
		return err
	}
	app.Log.Info("listening",
		log.String("transport", app.Config.Network.Transport),
		log.String("address", listener.Addr()),
		log.String("session", app.Server.Game().ID()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	_, err = app.Events.Subscribe(bus.TypeWinner, func(bus.Event) error {
		time.AfterFunc(linger, cancel)
		return nil
	})
	if err != nil {
		return err
	}

	loop := session.NewLoop(0, nil, app.Log)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})
	g.Go(func() error {
		for {
			conn, err := listener.Accept(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			err = loop.Post(ctx, func(ctx context.Context) error {
				player, err := app.Server.Join(ctx, conn, conn.RemoteAddr())
				if err != nil {
					_ = conn.Close()
					return err
				}
				g.Go(func() error {
					defer conn.Close()
					return serve(ctx, app, loop, conn, player)
				})
				return nil
			})
			if err != nil {
				return nil
			}
		}
	})
	return g.Wait()
}

func serve(ctx context.Context, app *injector.ServerApp, loop *session.Loop, conn protocol.Conn, player game.PlayerNumber) error {
	err := loop.Receive(ctx, conn, func(ctx context.Context, p protocol.Packet) error {
		return app.Server.Handle(ctx, player, p)
	})
	if errors.Is(err, protocol.ErrConnectionClosed) {
		app.Log.Warn("peer left", log.Uint8("player", uint8(player)), log.String("addr", conn.RemoteAddr()))
		return nil
	}
	return err
}
