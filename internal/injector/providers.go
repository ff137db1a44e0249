package injector

import (
	"github.com/google/wire"
	"github.com/zeusync/duelsim/internal/config"
	"github.com/zeusync/duelsim/internal/core/events/bus"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
	"github.com/zeusync/duelsim/internal/core/session"
)

// ServerApp is everything the authority binary runs.
type ServerApp struct {
	Config *config.Config
	Log    *log.Logger
	Events bus.EventBus
	Server *session.Server
}

// ClientApp is everything a peer binary runs.
type ClientApp struct {
	Config *config.Config
	Log    *log.Logger
	Events bus.EventBus
	Client *session.Client
}

var CoreSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	bus.New,
	ProvideGame,
)

var ServerSet = wire.NewSet(
	CoreSet,
	ProvideServer,
	wire.Struct(new(ServerApp), "*"),
)

var ClientSet = wire.NewSet(
	CoreSet,
	ProvideClient,
	wire.Struct(new(ClientApp), "*"),
)

func ProvideLogger(cfg *config.Config) *log.Logger {
	return log.New(cfg.LoggerOptions())
}

// ProvideGame builds the session with both participants and the level
// geometry already spawned.
func ProvideGame(cfg *config.Config, events bus.EventBus, logger log.Log) *session.Game {
	g := session.NewGame(cfg.Game, cfg.Rollback, events, logger)
	g.SpawnPlayers()
	g.SpawnLevel(cfg.Level)
	return g
}

func ProvideServer(g *session.Game, logger log.Log) *session.Server {
	return session.NewServer(g, logger)
}

func ProvideClient(g *session.Game, sender protocol.PacketSender, logger log.Log) *session.Client {
	return session.NewClient(g, sender, logger)
}
