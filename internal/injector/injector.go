//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
	"github.com/zeusync/duelsim/internal/config"
	"github.com/zeusync/duelsim/internal/core/protocol"
)

func InitializeServer(cfg *config.Config) *ServerApp {
	wire.Build(ServerSet)
	return nil
}

func InitializeClient(cfg *config.Config, sender protocol.PacketSender) *ClientApp {
	wire.Build(ClientSet)
	return nil
}
