package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/duelsim/internal/config"
	"github.com/zeusync/duelsim/internal/core/ecs"
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/protocol"
)

func TestInitializeServer(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	app := InitializeServer(cfg)
	require.NotNil(t, app.Server)
	assert.Same(t, cfg, app.Config)

	m := app.Server.Manager()
	for p := game.PlayerNumber(0); p < game.MaxPlayers; p++ {
		assert.NotEqual(t, ecs.InvalidEntity, m.PlayerEntity(p))
	}
	walls := 0
	m.Store().Each(game.WallKind, func(ecs.Entity) { walls++ })
	assert.Equal(t, len(cfg.Level.Walls), walls)
}

func TestInitializeClient(t *testing.T) {
	local, _ := protocol.Pipe(1)
	defer local.Close()

	app := InitializeClient(config.Default(), local)
	require.NotNil(t, app.Client)
	assert.False(t, app.Client.Started())
	assert.NotEqual(t, "", app.Client.Game().ID())
}
