// Package session drives one duel over the rollback manager, as a
// predicting peer or as the authority.
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zeusync/duelsim/internal/core/ecs"
	"github.com/zeusync/duelsim/internal/core/events/bus"
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
	"github.com/zeusync/duelsim/internal/core/rollback"
	"github.com/zeusync/duelsim/internal/core/systems/physics"
)

var (
	ErrSessionFull   = errors.New("session: every player slot is taken")
	ErrUnknownPlayer = errors.New("session: unknown player")
)

// Wall is one piece of static level geometry.
type Wall struct {
	Position    physics.Vec2 `yaml:"position"`
	HalfExtents physics.Vec2 `yaml:"half_extents"`
}

// Level lists the geometry spawned before the first frame.
type Level struct {
	Walls []Wall `yaml:"walls"`
}

// Payloads of the events published on the bus.
type (
	FrameValidated struct {
		Frame  game.Frame
		Digest uint64
	}
	Winner struct {
		Player game.PlayerNumber
		Frame  game.Frame
	}
	PeerJoined struct {
		Player game.PlayerNumber
		Addr   string
	}
)

// Game owns the simulation of one session: spawning, input and winner
// detection. Client and Server compose it.
type Game struct {
	id       string
	log      log.Log
	bus      bus.EventBus
	rules    game.Rules
	settings rollback.Settings
	manager  *rollback.Manager
}

func NewGame(rules game.Rules, settings rollback.Settings, events bus.EventBus, logger log.Log) *Game {
	id := uuid.NewString()
	logger = logger.With(log.String("session", id))
	return &Game{
		id:       id,
		log:      logger,
		bus:      events,
		rules:    rules,
		settings: settings,
		manager:  rollback.NewManager(rules, settings, logger),
	}
}

func (g *Game) ID() string                  { return g.id }
func (g *Game) Manager() *rollback.Manager  { return g.manager }
func (g *Game) Rules() game.Rules           { return g.rules }
func (g *Game) Settings() rollback.Settings { return g.settings }

// SpawnPlayers places every participant at its spawn point.
func (g *Game) SpawnPlayers() {
	for p := game.PlayerNumber(0); p < game.MaxPlayers; p++ {
		g.manager.SpawnPlayer(p, g.rules.SpawnPositions[p], g.rules.SpawnFacing[p])
	}
}

func (g *Game) SpawnLevel(level Level) {
	for _, w := range level.Walls {
		g.manager.SpawnWall(w.Position, w.HalfExtents)
	}
	g.log.Info("level spawned", log.Int("walls", len(level.Walls)))
}

// CheckWinner reports the only participant still alive on the validated
// timeline.
func (g *Game) CheckWinner() (game.PlayerNumber, bool) {
	winner := game.InvalidPlayer
	alive := 0
	for p := game.PlayerNumber(0); p < game.MaxPlayers; p++ {
		e := g.manager.PlayerEntity(p)
		if e == ecs.InvalidEntity {
			return game.InvalidPlayer, false
		}
		if g.manager.Validated().Player(e).Health > 0 {
			alive++
			winner = p
		}
	}
	if alive != 1 {
		return game.InvalidPlayer, false
	}
	return winner, true
}

// ApplyInputs records every input of p that is still open. It returns the
// number of inputs applied. Packets that would move the clock past the
// input window are dropped whole.
func (g *Game) ApplyInputs(p *protocol.InputPacket) int {
	if p.Player >= game.MaxPlayers {
		return 0
	}
	m := g.manager
	window := game.Frame(g.settings.WindowSize)
	validated := m.LastValidatedFrame()
	if p.Frame > validated+window {
		g.log.Warn("input too far ahead",
			log.Uint8("player", uint8(p.Player)),
			log.Uint32("frame", uint32(p.Frame)),
			log.Uint32("validated", uint32(validated)))
		return 0
	}

	clock := max(m.CurrentFrame(), p.Frame)
	applied := 0
	p.Each(func(frame game.Frame, input game.PlayerInput) {
		if frame <= validated || clock-frame >= window {
			return
		}
		m.SetInput(p.Player, input, frame)
		applied++
	})
	return applied
}

func (g *Game) publish(typ string, data any) {
	if err := g.bus.Publish(bus.NewEvent(typ, g.id, data)); err != nil {
		g.log.Warn("event handler failed", log.String("event", typ), log.Error(err))
	}
}

// guard turns a precondition panic raised while handling remote data into
// an error. Other panics propagate.
func guard(op string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	if !rollback.IsPrecondition(r) {
		panic(r)
	}
	*err = fmt.Errorf("session: %s rejected: %w", op, r.(error))
}
