package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/duelsim/internal/core/ecs"
	"github.com/zeusync/duelsim/internal/core/events/bus"
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
	"github.com/zeusync/duelsim/internal/core/rollback"
	"github.com/zeusync/duelsim/internal/core/systems/physics"
)

type recorder struct {
	packets []protocol.Packet
}

func (r *recorder) Send(_ context.Context, p protocol.Packet) error {
	r.packets = append(r.packets, p)
	return nil
}

func (r *recorder) take() []protocol.Packet {
	out := r.packets
	r.packets = nil
	return out
}

func newTestGame(events bus.EventBus) *Game {
	g := NewGame(game.DefaultRules(), rollback.DefaultSettings(), events, log.NewNop())
	g.SpawnPlayers()
	return g
}

type duel struct {
	events   bus.EventBus
	counts   map[string]int
	server   *Server
	clients  [game.MaxPlayers]*Client
	toServer [game.MaxPlayers]*recorder
	toClient [game.MaxPlayers]*recorder
}

func newDuel(t *testing.T) *duel {
	t.Helper()
	d := &duel{events: bus.New(), counts: map[string]int{}}
	for _, typ := range []string{bus.TypeFrameValidated, bus.TypeDesync, bus.TypeWinner, bus.TypePeerJoined} {
		_, err := d.events.Subscribe(typ, func(e bus.Event) error {
			d.counts[e.Type]++
			return nil
		})
		require.NoError(t, err)
	}

	d.server = NewServer(newTestGame(d.events), log.NewNop())
	for i := range d.clients {
		d.toServer[i] = &recorder{}
		d.toClient[i] = &recorder{}
		d.clients[i] = NewClient(newTestGame(d.events), d.toServer[i], log.NewNop())

		player, err := d.server.Join(context.Background(), d.toClient[i], fmt.Sprintf("peer-%d", i))
		require.NoError(t, err)
		require.Equal(t, game.PlayerNumber(i), player)
	}
	d.deliver(t)
	return d
}

func (d *duel) deliver(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i := range d.toServer {
		for _, p := range d.toServer[i].take() {
			require.NoError(t, d.server.Handle(ctx, game.PlayerNumber(i), p))
		}
	}
	for i := range d.toClient {
		for _, p := range d.toClient[i].take() {
			require.NoError(t, d.clients[i].Handle(ctx, p))
		}
	}
}

func (d *duel) tick(t *testing.T, inputs func(game.PlayerNumber, game.Frame) game.PlayerInput) {
	t.Helper()
	for _, c := range d.clients {
		require.NoError(t, c.Tick(context.Background(), inputs(c.Player(), c.Frame()+1)))
	}
}

func onlyFirstShoots(p game.PlayerNumber, _ game.Frame) game.PlayerInput {
	if p == 0 {
		return game.InputShoot
	}
	return 0
}

func TestServer_JoinStartsWhenFull(t *testing.T) {
	events := bus.New()
	joined := 0
	_, err := events.Subscribe(bus.TypePeerJoined, func(bus.Event) error {
		joined++
		return nil
	})
	require.NoError(t, err)

	s := NewServer(newTestGame(events), log.NewNop())
	peers := []*recorder{{}, {}}
	ctx := context.Background()

	_, err = s.Join(ctx, peers[0], "a")
	require.NoError(t, err)
	assert.False(t, s.Started())
	assert.Empty(t, peers[0].packets)

	_, err = s.Join(ctx, peers[1], "b")
	require.NoError(t, err)
	assert.True(t, s.Started())
	for i, peer := range peers {
		require.Len(t, peer.packets, 1)
		start, ok := peer.packets[0].(*protocol.StartPacket)
		require.True(t, ok)
		assert.Equal(t, game.PlayerNumber(i), start.Player)
		assert.Equal(t, s.Game().ID(), start.Session)
	}

	_, err = s.Join(ctx, &recorder{}, "c")
	assert.ErrorIs(t, err, ErrSessionFull)
	assert.Equal(t, 2, joined)
}

func TestDuel_LockstepStaysInSync(t *testing.T) {
	d := newDuel(t)
	for i := 0; i < 200; i++ {
		d.tick(t, onlyFirstShoots)
		d.deliver(t)
	}

	server := d.server.Manager()
	assert.Equal(t, game.Frame(200), server.LastValidatedFrame())
	assert.Zero(t, d.counts[bus.TypeDesync])
	assert.Equal(t, 3*200, d.counts[bus.TypeFrameValidated], "server and both clients")

	target := server.PlayerEntity(1)
	health := server.Validated().Player(target).Health
	assert.Less(t, health, game.DefaultRules().PlayerHealth, "player 0 landed a hit")

	for _, c := range d.clients {
		m := c.Manager()
		assert.Equal(t, game.Frame(200), m.LastValidatedFrame())
		assert.Equal(t, health, m.Validated().Player(m.PlayerEntity(1)).Health)
		for p := game.PlayerNumber(0); p < game.MaxPlayers; p++ {
			assert.Equal(t, server.ValidatedPhysicsState(p), m.ValidatedPhysicsState(p))
		}
	}
}

func TestDuel_LaggingDeliveryStaysInSync(t *testing.T) {
	d := newDuel(t)
	inputs := func(p game.PlayerNumber, f game.Frame) game.PlayerInput {
		switch {
		case p == 1 && f%40 < 20:
			return game.InputLeft
		case p == 1:
			return game.InputRight | game.InputUp
		default:
			return onlyFirstShoots(p, f)
		}
	}
	for i := 1; i <= 120; i++ {
		d.tick(t, inputs)
		if i%7 == 0 {
			d.deliver(t)
		}
	}
	d.deliver(t)

	assert.Zero(t, d.counts[bus.TypeDesync])
	assert.Equal(t, game.Frame(120), d.server.Manager().LastValidatedFrame())
	for _, c := range d.clients {
		assert.Equal(t, game.Frame(120), c.Manager().LastValidatedFrame())
		assert.Equal(t, game.Frame(120), c.Frame())
	}
}

func TestDuel_WinnerIsAnnouncedOnce(t *testing.T) {
	d := newDuel(t)
	m := d.server.Manager()
	loser := m.PlayerEntity(1)
	pc := m.Validated().Player(loser)
	pc.Health = 0
	m.Validated().SetPlayer(loser, pc)

	for i := 0; i < 5; i++ {
		d.tick(t, onlyFirstShoots)
		d.deliver(t)
	}

	assert.Equal(t, game.PlayerNumber(0), d.server.Winner())
	assert.Equal(t, 3, d.counts[bus.TypeWinner], "server once and each client once")
	for _, c := range d.clients {
		assert.True(t, c.Finished())
		assert.Equal(t, game.PlayerNumber(0), c.Winner())
	}
	assert.Equal(t, game.Frame(1), m.LastValidatedFrame(), "no validation after the end")

	frame := d.clients[0].Frame()
	require.NoError(t, d.clients[0].Tick(context.Background(), game.InputShoot))
	assert.Equal(t, frame, d.clients[0].Frame(), "finished clients do not tick")
}

func TestClient_TickSendsInputWindow(t *testing.T) {
	sent := &recorder{}
	c := NewClient(newTestGame(bus.New()), sent, log.NewNop())

	require.NoError(t, c.Tick(context.Background(), game.InputRight))
	assert.Empty(t, sent.packets, "no tick before start")

	c.OnStart(&protocol.StartPacket{Player: 1})
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Tick(context.Background(), game.InputRight))
	}
	require.Len(t, sent.packets, 3)

	last, ok := sent.packets[2].(*protocol.InputPacket)
	require.True(t, ok)
	assert.Equal(t, game.PlayerNumber(1), last.Player)
	assert.Equal(t, game.Frame(3), last.Frame)
	assert.Len(t, last.Inputs, rollback.DefaultSettings().MaxInputs)
	assert.Equal(t, []byte{byte(game.InputRight), byte(game.InputRight), byte(game.InputRight)}, last.Inputs[:3])

	e := c.Manager().PlayerEntity(1)
	rules := game.DefaultRules()
	want := rules.SpawnPositions[1].X + 3*rules.FixedPeriod*rules.PlayerSpeed
	assert.InDelta(t, want, c.Manager().Current().Physics.Rigidbody(e).Position.X, 1e-5)
}

func TestClient_ConfirmSkipsStaleAndEarly(t *testing.T) {
	c := NewClient(newTestGame(bus.New()), &recorder{}, log.NewNop())
	c.OnStart(&protocol.StartPacket{Player: 0})
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Tick(context.Background(), 0))
	}

	require.NoError(t, c.OnConfirm(&protocol.ConfirmPacket{Frame: 2}))
	assert.Equal(t, game.Frame(0), c.Manager().LastValidatedFrame(), "remote input missing")

	c.OnInput(protocol.NewInputPacket(1, 3, []game.PlayerInput{0, 0, 0}))
	require.NoError(t, c.OnConfirm(&protocol.ConfirmPacket{Frame: 2, Checksums: checksums(c.Game(), 2)}))
	assert.Equal(t, game.Frame(2), c.Manager().LastValidatedFrame())

	require.NoError(t, c.OnConfirm(&protocol.ConfirmPacket{Frame: 1}))
	assert.Equal(t, game.Frame(2), c.Manager().LastValidatedFrame(), "stale")
}

func TestClient_ConfirmReportsDesync(t *testing.T) {
	events := bus.New()
	var published []*rollback.DesyncError
	_, err := events.Subscribe(bus.TypeDesync, func(e bus.Event) error {
		published = append(published, e.Data.(*rollback.DesyncError))
		return nil
	})
	require.NoError(t, err)

	c := NewClient(newTestGame(events), &recorder{}, log.NewNop())
	c.OnStart(&protocol.StartPacket{Player: 0})
	require.NoError(t, c.Tick(context.Background(), game.InputLeft))
	c.OnInput(protocol.NewInputPacket(1, 1, []game.PlayerInput{game.InputRight}))

	authority := checksums(c.Game(), 1)
	authority[0]++
	err = c.OnConfirm(&protocol.ConfirmPacket{Frame: 1, Checksums: authority})

	var desync *rollback.DesyncError
	require.True(t, errors.As(err, &desync))
	require.Len(t, published, 1)
	assert.Equal(t, game.Frame(1), published[0].Frame)
	assert.Equal(t, game.PlayerNumber(0), published[0].Mismatches[0].Player)
}

// checksums replays a fresh game with the inputs recorded by g up to frame.
func checksums(g *Game, frame game.Frame) [game.MaxPlayers]rollback.PhysicsState {
	reference := newTestGame(bus.New())
	m := reference.Manager()
	for f := game.Frame(1); f <= frame; f++ {
		for p := game.PlayerNumber(0); p < game.MaxPlayers; p++ {
			m.SetInput(p, g.Manager().InputAt(p, f), f)
		}
	}
	if err := m.Validate(frame); err != nil {
		panic(err)
	}
	var out [game.MaxPlayers]rollback.PhysicsState
	for p := range out {
		out[p] = m.ValidatedPhysicsState(game.PlayerNumber(p))
	}
	return out
}

func TestServer_RejectsForeignInput(t *testing.T) {
	d := newDuel(t)
	err := d.server.Handle(context.Background(), 0, protocol.NewInputPacket(1, 1, []game.PlayerInput{game.InputShoot}))
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	assert.Equal(t, game.Frame(0), d.server.Manager().LastReceivedFrame(1))
}

func TestGame_ApplyInputsBoundsTheWindow(t *testing.T) {
	g := newTestGame(bus.New())
	window := game.Frame(g.Settings().WindowSize)

	far := protocol.NewInputPacket(0, window+1, []game.PlayerInput{game.InputUp})
	assert.Zero(t, g.ApplyInputs(far))
	assert.Equal(t, game.Frame(0), g.Manager().CurrentFrame())

	edge := protocol.NewInputPacket(0, window, []game.PlayerInput{game.InputUp, game.InputUp})
	assert.Equal(t, 2, g.ApplyInputs(edge))
	assert.Equal(t, window, g.Manager().CurrentFrame())

	assert.Zero(t, g.ApplyInputs(&protocol.InputPacket{Player: game.MaxPlayers, Frame: 1, Inputs: []byte{1}}))
}

func TestGame_CheckWinner(t *testing.T) {
	g := newTestGame(bus.New())
	_, ok := g.CheckWinner()
	assert.False(t, ok)

	v := g.Manager().Validated()
	for p := game.PlayerNumber(0); p < game.MaxPlayers; p++ {
		e := g.Manager().PlayerEntity(p)
		pc := v.Player(e)
		pc.Health = 0
		v.SetPlayer(e, pc)
	}
	_, ok = g.CheckWinner()
	assert.False(t, ok, "nobody left")

	e := g.Manager().PlayerEntity(1)
	pc := v.Player(e)
	pc.Health = 2
	v.SetPlayer(e, pc)
	winner, ok := g.CheckWinner()
	require.True(t, ok)
	assert.Equal(t, game.PlayerNumber(1), winner)
}

func TestGame_SpawnLevel(t *testing.T) {
	g := newTestGame(bus.New())
	g.SpawnLevel(Level{Walls: []Wall{
		{Position: physics.Vec2{Y: -6}, HalfExtents: physics.Vec2{X: 6, Y: 0.5}},
		{Position: physics.Vec2{X: 3}, HalfExtents: physics.Vec2{X: 0.25, Y: 1}},
	}})

	walls := 0
	g.Manager().Store().Each(game.WallKind, func(e ecs.Entity) { walls++ })
	assert.Equal(t, 2, walls)
}

func TestGuard(t *testing.T) {
	g := newTestGame(bus.New())
	err := func() (err error) {
		defer guard("input", &err)
		g.Manager().InputAt(0, 1000)
		return nil
	}()
	var pe *rollback.PreconditionError
	assert.True(t, errors.As(err, &pe))

	assert.Panics(t, func() {
		var err error
		defer guard("input", &err)
		panic("boom")
	})
}
