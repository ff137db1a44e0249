package session

import (
	"context"
	"errors"

	"github.com/zeusync/duelsim/internal/core/events/bus"
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
	"github.com/zeusync/duelsim/internal/core/rollback"
)

// Client is a predicting peer. It simulates ahead with the inputs it has
// and reconciles whenever the authority confirms a frame.
type Client struct {
	game   *Game
	sender protocol.PacketSender
	log    log.Log

	player   game.PlayerNumber
	started  bool
	finished bool
	winner   game.PlayerNumber
}

func NewClient(g *Game, sender protocol.PacketSender, logger log.Log) *Client {
	return &Client{
		game:   g,
		sender: sender,
		log:    logger.With(log.String("component", "client"), log.String("session", g.ID())),
		player: game.InvalidPlayer,
		winner: game.InvalidPlayer,
	}
}

func (c *Client) Game() *Game                { return c.game }
func (c *Client) Player() game.PlayerNumber  { return c.player }
func (c *Client) Started() bool              { return c.started }
func (c *Client) Finished() bool             { return c.finished }
func (c *Client) Winner() game.PlayerNumber  { return c.winner }
func (c *Client) Frame() game.Frame          { return c.game.Manager().CurrentFrame() }
func (c *Client) Manager() *rollback.Manager { return c.game.Manager() }

// Handle routes a packet from the authority.
func (c *Client) Handle(_ context.Context, p protocol.Packet) (err error) {
	defer guard(p.Type().String(), &err)

	switch p := p.(type) {
	case *protocol.StartPacket:
		c.OnStart(p)
	case *protocol.InputPacket:
		c.OnInput(p)
	case *protocol.ConfirmPacket:
		return c.OnConfirm(p)
	case *protocol.WinPacket:
		c.OnWin(p)
	default:
		c.log.Warn("unexpected packet", log.String("type", p.Type().String()))
	}
	return nil
}

func (c *Client) OnStart(p *protocol.StartPacket) {
	if c.started {
		return
	}
	if p.Player >= game.MaxPlayers {
		c.log.Warn("start with invalid player", log.Uint8("player", uint8(p.Player)))
		return
	}
	c.player = p.Player
	c.started = true
	c.log.Info("session started",
		log.Uint8("player", uint8(p.Player)),
		log.String("authority_session", p.Session))
}

// OnInput records the inputs of a remote participant. Inputs ahead of the
// local clock advance it.
func (c *Client) OnInput(p *protocol.InputPacket) {
	if p.Player == c.player {
		return
	}
	c.game.ApplyInputs(p)
}

// OnConfirm validates the confirmed frame and compares checksums. Stale
// confirmations and those arriving before the inputs they cover are
// skipped.
func (c *Client) OnConfirm(p *protocol.ConfirmPacket) error {
	m := c.game.Manager()
	if p.Frame <= m.LastValidatedFrame() {
		c.log.Warn("stale confirmation",
			log.Uint32("frame", uint32(p.Frame)),
			log.Uint32("validated", uint32(m.LastValidatedFrame())))
		return nil
	}
	for player := game.PlayerNumber(0); player < game.MaxPlayers; player++ {
		if m.LastReceivedFrame(player) < p.Frame {
			c.log.Warn("confirmation ahead of input",
				log.Uint32("frame", uint32(p.Frame)),
				log.Uint8("player", uint8(player)),
				log.Uint32("received", uint32(m.LastReceivedFrame(player))))
			return nil
		}
	}

	err := m.Confirm(p.Frame, p.Checksums)
	var desync *rollback.DesyncError
	switch {
	case errors.As(err, &desync):
		c.game.publish(bus.TypeDesync, desync)
		return err
	case err != nil:
		return err
	}
	c.game.publish(bus.TypeFrameValidated, FrameValidated{Frame: p.Frame, Digest: m.ValidatedDigest()})
	return nil
}

func (c *Client) OnWin(p *protocol.WinPacket) {
	if c.finished {
		return
	}
	c.finished = true
	c.winner = p.Winner
	c.log.Info("session finished", log.Uint8("winner", uint8(p.Winner)))
	c.game.publish(bus.TypeWinner, Winner{Player: p.Winner, Frame: c.game.Manager().LastValidatedFrame()})
}

// Tick runs one fixed update: the local input is recorded for the next
// frame, sent with the recent input window and the prediction is rebuilt.
// It does nothing before the start or after the end of the session, or
// while the authority lags a whole window behind.
func (c *Client) Tick(ctx context.Context, input game.PlayerInput) error {
	if !c.started || c.finished {
		return nil
	}
	m := c.game.Manager()
	frame := m.CurrentFrame() + 1
	if frame-m.LastValidatedFrame() > game.Frame(c.game.Settings().WindowSize) {
		c.log.Warn("input window exhausted, waiting for the authority",
			log.Uint32("frame", uint32(frame)),
			log.Uint32("validated", uint32(m.LastValidatedFrame())))
		return nil
	}

	m.StartNewFrame(frame)
	m.SetInput(c.player, input, frame)
	m.SimulateToCurrent()

	packet := protocol.NewInputPacket(c.player, frame, m.Inputs(c.player, c.game.Settings().MaxInputs))
	return c.sender.Send(ctx, packet)
}
