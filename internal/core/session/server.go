package session

import (
	"context"
	"fmt"

	"github.com/zeusync/duelsim/internal/core/events/bus"
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol"
	"github.com/zeusync/duelsim/internal/core/rollback"
)

// Server is the authority. It validates every frame once all inputs for it
// arrived and broadcasts the checksums of the validated bodies.
type Server struct {
	game *Game
	log  log.Log

	peers   [game.MaxPlayers]protocol.PacketSender
	addrs   [game.MaxPlayers]string
	joined  int
	started bool
	winner  game.PlayerNumber
}

func NewServer(g *Game, logger log.Log) *Server {
	return &Server{
		game:   g,
		log:    logger.With(log.String("component", "server"), log.String("session", g.ID())),
		winner: game.InvalidPlayer,
	}
}

func (s *Server) Game() *Game                { return s.game }
func (s *Server) Started() bool              { return s.started }
func (s *Server) Winner() game.PlayerNumber  { return s.winner }
func (s *Server) Manager() *rollback.Manager { return s.game.Manager() }

// Join assigns the next free participant number to peer. Once every slot is
// taken each peer is sent its StartPacket.
func (s *Server) Join(ctx context.Context, peer protocol.PacketSender, addr string) (game.PlayerNumber, error) {
	if s.joined >= game.MaxPlayers {
		return game.InvalidPlayer, ErrSessionFull
	}
	player := game.PlayerNumber(s.joined)
	s.peers[player] = peer
	s.addrs[player] = addr
	s.joined++

	s.log.Info("peer joined", log.Uint8("player", uint8(player)), log.String("addr", addr))
	s.game.publish(bus.TypePeerJoined, PeerJoined{Player: player, Addr: addr})

	if s.joined == game.MaxPlayers {
		s.started = true
		for p, peer := range s.peers {
			start := &protocol.StartPacket{Player: game.PlayerNumber(p), Session: s.game.ID()}
			if err := peer.Send(ctx, start); err != nil {
				s.log.Warn("failed to send start", log.Int("player", p), log.Error(err))
			}
		}
	}
	return player, nil
}

// Handle routes a packet received from player.
func (s *Server) Handle(ctx context.Context, from game.PlayerNumber, p protocol.Packet) (err error) {
	defer guard(p.Type().String(), &err)

	switch p := p.(type) {
	case *protocol.JoinPacket:
		s.log.Debug("peer hello", log.Uint8("player", uint8(from)), log.String("name", p.Name))
	case *protocol.InputPacket:
		if p.Player != from {
			return fmt.Errorf("%w: %d sent input for %d", ErrUnknownPlayer, from, p.Player)
		}
		return s.OnInput(ctx, p)
	default:
		s.log.Warn("unexpected packet", log.String("type", p.Type().String()), log.Uint8("player", uint8(from)))
	}
	return nil
}

// OnInput applies the input window, relays it to the other peers, then
// validates up to the oldest frame every participant has sent.
func (s *Server) OnInput(ctx context.Context, p *protocol.InputPacket) error {
	if p.Player >= game.MaxPlayers || s.peers[p.Player] == nil {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, p.Player)
	}
	if !s.started || s.winner != game.InvalidPlayer {
		return nil
	}
	if s.game.ApplyInputs(p) == 0 {
		return nil
	}
	s.relay(ctx, p)

	m := s.game.Manager()
	target := m.LastReceivedFrame(0)
	for player := game.PlayerNumber(1); player < game.MaxPlayers; player++ {
		target = min(target, m.LastReceivedFrame(player))
	}
	if target <= m.LastValidatedFrame() {
		return nil
	}
	if err := m.Validate(target); err != nil {
		return err
	}

	confirm := &protocol.ConfirmPacket{Frame: target}
	for player := range confirm.Checksums {
		confirm.Checksums[player] = m.ValidatedPhysicsState(game.PlayerNumber(player))
	}
	s.broadcast(ctx, confirm)
	s.game.publish(bus.TypeFrameValidated, FrameValidated{Frame: target, Digest: m.ValidatedDigest()})

	if winner, ok := s.game.CheckWinner(); ok {
		s.winner = winner
		s.log.Info("winner", log.Uint8("player", uint8(winner)), log.Uint32("frame", uint32(target)))
		s.game.publish(bus.TypeWinner, Winner{Player: winner, Frame: target})
		s.broadcast(ctx, &protocol.WinPacket{Winner: winner})
	}
	return nil
}

func (s *Server) relay(ctx context.Context, p *protocol.InputPacket) {
	for player, peer := range s.peers {
		if peer == nil || game.PlayerNumber(player) == p.Player {
			continue
		}
		if err := peer.Send(ctx, p); err != nil {
			s.log.Warn("failed to relay input", log.Int("player", player), log.Error(err))
		}
	}
}

func (s *Server) broadcast(ctx context.Context, p protocol.Packet) {
	for player, peer := range s.peers {
		if peer == nil {
			continue
		}
		if err := peer.Send(ctx, p); err != nil {
			s.log.Warn("failed to send", log.Int("player", player),
				log.String("type", p.Type().String()), log.Error(err))
		}
	}
}
