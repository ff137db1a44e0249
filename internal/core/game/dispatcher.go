package game

import (
	"github.com/zeusync/duelsim/internal/core/ecs"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/systems/physics"
)

// pairRule resolves a contact between an entity matching a and one
// matching b. mtv moves the second entity out of the first.
type pairRule struct {
	a, b    ecs.Mask
	resolve func(s *Simulation, a, b ecs.Entity, mtv physics.Vec2, trigger bool)
}

// pairRules is evaluated in order; the first rule matching the pair in
// either orientation wins.
var pairRules = []pairRule{
	{a: PlayerKind, b: PlayerKind, resolve: (*Simulation).bouncePlayers},
	{a: PlayerKind, b: BulletKind, resolve: (*Simulation).hitPlayer},
	{a: BulletKind, b: BulletKind, resolve: (*Simulation).clashBullets},
	{a: PlayerKind, b: WallKind, resolve: (*Simulation).pushOutOfWall},
	{a: BulletKind, b: WallKind, resolve: (*Simulation).stopBullet},
}

// Dispatcher turns physics contacts into gameplay reactions on one
// timeline.
type Dispatcher struct {
	sim *Simulation
}

func NewDispatcher(sim *Simulation) *Dispatcher {
	return &Dispatcher{sim: sim}
}

// Dispatch applies the rule matching the pair of c, if any.
func (d *Dispatcher) Dispatch(c physics.Contact) {
	s := d.sim
	ma, mb := s.store.Mask(c.A), s.store.Mask(c.B)
	for _, r := range pairRules {
		switch {
		case ma.Contains(r.a) && mb.Contains(r.b):
			r.resolve(s, c.A, c.B, c.MTV, c.Trigger)
			return
		case ma.Contains(r.b) && mb.Contains(r.a):
			r.resolve(s, c.B, c.A, c.MTV.Scale(-1), c.Trigger)
			return
		}
	}
}

func (s *Simulation) bouncePlayers(a, b ecs.Entity, mtv physics.Vec2, trigger bool) {
	if trigger {
		return
	}
	ba, bb := s.Physics.Rigidbody(a), s.Physics.Rigidbody(b)
	physics.SolveCollision(&ba, &bb, mtv)
	physics.SolveMTV(&ba, &bb, mtv)
	s.Physics.SetRigidbody(a, ba)
	s.Physics.SetRigidbody(b, bb)
}

func (s *Simulation) hitPlayer(player, bullet ecs.Entity, _ physics.Vec2, _ bool) {
	pc := s.players.Get(player)
	shot := s.bullets.Get(bullet)
	if pc.Player == shot.Owner {
		return
	}

	bulletBody := s.Physics.Rigidbody(bullet)
	s.owner.DestroyEntity(bullet)

	if pc.InvincibilityTime > 0 {
		return
	}
	pc.Health--
	pc.InvincibilityTime = s.rules.PlayerInvincibilityPeriod
	s.players.Set(player, pc)

	body := s.Physics.Rigidbody(player)
	body.Velocity = body.Velocity.Add(bulletBody.Velocity.Normalized().Scale(s.rules.PlayerKnockback))
	s.Physics.SetRigidbody(player, body)

	s.log.Debug("player hit",
		log.Uint8("player", uint8(pc.Player)),
		log.Uint8("shooter", uint8(shot.Owner)),
		log.Int("health", int(pc.Health)))
}

func (s *Simulation) clashBullets(a, b ecs.Entity, mtv physics.Vec2, _ bool) {
	ba, bb := s.Physics.Rigidbody(a), s.Physics.Rigidbody(b)
	physics.SolveCollision(&ba, &bb, mtv)
	s.Physics.SetRigidbody(a, ba)
	s.Physics.SetRigidbody(b, bb)
	s.owner.DestroyEntity(a)
	s.owner.DestroyEntity(b)
}

func (s *Simulation) pushOutOfWall(player, wall ecs.Entity, mtv physics.Vec2, trigger bool) {
	if trigger {
		return
	}
	bp, bw := s.Physics.Rigidbody(player), s.Physics.Rigidbody(wall)
	physics.SolveCollision(&bp, &bw, mtv)
	physics.SolveMTV(&bp, &bw, mtv)
	s.Physics.SetRigidbody(player, bp)
}

func (s *Simulation) stopBullet(bullet, _ ecs.Entity, _ physics.Vec2, _ bool) {
	s.owner.DestroyEntity(bullet)
}
