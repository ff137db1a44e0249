package game

import (
	"github.com/zeusync/duelsim/internal/core/ecs"
)

// updateBullets spins every live bullet toward its horizontal direction,
// counts its lifetime down and asks the owner to destroy it once it expires
// or reaches the arena sides.
func (s *Simulation) updateBullets(dt float32) {
	left := float32(s.rules.Bounds.Left * s.rules.BulletBoundFactor)
	right := float32(s.rules.Bounds.Right * s.rules.BulletBoundFactor)
	spin := float32(s.rules.BulletRotationSpeed * dt)

	for i := 0; i < s.store.Capacity(); i++ {
		e := ecs.Entity(i)
		if !s.alive(e, BulletKind|ecs.Rigidbody) {
			continue
		}

		body := s.Physics.Rigidbody(e)
		if body.Velocity.X > 0 {
			body.Rotation += spin
		} else {
			body.Rotation -= spin
		}
		s.Physics.SetRigidbody(e, body)

		bullet := s.bullets.Ptr(e)
		bullet.Remaining -= dt
		if bullet.Remaining <= 0 || body.Position.X <= left || body.Position.X >= right {
			s.owner.DestroyEntity(e)
		}
	}
}
