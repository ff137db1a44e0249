package game

import (
	"github.com/zeusync/duelsim/internal/core/ecs"
	"github.com/zeusync/duelsim/internal/core/systems/physics"
)

// updatePlayers applies the current input of every live player: horizontal
// walk as a position bias, edge-triggered jump, facing, timers, animation
// and shooting.
func (s *Simulation) updatePlayers(dt float32) {
	for i := 0; i < s.store.Capacity(); i++ {
		e := ecs.Entity(i)
		if !s.alive(e, PlayerKind|ecs.Rigidbody) {
			continue
		}
		s.updatePlayer(e, dt)
	}
}

func (s *Simulation) updatePlayer(e ecs.Entity, dt float32) {
	pc := s.players.Get(e)
	body := s.Physics.Rigidbody(e)

	right := pc.Input.Has(InputRight)
	left := pc.Input.Has(InputLeft)
	up := pc.Input.Has(InputUp)

	var direction float32
	if left {
		direction--
	}
	if right {
		direction++
	}
	body.Position.X += float32(float32(direction*s.rules.PlayerSpeed) * dt)
	if !left && !right {
		body.Velocity.X = 0
	}
	if direction != 0 {
		pc.Facing = physics.Vec2{X: direction}
	}

	jumped := false
	if up && pc.Grounded {
		body.Velocity.Y += s.rules.PlayerJumpForce
		pc.Grounded = false
		jumped = true
	}
	if !jumped {
		pc.Grounded = body.Position.Y <= s.rules.GroundLevel
	}

	if pc.InvincibilityTime > 0 {
		pc.InvincibilityTime -= dt
	}
	if pc.ShootingTime < s.rules.PlayerShootingPeriod {
		pc.ShootingTime += dt
	}

	switch {
	case !pc.Grounded:
		pc.Animation = AnimationJump
	case direction != 0:
		pc.Animation = AnimationWalk
	default:
		pc.Animation = AnimationIdle
	}

	// Tables may grow when the bullet spawns; write back before.
	shoot := pc.Input.Has(InputShoot) && pc.ShootingTime >= s.rules.PlayerShootingPeriod
	if shoot {
		pc.ShootingTime = 0
	}
	pc.IsShooting = pc.ShootingTime < s.rules.AnimationPeriod
	s.players.Set(e, pc)
	s.Physics.SetRigidbody(e, body)

	if shoot {
		s.owner.SpawnBullet(pc.Player, bulletOrigin(body, pc.Facing, dt), s.bulletVelocity(body, pc.Facing))
	}
}

// bulletVelocity adds the shooter speed to the bullet speed when the
// shooter moves toward the firing direction.
func (s *Simulation) bulletVelocity(body physics.Rigidbody, dir physics.Vec2) physics.Vec2 {
	var carried float32
	if physics.Dot(body.Velocity, dir) > 0 {
		carried = body.Velocity.Length()
	}
	return dir.Scale(carried + s.rules.BulletSpeed)
}

func bulletOrigin(body physics.Rigidbody, dir physics.Vec2, dt float32) physics.Vec2 {
	return body.Position.Add(dir.Scale(0.5)).Add(body.Velocity.Scale(dt))
}
