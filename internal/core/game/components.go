package game

import (
	"github.com/zeusync/duelsim/internal/core/ecs"
	"github.com/zeusync/duelsim/internal/core/systems/physics"
)

// Gameplay component kinds.
const (
	PlayerKind ecs.Mask = ecs.UserKind << iota
	BulletKind
	// Destroyed flags an entity whose destruction waits for validation.
	Destroyed
	WallKind
)

type AnimationState uint8

const (
	AnimationIdle AnimationState = iota
	AnimationWalk
	AnimationJump
)

func (a AnimationState) String() string {
	switch a {
	case AnimationWalk:
		return "walk"
	case AnimationJump:
		return "jump"
	default:
		return "idle"
	}
}

// PlayerCharacter is mutated only by the per-tick pipeline.
type PlayerCharacter struct {
	Player            PlayerNumber
	Input             PlayerInput
	Health            int16
	Facing            physics.Vec2
	Grounded          bool
	ShootingTime      float32
	InvincibilityTime float32
	Animation         AnimationState
	IsShooting        bool
}

type Bullet struct {
	Remaining float32
	Owner     PlayerNumber
}

// Transform is the presentation view of a body, projected after every
// resimulation. It never feeds back into the pipeline.
type Transform struct {
	Position physics.Vec2
	Rotation float32
	Scale    physics.Vec2
}

// Owner receives the spawn and destroy requests issued from inside the
// pipeline.
type Owner interface {
	SpawnBullet(owner PlayerNumber, position, velocity physics.Vec2) ecs.Entity
	DestroyEntity(e ecs.Entity)
}
