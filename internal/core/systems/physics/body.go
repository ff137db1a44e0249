package physics

import "github.com/zeusync/duelsim/internal/core/ecs"

// BodyKind selects whether a body is integrated.
type BodyKind uint8

const (
	Dynamic BodyKind = iota
	// Static bodies are placed at spawn and never moved by integration or by
	// collision resolution.
	Static
)

func (k BodyKind) String() string {
	if k == Static {
		return "static"
	}
	return "dynamic"
}

// Rigidbody is the simulated physical state of an entity. Rotation and
// AngularVelocity are expressed in degrees.
type Rigidbody struct {
	Position        Vec2
	Rotation        float32
	Velocity        Vec2
	AngularVelocity float32
	// Force accumulates until the next integration step and is then cleared.
	Force        Vec2
	Kind         BodyKind
	Bounciness   float32
	GravityScale float32
	Mass         float32
}

// NewRigidbody returns a dynamic body at position with unit bounciness,
// gravity scale and mass.
func NewRigidbody(position Vec2) Rigidbody {
	return Rigidbody{
		Position:     position,
		Kind:         Dynamic,
		Bounciness:   1,
		GravityScale: 1,
		Mass:         1,
	}
}

// AddForce accumulates f for the next step.
func (b *Rigidbody) AddForce(f Vec2) {
	b.Force = b.Force.Add(f)
}

// CircleCollider is a circle centred on the body position.
type CircleCollider struct {
	Radius    float32
	IsTrigger bool
}

// BoxCollider is an axis aligned box centred on the body position.
type BoxCollider struct {
	HalfExtents Vec2
	IsTrigger   bool
}

// Contact describes one overlapping pair found during a step. MTV is the
// translation that moves B out of A.
type Contact struct {
	A, B    ecs.Entity
	MTV     Vec2
	Trigger bool
}
