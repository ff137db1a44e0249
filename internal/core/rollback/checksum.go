package rollback

import (
	"math"

	"github.com/zeusync/duelsim/internal/core/systems/physics"
)

// PhysicsState is the checksum of one participant body.
type PhysicsState uint32

// Checksum sums the IEEE-754 bit patterns of position, velocity, rotation
// and angular velocity with uint32 wrap-around.
func Checksum(body physics.Rigidbody) PhysicsState {
	var sum uint32
	for _, v := range [...]float32{
		body.Position.X, body.Position.Y,
		body.Velocity.X, body.Velocity.Y,
		body.Rotation,
		body.AngularVelocity,
	} {
		sum += math.Float32bits(v)
	}
	return PhysicsState(sum)
}
