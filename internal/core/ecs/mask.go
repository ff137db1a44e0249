package ecs

import "math"

// Mask is a composition bitset; each bit marks one component kind.
type Mask uint32

const (
	// Empty is the mask of an alive entity without components.
	Empty Mask = 0
	// Free marks an unused slot. An entity exists iff its mask is not Free.
	Free Mask = math.MaxUint32
)

// Core component kinds. Gameplay kinds start at UserKind.
const (
	Transform Mask = 1 << iota
	Rigidbody
	CircleCollider
	BoxCollider
	UserKind
)

// Contains reports whether every bit of sub is set in m.
func (m Mask) Contains(sub Mask) bool {
	return m&sub == sub
}

// Any reports whether at least one bit of sub is set in m.
func (m Mask) Any(sub Mask) bool {
	return m&sub != 0
}
