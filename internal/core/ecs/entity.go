package ecs

import (
	"fmt"
	"math"
)

// Entity is a dense index into the store. It is only meaningful while its
// mask is not Free.
type Entity uint32

// InvalidEntity denotes "no entity".
const InvalidEntity Entity = math.MaxUint32

// DefaultCapacity is the number of slots a store starts with.
const DefaultCapacity = 64

// Resizer is implemented by every component table that must follow the
// store capacity.
type Resizer interface {
	Resize(capacity int)
}

// Store owns one composition mask per entity slot and is the single source
// of truth for entity existence.
type Store struct {
	masks  []Mask
	tables []Resizer
}

// NewStore creates a store with the given initial capacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{masks: make([]Mask, capacity)}
	for i := range s.masks {
		s.masks[i] = Free
	}
	return s
}

// Track registers a table so that it is resized together with the masks.
// The table is resized to the current capacity immediately.
func (s *Store) Track(table Resizer) {
	table.Resize(len(s.masks))
	s.tables = append(s.tables, table)
}

// Capacity returns the number of slots, alive or free.
func (s *Store) Capacity() int {
	return len(s.masks)
}

// Create returns the first free slot, growing the store by half its size
// when none is left. The new entity is alive with an empty mask.
func (s *Store) Create() Entity {
	for i, m := range s.masks {
		if m == Free {
			s.masks[i] = Empty
			return Entity(i)
		}
	}

	e := len(s.masks)
	s.grow(e + e/2)
	s.masks[e] = Empty
	return Entity(e)
}

func (s *Store) grow(capacity int) {
	if capacity <= len(s.masks) {
		capacity = len(s.masks) + 1
	}
	masks := make([]Mask, capacity)
	copy(masks, s.masks)
	for i := len(s.masks); i < capacity; i++ {
		masks[i] = Free
	}
	s.masks = masks
	for _, t := range s.tables {
		t.Resize(capacity)
	}
}

// Destroy frees the slot. Destroying an invalid or free entity is a caller
// bug.
func (s *Store) Destroy(e Entity) {
	s.checkAlive(e)
	s.masks[e] = Free
}

// Exists reports whether e refers to an alive entity.
func (s *Store) Exists(e Entity) bool {
	if e == InvalidEntity || int(e) >= len(s.masks) {
		return false
	}
	return s.masks[e] != Free
}

// AddComponent sets the bits of kind in the entity mask.
func (s *Store) AddComponent(e Entity, kind Mask) {
	s.checkAlive(e)
	s.masks[e] |= kind
}

// RemoveComponent clears the bits of kind in the entity mask.
func (s *Store) RemoveComponent(e Entity, kind Mask) {
	s.checkAlive(e)
	s.masks[e] &^= kind
}

// Has reports whether the entity carries every bit of mask. A free slot
// never matches.
func (s *Store) Has(e Entity, mask Mask) bool {
	s.check(e)
	m := s.masks[e]
	if m == Free {
		return false
	}
	return m.Contains(mask)
}

// Mask returns the raw composition of e.
func (s *Store) Mask(e Entity) Mask {
	s.check(e)
	return s.masks[e]
}

// Each calls fn for every alive entity carrying mask, in index order.
func (s *Store) Each(mask Mask, fn func(Entity)) {
	for i := range s.masks {
		m := s.masks[i]
		if m != Free && m.Contains(mask) {
			fn(Entity(i))
		}
	}
}

func (s *Store) check(e Entity) {
	if e == InvalidEntity || int(e) >= len(s.masks) {
		panic(fmt.Sprintf("ecs: invalid entity %d (capacity %d)", e, len(s.masks)))
	}
}

// checkAlive rejects free slots on top of check. Writing a mask into a free
// slot would resurrect it.
func (s *Store) checkAlive(e Entity) {
	s.check(e)
	if s.masks[e] == Free {
		panic(fmt.Sprintf("ecs: entity %d is not alive", e))
	}
}
