package ecs

// Table holds one component type in a dense array parallel to the store
// masks. Slot e is meaningful only while the store mask of e carries Kind.
type Table[T any] struct {
	store *Store
	kind  Mask
	data  []T
}

// NewTable creates a table for kind and registers it with the store so it
// grows in lockstep with the masks.
func NewTable[T any](store *Store, kind Mask) *Table[T] {
	t := &Table[T]{store: store, kind: kind}
	store.Track(t)
	return t
}

// Kind returns the component bit this table is bound to.
func (t *Table[T]) Kind() Mask {
	return t.kind
}

// Resize grows or shrinks the backing array, keeping existing values.
func (t *Table[T]) Resize(capacity int) {
	if capacity <= cap(t.data) {
		t.data = t.data[:capacity]
		return
	}
	data := make([]T, capacity)
	copy(data, t.data)
	t.data = data
}

// Len returns the backing array length.
func (t *Table[T]) Len() int {
	return len(t.data)
}

// Add marks the component present on e and resets its slot.
func (t *Table[T]) Add(e Entity) {
	t.store.AddComponent(e, t.kind)
	var zero T
	t.data[e] = zero
}

// Remove clears the component bit of e. Storage is left untouched.
func (t *Table[T]) Remove(e Entity) {
	t.store.RemoveComponent(e, t.kind)
}

// Get returns a copy of the component of e.
func (t *Table[T]) Get(e Entity) T {
	return t.data[e]
}

// Ptr returns a pointer into the backing array. It is invalidated by the
// next store growth.
func (t *Table[T]) Ptr(e Entity) *T {
	return &t.data[e]
}

// Set overwrites the component of e.
func (t *Table[T]) Set(e Entity, v T) {
	t.data[e] = v
}

// All exposes the backing array for snapshotting.
func (t *Table[T]) All() []T {
	return t.data
}

// CopyFrom replaces every slot with the contents of other.
func (t *Table[T]) CopyFrom(other *Table[T]) {
	if len(t.data) != len(other.data) {
		t.Resize(len(other.data))
	}
	copy(t.data, other.data)
}
