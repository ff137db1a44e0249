package physics

import "github.com/zeusync/duelsim/internal/core/ecs"

// Bounds is the rectangle every dynamic body is clamped to.
type Bounds struct {
	Left  float32 `yaml:"left"`
	Right float32 `yaml:"right"`
	Lower float32 `yaml:"lower"`
	Upper float32 `yaml:"upper"`
}

// Settings configures a physics manager.
type Settings struct {
	Gravity float32
	Bounds  Bounds
	// Exclude removes entities carrying any of these bits from integration
	// and from the pair scan.
	Exclude ecs.Mask
}

// Manager owns the rigidbody and collider tables of one timeline and runs
// the physics step over them.
type Manager struct {
	store    *ecs.Store
	settings Settings
	bodies   *ecs.Table[Rigidbody]
	circles  *ecs.Table[CircleCollider]
	boxes    *ecs.Table[BoxCollider]
}

// NewManager creates the physics tables on store.
func NewManager(store *ecs.Store, settings Settings) *Manager {
	return &Manager{
		store:    store,
		settings: settings,
		bodies:   ecs.NewTable[Rigidbody](store, ecs.Rigidbody),
		circles:  ecs.NewTable[CircleCollider](store, ecs.CircleCollider),
		boxes:    ecs.NewTable[BoxCollider](store, ecs.BoxCollider),
	}
}

func (m *Manager) AddRigidbody(e ecs.Entity, body Rigidbody) {
	m.bodies.Add(e)
	m.bodies.Set(e, body)
}

func (m *Manager) SetRigidbody(e ecs.Entity, body Rigidbody) {
	m.bodies.Set(e, body)
}

func (m *Manager) Rigidbody(e ecs.Entity) Rigidbody {
	return m.bodies.Get(e)
}

func (m *Manager) AddCircle(e ecs.Entity, c CircleCollider) {
	m.circles.Add(e)
	m.circles.Set(e, c)
}

func (m *Manager) Circle(e ecs.Entity) CircleCollider {
	return m.circles.Get(e)
}

func (m *Manager) AddBox(e ecs.Entity, b BoxCollider) {
	m.boxes.Add(e)
	m.boxes.Set(e, b)
}

func (m *Manager) Box(e ecs.Entity) BoxCollider {
	return m.boxes.Get(e)
}

// CopyFrom replaces every physics table with the one of other.
func (m *Manager) CopyFrom(other *Manager) {
	m.bodies.CopyFrom(other.bodies)
	m.circles.CopyFrom(other.circles)
	m.boxes.CopyFrom(other.boxes)
}

// FixedUpdate integrates every dynamic body, clamps it to the world bounds
// and reports each overlapping collidable pair to onContact. Pairs are
// visited in ascending entity order.
func (m *Manager) FixedUpdate(dt float32, onContact func(Contact)) {
	m.store.Each(ecs.Rigidbody, func(e ecs.Entity) {
		if m.excluded(e) {
			return
		}
		body := m.bodies.Ptr(e)
		if body.Kind == Static {
			return
		}
		m.integrate(body, dt)
	})

	n := ecs.Entity(m.store.Capacity())
	for e := ecs.Entity(0); e < n; e++ {
		if !m.collidable(e) {
			continue
		}
		for o := e + 1; o < n; o++ {
			// Contacts may destroy either entity; recheck both every time.
			if !m.collidable(e) {
				break
			}
			if !m.collidable(o) {
				continue
			}
			a, b := m.bodies.Get(e), m.bodies.Get(o)
			if a.Kind == Static && b.Kind == Static {
				continue
			}
			sa, sb := m.shape(e, a), m.shape(o, b)
			mtv, ok := overlap(sa, sb)
			if !ok {
				continue
			}
			onContact(Contact{A: e, B: o, MTV: mtv, Trigger: sa.trigger || sb.trigger})
		}
	}
}

func (m *Manager) integrate(body *Rigidbody, dt float32) {
	bounds := m.settings.Bounds

	if body.Position.Y > bounds.Lower {
		body.Velocity.Y += float32(float32(m.settings.Gravity*body.GravityScale) * dt)
	}
	if body.Force.SqrLength() > 0 {
		mass := body.Mass
		if mass <= 0 {
			mass = 1
		}
		body.Velocity = body.Velocity.Add(body.Force.Scale(dt / mass))
		body.Force = Vec2{}
	}

	body.Position = body.Position.Add(body.Velocity.Scale(dt))
	body.Rotation += float32(body.AngularVelocity * dt)

	if body.Position.X < bounds.Left {
		body.Position.X = bounds.Left
		if body.Velocity.X < 0 {
			body.Velocity.X = 0
		}
	}
	if body.Position.Y < bounds.Lower {
		body.Position.Y = bounds.Lower
		if body.Velocity.Y < 0 {
			body.Velocity.Y = 0
		}
	}
	if body.Position.X > bounds.Right {
		body.Position.X = bounds.Right
		if body.Velocity.X > 0 {
			body.Velocity.X = 0
		}
	}
	if body.Position.Y > bounds.Upper {
		body.Position.Y = bounds.Upper
		if body.Velocity.Y > 0 {
			body.Velocity.Y = 0
		}
	}
}

func (m *Manager) excluded(e ecs.Entity) bool {
	return m.settings.Exclude != 0 && m.store.Mask(e).Any(m.settings.Exclude)
}

func (m *Manager) collidable(e ecs.Entity) bool {
	if !m.store.Exists(e) {
		return false
	}
	mask := m.store.Mask(e)
	if !mask.Contains(ecs.Rigidbody) || !mask.Any(ecs.CircleCollider|ecs.BoxCollider) {
		return false
	}
	return !m.excluded(e)
}

func (m *Manager) shape(e ecs.Entity, body Rigidbody) shape {
	if m.store.Has(e, ecs.CircleCollider) {
		return circleShape(body, m.circles.Get(e))
	}
	return boxShape(body, m.boxes.Get(e))
}
