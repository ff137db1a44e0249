package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/duelsim/internal/core/ecs"
)

const testDt = float32(0.02)

var testBounds = Bounds{Left: -6, Right: 6, Lower: -6, Upper: 6}

func newTestManager(t *testing.T) (*ecs.Store, *Manager) {
	t.Helper()
	store := ecs.NewStore(8)
	return store, NewManager(store, Settings{Gravity: -9.81, Bounds: testBounds})
}

func TestOverlapCircles(t *testing.T) {
	mtv, ok := OverlapCircles(Vec2{X: 0}, 0.5, Vec2{X: 0.8}, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 0.2, mtv.X, 1e-6)
	assert.InDelta(t, 0, mtv.Y, 1e-6)

	_, ok = OverlapCircles(Vec2{X: 0}, 0.5, Vec2{X: 1.5}, 0.5)
	assert.False(t, ok)

	_, ok = OverlapCircles(Vec2{X: 0}, 0.5, Vec2{X: 1}, 0.5)
	assert.True(t, ok, "touching circles overlap")
}

func TestOverlapCircleBox(t *testing.T) {
	mtv, ok := OverlapCircleBox(Vec2{X: -1.2}, 0.25, Vec2{}, Vec2{X: 1, Y: 1})
	require.True(t, ok)
	assert.InDelta(t, 0.05, mtv.X, 1e-6, "box pushed away from the circle along +x")

	_, ok = OverlapCircleBox(Vec2{X: -2}, 0.25, Vec2{}, Vec2{X: 1, Y: 1})
	assert.False(t, ok)

	mtv, ok = OverlapCircleBox(Vec2{Y: 0.9}, 0.25, Vec2{}, Vec2{X: 1, Y: 1})
	require.True(t, ok, "centre inside the box")
	assert.InDelta(t, -0.35, mtv.Y, 1e-6)
	assert.Zero(t, mtv.X)
}

func TestOverlapBoxes(t *testing.T) {
	mtv, ok := OverlapBoxes(Vec2{}, Vec2{X: 1, Y: 1}, Vec2{X: 1.5, Y: 0.2}, Vec2{X: 1, Y: 1})
	require.True(t, ok)
	assert.InDelta(t, 0.5, mtv.X, 1e-6)
	assert.Zero(t, mtv.Y)

	_, ok = OverlapBoxes(Vec2{}, Vec2{X: 1, Y: 1}, Vec2{X: 3}, Vec2{X: 1, Y: 1})
	assert.False(t, ok)
}

func TestSolveCollision_ElasticExchange(t *testing.T) {
	a := NewRigidbody(Vec2{X: 0})
	b := NewRigidbody(Vec2{X: 0.4})
	a.Velocity = Vec2{X: 1, Y: 0.5}
	b.Velocity = Vec2{X: -2}

	SolveCollision(&a, &b, Vec2{X: 0.1})

	assert.InDelta(t, -2, a.Velocity.X, 1e-6)
	assert.InDelta(t, 0.5, a.Velocity.Y, 1e-6, "tangential component kept")
	assert.InDelta(t, 1, b.Velocity.X, 1e-6)
	assert.InDelta(t, 0, b.Velocity.Y, 1e-6)
}

func TestSolveCollision_StaticIsImmovable(t *testing.T) {
	player := NewRigidbody(Vec2{X: 0})
	player.Velocity = Vec2{X: 3, Y: 1}
	wall := NewRigidbody(Vec2{X: 1})
	wall.Kind = Static
	wall.Bounciness = 0

	SolveCollision(&player, &wall, Vec2{X: 0.1})
	assert.InDelta(t, 0, player.Velocity.X, 1e-6)
	assert.InDelta(t, 1, player.Velocity.Y, 1e-6)
	assert.Equal(t, Vec2{}, wall.Velocity)

	SolveMTV(&player, &wall, Vec2{X: 0.1})
	assert.InDelta(t, -0.1, player.Position.X, 1e-6)
	assert.Equal(t, float32(1), wall.Position.X)
}

func TestSolveMTV_SplitsBetweenDynamicBodies(t *testing.T) {
	a := NewRigidbody(Vec2{X: 0})
	b := NewRigidbody(Vec2{X: 0.4})
	SolveMTV(&a, &b, Vec2{X: 0.1})
	assert.InDelta(t, -0.05, a.Position.X, 1e-6)
	assert.InDelta(t, 0.45, b.Position.X, 1e-6)
}

func TestManager_IntegratesAndClamps(t *testing.T) {
	store, m := newTestManager(t)

	falling := store.Create()
	m.AddRigidbody(falling, NewRigidbody(Vec2{Y: 0}))

	edge := store.Create()
	body := NewRigidbody(Vec2{X: 5.99})
	body.Velocity = Vec2{X: 10}
	body.GravityScale = 0
	m.AddRigidbody(edge, body)

	wall := store.Create()
	static := NewRigidbody(Vec2{X: 1, Y: 1})
	static.Kind = Static
	m.AddRigidbody(wall, static)

	m.FixedUpdate(testDt, func(Contact) { t.Fatal("no colliders registered") })

	got := m.Rigidbody(falling)
	assert.InDelta(t, -9.81*0.02, got.Velocity.Y, 1e-6)
	assert.InDelta(t, -9.81*0.02*0.02, got.Position.Y, 1e-6)

	got = m.Rigidbody(edge)
	assert.Equal(t, float32(6), got.Position.X)
	assert.Zero(t, got.Velocity.X, "outward velocity is cancelled at the bound")

	assert.Equal(t, static, m.Rigidbody(wall), "static bodies are never integrated")
}

func TestManager_ForceIsConsumed(t *testing.T) {
	store, m := newTestManager(t)
	e := store.Create()
	body := NewRigidbody(Vec2{})
	body.GravityScale = 0
	body.Mass = 2
	body.AddForce(Vec2{X: 4})
	m.AddRigidbody(e, body)

	m.FixedUpdate(testDt, func(Contact) {})
	got := m.Rigidbody(e)
	assert.InDelta(t, 0.04, got.Velocity.X, 1e-6)
	assert.Equal(t, Vec2{}, got.Force)
}

func TestManager_ReportsContactsInOrder(t *testing.T) {
	store, m := newTestManager(t)

	spawn := func(x float32, trigger bool) ecs.Entity {
		e := store.Create()
		b := NewRigidbody(Vec2{X: x})
		b.GravityScale = 0
		m.AddRigidbody(e, b)
		m.AddCircle(e, CircleCollider{Radius: 0.25, IsTrigger: trigger})
		return e
	}
	a := spawn(0, false)
	b := spawn(0.3, false)
	c := spawn(0.6, true)
	spawn(4, false)

	var contacts []Contact
	m.FixedUpdate(testDt, func(c Contact) { contacts = append(contacts, c) })

	require.Len(t, contacts, 2)
	assert.Equal(t, a, contacts[0].A)
	assert.Equal(t, b, contacts[0].B)
	assert.False(t, contacts[0].Trigger)
	assert.Equal(t, b, contacts[1].A)
	assert.Equal(t, c, contacts[1].B)
	assert.True(t, contacts[1].Trigger)
}

func TestManager_ExcludedEntitiesAreSkipped(t *testing.T) {
	store := ecs.NewStore(4)
	const gone = ecs.UserKind
	m := NewManager(store, Settings{Bounds: testBounds, Exclude: gone})

	for i := 0; i < 2; i++ {
		e := store.Create()
		m.AddRigidbody(e, NewRigidbody(Vec2{}))
		m.AddCircle(e, CircleCollider{Radius: 1})
		if i == 1 {
			store.AddComponent(e, gone)
		}
	}

	called := false
	m.FixedUpdate(testDt, func(Contact) { called = true })
	assert.False(t, called)
}

func TestManager_CopyFrom(t *testing.T) {
	store := ecs.NewStore(4)
	validated := NewManager(store, Settings{Bounds: testBounds})
	predicted := NewManager(store, Settings{Bounds: testBounds})

	e := store.Create()
	validated.AddRigidbody(e, NewRigidbody(Vec2{X: 2}))
	validated.AddCircle(e, CircleCollider{Radius: 0.25})

	predicted.CopyFrom(validated)
	assert.Equal(t, validated.Rigidbody(e), predicted.Rigidbody(e))
	assert.Equal(t, validated.Circle(e), predicted.Circle(e))
}
