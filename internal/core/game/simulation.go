package game

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/zeusync/duelsim/internal/core/ecs"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/systems/physics"
	"github.com/zeusync/duelsim/pkg/generic"
)

var digests = generic.NewPool(xxhash.New, (*xxhash.Digest).Reset)

// Simulation is one timeline: the component tables of every gameplay and
// physics kind over a store shared with other timelines. Masks live in the
// store, so only the tables are duplicated between timelines.
type Simulation struct {
	store   *ecs.Store
	rules   Rules
	owner   Owner
	log     log.Log
	Physics *physics.Manager
	players *ecs.Table[PlayerCharacter]
	bullets *ecs.Table[Bullet]

	dispatcher *Dispatcher
}

// NewSimulation registers a fresh set of tables on store. Spawn and
// destroy requests raised while stepping are forwarded to owner.
func NewSimulation(store *ecs.Store, rules Rules, owner Owner, logger log.Log) *Simulation {
	s := &Simulation{
		store:   store,
		rules:   rules,
		owner:   owner,
		log:     logger,
		Physics: physics.NewManager(store, rules.PhysicsSettings()),
		players: ecs.NewTable[PlayerCharacter](store, PlayerKind),
		bullets: ecs.NewTable[Bullet](store, BulletKind),
	}
	s.dispatcher = NewDispatcher(s)
	return s
}

func (s *Simulation) Store() *ecs.Store { return s.store }
func (s *Simulation) Rules() Rules      { return s.rules }

// CopyFrom restores every table of s from other. Both must share a store.
func (s *Simulation) CopyFrom(other *Simulation) {
	s.Physics.CopyFrom(other.Physics)
	s.players.CopyFrom(other.players)
	s.bullets.CopyFrom(other.bullets)
}

// AddPlayer attaches the player components and its dynamic circle body to e.
func (s *Simulation) AddPlayer(e ecs.Entity, player PlayerNumber, position, facing physics.Vec2) {
	s.players.Add(e)
	s.players.Set(e, PlayerCharacter{
		Player:       player,
		Health:       s.rules.PlayerHealth,
		Facing:       facing,
		ShootingTime: s.rules.PlayerShootingPeriod,
	})
	s.Physics.AddRigidbody(e, physics.NewRigidbody(position))
	s.Physics.AddCircle(e, physics.CircleCollider{Radius: s.rules.PlayerRadius})
}

// AddBullet attaches a gravity-free trigger circle owned by player.
func (s *Simulation) AddBullet(e ecs.Entity, player PlayerNumber, position, velocity physics.Vec2) {
	s.bullets.Add(e)
	s.bullets.Set(e, Bullet{Remaining: s.rules.BulletPeriod, Owner: player})

	body := physics.NewRigidbody(position)
	body.Velocity = velocity
	body.GravityScale = 0
	s.Physics.AddRigidbody(e, body)
	s.Physics.AddCircle(e, physics.CircleCollider{Radius: s.rules.BulletRadius, IsTrigger: true})
}

// AddWall attaches an immovable box to e.
func (s *Simulation) AddWall(e ecs.Entity, position, halfExtents physics.Vec2) {
	s.store.AddComponent(e, WallKind)
	body := physics.NewRigidbody(position)
	body.Kind = physics.Static
	body.GravityScale = 0
	body.Bounciness = 0
	s.Physics.AddRigidbody(e, body)
	s.Physics.AddBox(e, physics.BoxCollider{HalfExtents: halfExtents})
}

func (s *Simulation) Player(e ecs.Entity) PlayerCharacter {
	return s.players.Get(e)
}

func (s *Simulation) SetPlayer(e ecs.Entity, pc PlayerCharacter) {
	s.players.Set(e, pc)
}

func (s *Simulation) Bullet(e ecs.Entity) Bullet {
	return s.bullets.Get(e)
}

// SetInput stores the input the player system reads on the next Step.
func (s *Simulation) SetInput(e ecs.Entity, input PlayerInput) {
	s.players.Ptr(e).Input = input
}

// Step runs one tick: bullets, then players, then physics with contact
// dispatch. The order is fixed.
func (s *Simulation) Step() {
	dt := s.rules.FixedPeriod
	s.updateBullets(dt)
	s.updatePlayers(dt)
	s.Physics.FixedUpdate(dt, s.dispatcher.Dispatch)
}

// alive reports whether e exists, carries kind and is not pending
// destruction.
func (s *Simulation) alive(e ecs.Entity, kind ecs.Mask) bool {
	if !s.store.Exists(e) {
		return false
	}
	m := s.store.Mask(e)
	return m.Contains(kind) && !m.Any(Destroyed)
}

// Digest hashes the complete state of the timeline in entity order. Two
// timelines with equal digests hold bit-identical components.
func (s *Simulation) Digest() uint64 {
	h := digests.Get()
	defer digests.Put(h)
	buf := make([]byte, 0, 128)

	for i := 0; i < s.store.Capacity(); i++ {
		e := ecs.Entity(i)
		if !s.store.Exists(e) {
			continue
		}
		m := s.store.Mask(e)
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(e))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(m))

		if m.Contains(ecs.Rigidbody) {
			b := s.Physics.Rigidbody(e)
			buf = appendFloats(buf, b.Position.X, b.Position.Y, b.Rotation,
				b.Velocity.X, b.Velocity.Y, b.AngularVelocity, b.Force.X, b.Force.Y)
		}
		if m.Contains(PlayerKind) {
			p := s.players.Get(e)
			buf = append(buf, byte(p.Player), byte(p.Input), byte(p.Animation), boolByte(p.Grounded), boolByte(p.IsShooting))
			buf = binary.LittleEndian.AppendUint16(buf, uint16(p.Health))
			buf = appendFloats(buf, p.Facing.X, p.Facing.Y, p.ShootingTime, p.InvincibilityTime)
		}
		if m.Contains(BulletKind) {
			b := s.bullets.Get(e)
			buf = append(buf, byte(b.Owner))
			buf = appendFloats(buf, b.Remaining)
		}
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func appendFloats(buf []byte, values ...float32) []byte {
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
