package rollback

import (
	"errors"
	"fmt"

	"github.com/zeusync/duelsim/internal/core/ecs"
	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/systems/physics"
)

// Settings sizes the reconciliation window.
type Settings struct {
	// WindowSize is the number of frames of input kept per participant.
	WindowSize int `yaml:"window_size"`
	// MaxInputs is the number of inputs carried by one input packet.
	MaxInputs int `yaml:"max_inputs"`
}

func DefaultSettings() Settings {
	return Settings{WindowSize: DefaultWindowSize, MaxInputs: 50}
}

// createdEntity records an entity spawned while replaying testedFrame.
type createdEntity struct {
	entity ecs.Entity
	frame  game.Frame
}

var _ game.Owner = (*Manager)(nil)

// Manager keeps the predicted and validated timelines over one store and
// replays the pipeline whenever input or confirmation arrives. Calls must
// not overlap.
type Manager struct {
	log      log.Log
	rules    game.Rules
	settings Settings

	store      *ecs.Store
	current    *game.Simulation
	validated  *game.Simulation
	transforms *ecs.Table[game.Transform]

	inputs       [game.MaxPlayers]*History
	lastReceived [game.MaxPlayers]game.Frame
	players      [game.MaxPlayers]ecs.Entity

	currentFrame   game.Frame
	lastValidated  game.Frame
	testedFrame    game.Frame
	created        []createdEntity
	reclaim        []ecs.Entity
	validateDigest uint64
}

func NewManager(rules game.Rules, settings Settings, logger log.Log) *Manager {
	store := ecs.NewStore(ecs.DefaultCapacity)
	m := &Manager{
		log:        logger.With(log.String("component", "rollback")),
		rules:      rules,
		settings:   settings,
		store:      store,
		transforms: ecs.NewTable[game.Transform](store, ecs.Transform),
	}
	m.current = game.NewSimulation(store, rules, m, m.log)
	m.validated = game.NewSimulation(store, rules, m, m.log)
	for p := range m.inputs {
		m.inputs[p] = NewHistory(settings.WindowSize)
		m.players[p] = ecs.InvalidEntity
	}
	m.validateDigest = m.validated.Digest()
	return m
}

func (m *Manager) CurrentFrame() game.Frame       { return m.currentFrame }
func (m *Manager) LastValidatedFrame() game.Frame { return m.lastValidated }
func (m *Manager) Store() *ecs.Store              { return m.store }

// Current is the predicted timeline.
func (m *Manager) Current() *game.Simulation { return m.current }

// Validated is the timeline confirmed up to LastValidatedFrame.
func (m *Manager) Validated() *game.Simulation { return m.validated }

// ValidatedDigest is the state hash taken after the last validation.
func (m *Manager) ValidatedDigest() uint64 { return m.validateDigest }

func (m *Manager) LastReceivedFrame(player game.PlayerNumber) game.Frame {
	return m.lastReceived[player]
}

// PlayerEntity returns ecs.InvalidEntity until the participant is spawned.
func (m *Manager) PlayerEntity(player game.PlayerNumber) ecs.Entity {
	return m.players[player]
}

func (m *Manager) Transform(e ecs.Entity) game.Transform {
	return m.transforms.Get(e)
}

// Inputs returns up to n inputs of player, newest first, starting at the
// current frame.
func (m *Manager) Inputs(player game.PlayerNumber, n int) []game.PlayerInput {
	return m.inputs[player].Window(n)
}

// SetInput records the input of player for frame. A frame ahead of the
// clock advances it first. The newest input received is repeated up to the
// current frame.
func (m *Manager) SetInput(player game.PlayerNumber, input game.PlayerInput, frame game.Frame) {
	if frame > m.currentFrame {
		m.StartNewFrame(frame)
	}
	offset := uint32(m.currentFrame - frame)
	history := m.inputs[player]
	history.Set(offset, input)

	if m.lastReceived[player] < frame {
		m.lastReceived[player] = frame
		history.Fill(offset, input)
	}
}

// StartNewFrame advances the clock to frame. Older frames are ignored.
func (m *Manager) StartNewFrame(frame game.Frame) {
	if frame <= m.currentFrame {
		return
	}
	delta := uint32(frame - m.currentFrame)
	for _, h := range m.inputs {
		h.Shift(delta)
	}
	m.currentFrame = frame
}

// InputAt returns the recorded input of player for frame. Frames ahead of
// the clock or older than the window panic.
func (m *Manager) InputAt(player game.PlayerNumber, frame game.Frame) game.PlayerInput {
	if frame > m.currentFrame {
		precondition("input at", "frame %d is ahead of current frame %d", frame, m.currentFrame)
	}
	return m.inputs[player].At(uint32(m.currentFrame - frame))
}

// SimulateToCurrent rebuilds the predicted timeline from the validated one
// and replays every frame up to the current one.
func (m *Manager) SimulateToCurrent() {
	m.rewind()
	m.replay(m.lastValidated+1, m.currentFrame)
	m.reclaimPending()
	m.project()
}

// Validate replays up to frame and commits the result as the validated
// timeline. Every participant must have sent input up to frame.
func (m *Manager) Validate(frame game.Frame) error {
	if frame <= m.lastValidated {
		return fmt.Errorf("%w: %d (last validated %d)", ErrFrameAlreadyValidated, frame, m.lastValidated)
	}
	for p := range m.lastReceived {
		if m.lastReceived[p] < frame {
			precondition("validate", "frame %d without input of player %d (last received %d)",
				frame, p, m.lastReceived[p])
		}
	}

	m.rewind()
	m.replay(m.lastValidated+1, frame)
	m.reclaimPending()

	for i := 0; i < m.store.Capacity(); i++ {
		e := ecs.Entity(i)
		if m.store.Exists(e) && m.store.Has(e, game.Destroyed) {
			m.store.Destroy(e)
		}
	}
	m.validated.CopyFrom(m.current)
	m.lastValidated = frame
	m.created = m.created[:0]
	m.validateDigest = m.validated.Digest()

	m.log.Debug("frame validated",
		log.Uint32("frame", uint32(frame)),
		log.Uint64("digest", m.validateDigest))
	return nil
}

// Confirm validates frame and compares the checksum of every participant
// against the authority. A mismatch is returned as a *DesyncError.
func (m *Manager) Confirm(frame game.Frame, authority [game.MaxPlayers]PhysicsState) error {
	if err := m.Validate(frame); err != nil {
		return err
	}

	var mismatches []Mismatch
	for p := range authority {
		player := game.PlayerNumber(p)
		if m.players[p] == ecs.InvalidEntity {
			m.log.Warn("confirm for unknown player", log.Uint8("player", uint8(player)))
			continue
		}
		local := m.ValidatedPhysicsState(player)
		if local != authority[p] {
			mismatches = append(mismatches, Mismatch{Player: player, Authority: authority[p], Local: local})
		}
	}
	if len(mismatches) == 0 {
		return nil
	}

	err := &DesyncError{Frame: frame, Mismatches: mismatches}
	m.log.Error("physics state mismatch", log.Uint32("frame", uint32(frame)), log.Error(err))
	return err
}

// ValidatedPhysicsState is the checksum of the player body on the
// validated timeline.
func (m *Manager) ValidatedPhysicsState(player game.PlayerNumber) PhysicsState {
	e := m.players[player]
	if e == ecs.InvalidEntity {
		return 0
	}
	return Checksum(m.validated.Physics.Rigidbody(e))
}

// SpawnPlayer creates the participant entity on both timelines.
func (m *Manager) SpawnPlayer(player game.PlayerNumber, position, facing physics.Vec2) ecs.Entity {
	e := m.store.Create()
	m.players[player] = e
	m.current.AddPlayer(e, player, position, facing)
	m.validated.AddPlayer(e, player, position, facing)
	m.addTransform(e, position, physics.Vec2{X: 1, Y: 1})

	m.log.Info("player spawned",
		log.Uint8("player", uint8(player)),
		log.Uint32("entity", uint32(e)))
	return e
}

// SpawnWall creates static level geometry on both timelines.
func (m *Manager) SpawnWall(position, halfExtents physics.Vec2) ecs.Entity {
	e := m.store.Create()
	m.current.AddWall(e, position, halfExtents)
	m.validated.AddWall(e, position, halfExtents)
	m.addTransform(e, position, halfExtents.Scale(2))
	return e
}

// SpawnBullet is called from the pipeline while replaying testedFrame. The
// bullet only exists on the predicted timeline until validated.
func (m *Manager) SpawnBullet(owner game.PlayerNumber, position, velocity physics.Vec2) ecs.Entity {
	e := m.store.Create()
	m.created = append(m.created, createdEntity{entity: e, frame: m.testedFrame})
	m.current.AddBullet(e, owner, position, velocity)
	scale := m.rules.BulletScale
	m.addTransform(e, position, physics.Vec2{X: scale, Y: scale})
	return e
}

// DestroyEntity flags e as destroyed. Entities spawned during the running
// pass are reclaimed when the pass ends, the others when validated.
func (m *Manager) DestroyEntity(e ecs.Entity) {
	if m.store.Has(e, game.Destroyed) {
		return
	}
	m.store.AddComponent(e, game.Destroyed)

	for i, c := range m.created {
		if c.entity == e {
			m.created = append(m.created[:i], m.created[i+1:]...)
			m.reclaim = append(m.reclaim, e)
			return
		}
	}
}

func (m *Manager) addTransform(e ecs.Entity, position, scale physics.Vec2) {
	m.transforms.Add(e)
	m.transforms.Set(e, game.Transform{Position: position, Scale: scale})
}

// rewind drops what the last speculative pass created or flagged and
// restores the predicted tables from the validated ones.
func (m *Manager) rewind() {
	for _, c := range m.created {
		if c.frame > m.lastValidated && m.store.Exists(c.entity) {
			m.store.Destroy(c.entity)
		}
	}
	m.created = m.created[:0]

	for i := 0; i < m.store.Capacity(); i++ {
		e := ecs.Entity(i)
		if m.store.Exists(e) && m.store.Has(e, game.Destroyed) {
			m.store.RemoveComponent(e, game.Destroyed)
		}
	}
	m.current.CopyFrom(m.validated)
}

// replay steps the predicted timeline through [from, to] with the
// recorded inputs.
func (m *Manager) replay(from, to game.Frame) {
	missing := [game.MaxPlayers]bool{}
	for frame := from; frame <= to && frame >= from; frame++ {
		m.testedFrame = frame
		for p, e := range m.players {
			if e == ecs.InvalidEntity {
				missing[p] = true
				continue
			}
			m.current.SetInput(e, m.InputAt(game.PlayerNumber(p), frame))
		}
		m.current.Step()
	}
	for p, miss := range missing {
		if miss {
			m.log.Warn("replay without player entity", log.Int("player", p))
		}
	}
}

// reclaimPending frees the entities both spawned and destroyed during the
// pass. Their ids stay reserved until the pass is over.
func (m *Manager) reclaimPending() {
	for _, e := range m.reclaim {
		if m.store.Exists(e) {
			m.store.Destroy(e)
		}
	}
	m.reclaim = m.reclaim[:0]
}

// project copies the predicted bodies into the presentation transforms.
func (m *Manager) project() {
	m.store.Each(ecs.Transform|ecs.Rigidbody, func(e ecs.Entity) {
		if m.store.Has(e, game.Destroyed) {
			return
		}
		body := m.current.Physics.Rigidbody(e)
		t := m.transforms.Ptr(e)
		t.Position = body.Position
		t.Rotation = body.Rotation
	})
}

// IsPrecondition reports whether a recovered panic value is a
// PreconditionError.
func IsPrecondition(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var pe *PreconditionError
	return errors.As(err, &pe)
}
