package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/duelsim/internal/core/systems/physics"
)

// Frame is the logical clock of the simulation.
type Frame uint32

// PlayerNumber identifies a participant, from 0 to MaxPlayers-1.
type PlayerNumber uint8

const (
	MaxPlayers = 2
	// InvalidPlayer denotes "no participant".
	InvalidPlayer PlayerNumber = math.MaxUint8
)

// PlayerInput is the per-tick bitmask of pressed actions.
type PlayerInput uint8

const (
	InputUp PlayerInput = 1 << iota
	InputDown
	InputLeft
	InputRight
	InputShoot
)

// Has reports whether every bit of action is pressed.
func (i PlayerInput) Has(action PlayerInput) bool {
	return i&action == action
}

var (
	ErrInvalidPeriod = errors.New("game: fixed period must be positive")
	ErrInvalidBounds = errors.New("game: world bounds are empty")
	ErrInvalidRadius = errors.New("game: collider radius must be positive")
	ErrInvalidHealth = errors.New("game: player health must be positive")
)

// Rules holds every tunable constant of the deterministic pipeline. All
// peers of one session must run with identical rules.
type Rules struct {
	FixedPeriod float32        `yaml:"fixed_period"`
	Gravity     float32        `yaml:"gravity"`
	Bounds      physics.Bounds `yaml:"bounds"`
	// GroundLevel is the height at or below which a player counts as grounded.
	GroundLevel float32 `yaml:"ground_level"`

	PlayerHealth              int16   `yaml:"player_health"`
	PlayerSpeed               float32 `yaml:"player_speed"`
	PlayerJumpForce           float32 `yaml:"player_jump_force"`
	PlayerShootingPeriod      float32 `yaml:"player_shooting_period"`
	PlayerInvincibilityPeriod float32 `yaml:"player_invincibility_period"`
	PlayerRadius              float32 `yaml:"player_radius"`
	PlayerKnockback           float32 `yaml:"player_knockback"`
	AnimationPeriod           float32 `yaml:"animation_period"`

	BulletSpeed         float32 `yaml:"bullet_speed"`
	BulletPeriod        float32 `yaml:"bullet_period"`
	BulletRotationSpeed float32 `yaml:"bullet_rotation_speed"`
	BulletRadius        float32 `yaml:"bullet_radius"`
	BulletScale         float32 `yaml:"bullet_scale"`
	// BulletBoundFactor scales the horizontal limits at which bullets die.
	BulletBoundFactor float32 `yaml:"bullet_bound_factor"`

	SpawnPositions [MaxPlayers]physics.Vec2 `yaml:"spawn_positions"`
	SpawnFacing    [MaxPlayers]physics.Vec2 `yaml:"spawn_facing"`
}

// DefaultRules returns the reference tuning: 50 ticks per second in a
// 12x12 meter arena.
func DefaultRules() Rules {
	return Rules{
		FixedPeriod: 0.02,
		Gravity:     -9.81,
		Bounds:      physics.Bounds{Left: -6, Right: 6, Lower: -6, Upper: 6},
		GroundLevel: -5,

		PlayerHealth:              5,
		PlayerSpeed:               5,
		PlayerJumpForce:           1,
		PlayerShootingPeriod:      1,
		PlayerInvincibilityPeriod: 1.5,
		PlayerRadius:              0.25,
		PlayerKnockback:           1,
		AnimationPeriod:           0.25,

		BulletSpeed:         5,
		BulletPeriod:        3,
		BulletRotationSpeed: 1000,
		BulletRadius:        0.1,
		BulletScale:         5,
		BulletBoundFactor:   0.95,

		SpawnPositions: [MaxPlayers]physics.Vec2{{X: -2, Y: -1}, {X: 2, Y: -1}},
		SpawnFacing:    [MaxPlayers]physics.Vec2{{X: 1}, {X: -1}},
	}
}

func (r Rules) Validate() error {
	if r.FixedPeriod <= 0 {
		return ErrInvalidPeriod
	}
	if r.Bounds.Left >= r.Bounds.Right || r.Bounds.Lower >= r.Bounds.Upper {
		return fmt.Errorf("%w: %+v", ErrInvalidBounds, r.Bounds)
	}
	if r.PlayerRadius <= 0 || r.BulletRadius <= 0 {
		return ErrInvalidRadius
	}
	if r.PlayerHealth <= 0 {
		return ErrInvalidHealth
	}
	return nil
}

// PhysicsSettings derives the physics configuration from the rules.
func (r Rules) PhysicsSettings() physics.Settings {
	return physics.Settings{
		Gravity: r.Gravity,
		Bounds:  r.Bounds,
		Exclude: Destroyed,
	}
}
