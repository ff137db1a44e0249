// Package config loads the YAML configuration of the server and client
// binaries.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeusync/duelsim/internal/core/game"
	"github.com/zeusync/duelsim/internal/core/observability/log"
	"github.com/zeusync/duelsim/internal/core/protocol/quic"
	"github.com/zeusync/duelsim/internal/core/rollback"
	"github.com/zeusync/duelsim/internal/core/session"
	"github.com/zeusync/duelsim/internal/core/systems/physics"
	"gopkg.in/yaml.v3"
)

const (
	TransportQUIC      = "quic"
	TransportWebSocket = "websocket"
)

var (
	ErrInvalidTransport = errors.New("config: unknown transport")
	ErrInvalidLevel     = errors.New("config: unknown log level")
	ErrInvalidEncoding  = errors.New("config: unknown log encoding")
	ErrInvalidWindow    = errors.New("config: invalid input window")
	ErrMissingAddress   = errors.New("config: network address is required")
)

type Config struct {
	Log      Log               `yaml:"log"`
	Game     game.Rules        `yaml:"game"`
	Rollback rollback.Settings `yaml:"rollback"`
	Network  Network           `yaml:"network"`
	Level    session.Level     `yaml:"level"`
}

type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type Network struct {
	Transport string `yaml:"transport"`
	Address   string `yaml:"address"`
	// ALPN is negotiated by the quic transport.
	ALPN string `yaml:"alpn"`
	// Path is served by the websocket transport.
	Path     string `yaml:"path"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// Default returns a complete configuration: the reference rules, a floor
// wall and a local quic listener.
func Default() *Config {
	rules := game.DefaultRules()
	return &Config{
		Log:      Log{Level: "info", Encoding: "json"},
		Game:     rules,
		Rollback: rollback.DefaultSettings(),
		Network: Network{
			Transport: TransportQUIC,
			Address:   "127.0.0.1:4242",
			ALPN:      quic.DefaultALPN,
			Path:      "/duel",
		},
		Level: session.Level{Walls: []session.Wall{
			{
				Position:    physics.Vec2{Y: rules.Bounds.Lower},
				HalfExtents: physics.Vec2{X: rules.Bounds.Right, Y: 0.5},
			},
		}},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// LoadYAML decodes r over the defaults and validates the result. Keys
// absent from r keep their default value.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, c.Log.Level)
	}
	if c.Log.Encoding != "json" && c.Log.Encoding != "console" {
		return fmt.Errorf("%w: %q", ErrInvalidEncoding, c.Log.Encoding)
	}
	if err := c.Game.Validate(); err != nil {
		return err
	}
	if c.Rollback.WindowSize <= 1 || c.Rollback.MaxInputs <= 0 || c.Rollback.MaxInputs > c.Rollback.WindowSize {
		return fmt.Errorf("%w: window %d, max inputs %d", ErrInvalidWindow, c.Rollback.WindowSize, c.Rollback.MaxInputs)
	}
	switch c.Network.Transport {
	case TransportQUIC, TransportWebSocket:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Network.Transport)
	}
	if c.Network.Address == "" {
		return ErrMissingAddress
	}
	return nil
}

// LoggerOptions maps the log section onto the logger.
func (c *Config) LoggerOptions() log.Options {
	level, _ := log.ParseLevel(c.Log.Level)
	return log.Options{Level: level, Encoding: c.Log.Encoding}
}
