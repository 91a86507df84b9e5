package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Coordinate spaces for player positions
const (
	SpacePixel   = "pixel"
	SpacePercent = "percent"
)

// Storage backends for the room snapshot
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendSupabase = "supabase"
)

// Config holds all process configuration, read from the environment.
type Config struct {
	Port          string        `env:"PORT" envDefault:"3000"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	JWTSecret     string        `env:"JWT_SECRET"`
	AdminTokenTTL time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	CORSOrigins   string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	Store StoreConfig

	CoordinateSpace string        `env:"COORDINATE_SPACE" envDefault:"pixel"`
	BoardWidth      float64       `env:"BOARD_WIDTH" envDefault:"600"`
	BoardHeight     float64       `env:"BOARD_HEIGHT" envDefault:"600"`
	IdleShutdown    time.Duration `env:"IDLE_SHUTDOWN" envDefault:"0s"`
	DeckCards       []string      `env:"DECK_CARDS" envSeparator:","`
}

// StoreConfig selects and configures the durable snapshot backend
type StoreConfig struct {
	Backend       string        `env:"STORE_BACKEND" envDefault:"memory"`
	RedisURI      string        `env:"REDIS_URI" envDefault:"localhost:6379"`
	MongoURI      string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string        `env:"MONGO_DATABASE" envDefault:"tabletop"`
	SupabaseURL   string        `env:"SUPABASE_URL"`
	SupabaseKey   string        `env:"SUPABASE_KEY"`
	Bucket        string        `env:"SNAPSHOT_BUCKET" envDefault:"rooms"`
	Key           string        `env:"SNAPSHOT_KEY" envDefault:"rooms.json"`
	Timeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"10s"`
	SaveDebounce  time.Duration `env:"SAVE_DEBOUNCE" envDefault:"500ms"`
}

// placeholderSecret is the sample value from older deployment files.
const placeholderSecret = "change-me"

var ErrPlaceholderSecret = errors.New("JWT_SECRET must not be the placeholder " + placeholderSecret)

// Load parses the environment and validates the result. An unset JWT_SECRET
// gets a random per-process key, so admin tokens die with the process.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
	}
	return cfg, nil
}

func randomSecret() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == placeholderSecret {
		return ErrPlaceholderSecret
	}

	switch c.CoordinateSpace {
	case SpacePixel, SpacePercent:
	default:
		return fmt.Errorf("COORDINATE_SPACE must be %q or %q, got %q", SpacePixel, SpacePercent, c.CoordinateSpace)
	}

	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendMongo:
	case BackendSupabase:
		if c.Store.SupabaseURL == "" || c.Store.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the supabase backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.BoardWidth <= 0 || c.BoardHeight <= 0 {
		return fmt.Errorf("board extents must be positive")
	}
	return nil
}

// RedisAddr returns the redis address without a redis:// scheme.
func (s StoreConfig) RedisAddr() string {
	return strings.TrimPrefix(s.RedisURI, "redis://")
}

// AdminEnabled reports whether administrative endpoints can succeed at all.
func (c *Config) AdminEnabled() bool {
	return c.AdminPassword != ""
}
