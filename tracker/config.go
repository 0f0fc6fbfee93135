package tracker

import (
	"time"

	"github.com/hugolhafner/go-dispatch/logger"
	dispatchotel "github.com/hugolhafner/go-dispatch/otel"
	"github.com/rogpeppe/fastuuid"
)

// IDGenerator produces correlation ids. Ids must be unique for the lifetime
// of a Tracker.
type IDGenerator interface {
	NextID() string
}

type IDGeneratorFunc func() string

func (f IDGeneratorFunc) NextID() string {
	return f()
}

type uuidGenerator struct {
	g *fastuuid.Generator
}

func (u uuidGenerator) NextID() string {
	return u.g.Hex128()
}

// NewUUIDGenerator returns the default generator, which yields RFC 4122
// formatted ids (36 characters, dashed) without touching crypto/rand after
// construction.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{g: fastuuid.MustNewGenerator()}
}

type Config struct {
	Logger      logger.Logger
	Telemetry   *dispatchotel.Telemetry
	IDGenerator IDGenerator
	Clock       func() time.Time
}

type Option func(*Config)

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func WithTelemetry(t *dispatchotel.Telemetry) Option {
	return func(c *Config) {
		if t != nil {
			c.Telemetry = t
		}
	}
}

func WithIDGenerator(g IDGenerator) Option {
	return func(c *Config) {
		if g != nil {
			c.IDGenerator = g
		}
	}
}

// WithClock overrides the source of submission and arrival timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Clock = now
		}
	}
}

func defaultConfig() Config {
	return Config{
		Logger:      logger.NewNoopLogger(),
		Telemetry:   dispatchotel.Noop(),
		IDGenerator: NewUUIDGenerator(),
		Clock:       time.Now,
	}
}
