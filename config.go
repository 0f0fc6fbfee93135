package dispatch

import (
	"time"

	"github.com/hugolhafner/go-dispatch/errorhandler"
	"github.com/hugolhafner/go-dispatch/logger"
	dispatchotel "github.com/hugolhafner/go-dispatch/otel"
	"github.com/hugolhafner/go-dispatch/partition"
	"github.com/hugolhafner/go-dispatch/tracker"
)

type Config struct {
	Logger       logger.Logger
	Telemetry    *dispatchotel.Telemetry
	ErrorHandler errorhandler.Handler

	// Selector picks partitions. Nil uses partition.NewSelector with Fallback.
	Selector partition.Selector
	Fallback partition.Fallback

	// AutoSequence replaces each record's Sequence with a per-topic counter.
	AutoSequence bool

	IDGenerator tracker.IDGenerator

	// DeliveryTimeout fails dispatches left unacknowledged for this long.
	// Zero disables the sweeper.
	DeliveryTimeout time.Duration
	SweepInterval   time.Duration
}

type ConfigOption func(*Config)

func WithLogger(logger logger.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func WithTelemetry(t *dispatchotel.Telemetry) ConfigOption {
	return func(c *Config) {
		if t != nil {
			c.Telemetry = t
		}
	}
}

// WithErrorHandler sets the handler consulted for every failed delivery
func WithErrorHandler(h errorhandler.Handler) ConfigOption {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

func WithSelector(s partition.Selector) ConfigOption {
	return func(c *Config) {
		c.Selector = s
	}
}

func WithFallback(f partition.Fallback) ConfigOption {
	return func(c *Config) {
		c.Fallback = f
	}
}

func WithAutoSequence() ConfigOption {
	return func(c *Config) {
		c.AutoSequence = true
	}
}

func WithIDGenerator(g tracker.IDGenerator) ConfigOption {
	return func(c *Config) {
		c.IDGenerator = g
	}
}

// WithDeliveryTimeout enables the background sweeper. Interval defaults to
// a tenth of the timeout when zero.
func WithDeliveryTimeout(timeout, interval time.Duration) ConfigOption {
	return func(c *Config) {
		c.DeliveryTimeout = timeout
		c.SweepInterval = interval
	}
}

func defaultConfig() Config {
	return Config{
		Logger:       logger.NewNoopLogger(),
		Telemetry:    dispatchotel.Noop(),
		ErrorHandler: errorhandler.Silent(),
		Fallback:     partition.FallbackPositional,
	}
}
