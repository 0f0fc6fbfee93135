package sweeper

import (
	"context"
	"time"

	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/hugolhafner/go-dispatch/logger"
	"github.com/hugolhafner/go-dispatch/tracker"
)

// Source is the part of a tracker the sweeper needs.
type Source interface {
	Pending() []tracker.PendingDispatch
	Resolve(id string, ack kafka.Ack) error
}

var _ Source = (*tracker.Tracker)(nil)

type Config struct {
	// Timeout is how long a dispatch may stay pending before it is failed.
	Timeout time.Duration
	// Interval is how often pending dispatches are checked.
	Interval time.Duration
	Logger   logger.Logger
	Clock    func() time.Time
}

type Option func(*Config)

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

func WithInterval(d time.Duration) Option {
	return func(c *Config) {
		c.Interval = d
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Clock = now
	}
}

func defaultConfig() Config {
	return Config{
		Timeout:  2 * time.Minute,
		Interval: time.Second,
		Logger:   logger.NewNoopLogger(),
		Clock:    time.Now,
	}
}

// Sweeper fails dispatches that have waited longer than the delivery
// timeout. A real acknowledgment arriving afterwards is stale.
type Sweeper struct {
	source Source
	c      Config
	logger logger.Logger
}

func New(source Source, opts ...Option) *Sweeper {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Sweeper{
		source: source,
		c:      cfg,
		logger: cfg.Logger.With("component", "sweeper"),
	}
}

// Run sweeps every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.c.Interval)
	defer ticker.Stop()

	s.logger.Debug("Sweeper started", "timeout", s.c.Timeout, "interval", s.c.Interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sweeper stopped")
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs a single pass and returns how many dispatches it expired.
func (s *Sweeper) Sweep() int {
	now := s.c.Clock()
	expired := 0

	for _, p := range s.source.Pending() {
		if now.Sub(p.SubmittedAt) < s.c.Timeout {
			// oldest first, nothing later can be expired
			break
		}

		ack := kafka.Failure(kafka.NewTransportError(tracker.ErrDeliveryTimeout, p.Topic, p.Partition))
		ack.ReceivedAt = now
		if err := s.source.Resolve(p.ID, ack); err != nil {
			// resolved concurrently by the transport
			continue
		}

		expired++
	}

	if expired > 0 {
		s.logger.Warn("Expired pending dispatches", "count", expired, "timeout", s.c.Timeout)
	}

	return expired
}
