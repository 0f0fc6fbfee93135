package kafka

import (
	"time"

	"github.com/hugolhafner/go-dispatch/logger"
)

// Acks mirrors the broker acknowledgement levels producers can request.
type Acks string

const (
	AcksNone   Acks = "none"
	AcksLeader Acks = "leader"
	AcksAll    Acks = "all"
)

// ProducerConfig is shared by the kgo and sarama transports.
type ProducerConfig struct {
	BootstrapServers []string
	ClientID         string
	RequiredAcks     Acks
	Retries          int
	RetryBackoff     time.Duration
	Linger           time.Duration
	BatchMaxBytes    int32
	MaxBufferedRecs  int
	MaxBufferedBytes int
	MaxInFlight      int
	ConnIdleTimeout  time.Duration

	Logger logger.Logger
}

func defaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		BootstrapServers: []string{"localhost:9092"},
		ClientID:         "go-dispatch",
		RequiredAcks:     AcksLeader,
		Retries:          0,
		RetryBackoff:     100 * time.Millisecond,
		Linger:           0,
		BatchMaxBytes:    16384,
		MaxBufferedRecs:  10000,
		MaxBufferedBytes: 32 << 20,
		MaxInFlight:      5,
		ConnIdleTimeout:  9 * time.Minute,
		Logger:           logger.NewNoopLogger(),
	}
}

type ProducerOption func(*ProducerConfig)

func WithBootstrapServers(servers []string) ProducerOption {
	return func(cfg *ProducerConfig) {
		cfg.BootstrapServers = servers
	}
}

func WithClientID(id string) ProducerOption {
	return func(cfg *ProducerConfig) {
		cfg.ClientID = id
	}
}

func WithRequiredAcks(acks Acks) ProducerOption {
	return func(cfg *ProducerConfig) {
		cfg.RequiredAcks = acks
	}
}

func WithRetries(n int, backoff time.Duration) ProducerOption {
	return func(cfg *ProducerConfig) {
		if n >= 0 {
			cfg.Retries = n
		}
		if backoff > 0 {
			cfg.RetryBackoff = backoff
		}
	}
}

func WithLinger(d time.Duration) ProducerOption {
	return func(cfg *ProducerConfig) {
		cfg.Linger = d
	}
}

func WithBatchMaxBytes(n int32) ProducerOption {
	return func(cfg *ProducerConfig) {
		if n > 0 {
			cfg.BatchMaxBytes = n
		}
	}
}

func WithMaxBufferedRecords(n int) ProducerOption {
	return func(cfg *ProducerConfig) {
		if n > 0 {
			cfg.MaxBufferedRecs = n
		}
	}
}

// WithMaxBufferedBytes caps memory held by records waiting to be sent.
// Only the kgo transport honours it.
func WithMaxBufferedBytes(n int) ProducerOption {
	return func(cfg *ProducerConfig) {
		if n > 0 {
			cfg.MaxBufferedBytes = n
		}
	}
}

func WithConnIdleTimeout(d time.Duration) ProducerOption {
	return func(cfg *ProducerConfig) {
		if d > 0 {
			cfg.ConnIdleTimeout = d
		}
	}
}

func WithMaxInFlight(n int) ProducerOption {
	return func(cfg *ProducerConfig) {
		if n > 0 {
			cfg.MaxInFlight = n
		}
	}
}

func WithLogger(l logger.Logger) ProducerOption {
	return func(cfg *ProducerConfig) {
		cfg.Logger = l
	}
}
