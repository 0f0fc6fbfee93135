package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/hugolhafner/go-dispatch/logger"
	"github.com/hugolhafner/go-dispatch/partition"
	"gopkg.in/yaml.v3"
)

type TransportKind string

const (
	TransportKgo    TransportKind = "kgo"
	TransportSarama TransportKind = "sarama"
)

type ProducerConfig struct {
	Acks               kafka.Acks    `yaml:"acks"`
	Retries            int           `yaml:"retries"`
	RetryBackoff       time.Duration `yaml:"retry_backoff"`
	Linger             time.Duration `yaml:"linger"`
	BatchMaxBytes      int32         `yaml:"batch_max_bytes"`
	BufferMemory       int           `yaml:"buffer_memory"`
	MaxBufferedRecords int           `yaml:"max_buffered_records"`
	MaxInFlight        int           `yaml:"max_in_flight"`
	ConnIdleTimeout    time.Duration `yaml:"conn_idle_timeout"`
}

type MetricsConfig struct {
	// Address serves /metrics when set, e.g. ":9100".
	Address string `yaml:"address"`
}

// Config describes a producer process: where to connect, how to produce
// and which topics, with their valid partitions, it may dispatch to.
type Config struct {
	ClientID  string        `yaml:"client_id"`
	Transport TransportKind `yaml:"transport"`
	Brokers   []string      `yaml:"brokers"`
	LogLevel  string        `yaml:"log_level"`

	// Records is how many records the producer sends to every topic.
	Records int `yaml:"records"`

	PartitionFallback string        `yaml:"partition_fallback"`
	DeliveryTimeout   time.Duration `yaml:"delivery_timeout"`

	Producer ProducerConfig     `yaml:"producer"`
	Metrics  MetricsConfig      `yaml:"metrics"`
	Topics   map[string][]int32 `yaml:"topics"`
}

// Default mirrors the reference sensor setup: three local brokers and
// three topics with one, two and three partitions.
func Default() Config {
	return Config{
		Transport:         TransportKgo,
		Brokers:           []string{"localhost:19101", "localhost:19102", "localhost:19103"},
		LogLevel:          "info",
		Records:           100,
		PartitionFallback: partition.FallbackLast.String(),
		DeliveryTimeout:   2 * time.Minute,
		Producer: ProducerConfig{
			Acks:               kafka.AcksLeader,
			Retries:            0,
			RetryBackoff:       100 * time.Millisecond,
			Linger:             0,
			BatchMaxBytes:      16384,
			BufferMemory:       32 << 20,
			MaxBufferedRecords: 10000,
			MaxInFlight:        5,
			ConnIdleTimeout:    9 * time.Minute,
		},
		Topics: map[string][]int32{
			"sensors.first":  {0},
			"sensors.second": {0, 1},
			"sensors.third":  {0, 1, 2},
		},
	}
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML over the defaults. A topics section replaces the
// default topics rather than merging with them.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	defaultTopics := cfg.Topics
	cfg.Topics = nil

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Topics) == 0 {
		cfg.Topics = defaultTopics
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if len(c.Brokers) == 0 {
		errs = append(errs, errors.New("at least one broker is required"))
	}

	switch c.Transport {
	case TransportKgo, TransportSarama:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	switch c.Producer.Acks {
	case kafka.AcksNone, kafka.AcksLeader, kafka.AcksAll:
	default:
		errs = append(errs, fmt.Errorf("unknown acks %q", c.Producer.Acks))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}

	if _, err := partition.ParseFallback(c.PartitionFallback); err != nil {
		errs = append(errs, err)
	}

	if c.Records < 0 {
		errs = append(errs, errors.New("records must not be negative"))
	}

	if c.Producer.Retries < 0 {
		errs = append(errs, errors.New("producer retries must not be negative"))
	}

	if _, err := c.PartitionTopics(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// PartitionTopics builds the topic list ordered by name.
func (c Config) PartitionTopics() ([]partition.Topic, error) {
	if len(c.Topics) == 0 {
		return nil, errors.New("at least one topic is required")
	}

	names := make([]string, 0, len(c.Topics))
	for name := range c.Topics {
		names = append(names, name)
	}
	slices.SortFunc(names, strings.Compare)

	topics := make([]partition.Topic, 0, len(names))
	for _, name := range names {
		t, err := partition.NewTopic(name, c.Topics[name]...)
		if err != nil {
			return nil, fmt.Errorf("topic config: %w", err)
		}
		topics = append(topics, t)
	}

	return topics, nil
}

func (c Config) Fallback() partition.Fallback {
	f, _ := partition.ParseFallback(c.PartitionFallback)
	return f
}

func (c Config) Level() logger.LogLevel {
	return logger.ParseLevel(c.LogLevel)
}

// ProducerOptions translates the producer section for either transport.
func (c Config) ProducerOptions(l logger.Logger) []kafka.ProducerOption {
	p := c.Producer
	opts := []kafka.ProducerOption{
		kafka.WithBootstrapServers(c.Brokers),
		kafka.WithRequiredAcks(p.Acks),
		kafka.WithRetries(p.Retries, p.RetryBackoff),
		kafka.WithLinger(p.Linger),
		kafka.WithBatchMaxBytes(p.BatchMaxBytes),
		kafka.WithMaxBufferedBytes(p.BufferMemory),
		kafka.WithMaxBufferedRecords(p.MaxBufferedRecords),
		kafka.WithMaxInFlight(p.MaxInFlight),
		kafka.WithConnIdleTimeout(p.ConnIdleTimeout),
	}

	if c.ClientID != "" {
		opts = append(opts, kafka.WithClientID(c.ClientID))
	}
	if l != nil {
		opts = append(opts, kafka.WithLogger(l))
	}

	return opts
}
