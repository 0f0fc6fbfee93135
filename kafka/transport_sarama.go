package kafka

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shopify/sarama"
	"github.com/hugolhafner/go-dispatch/logger"
)

var _ Transport = (*SaramaTransport)(nil)

// saramaMetadata rides along on ProducerMessage.Metadata so the success and
// error loops can route each outcome back to its dispatch.
type saramaMetadata struct {
	id    string
	onAck AckFunc
}

// SaramaTransport produces through a sarama AsyncProducer.
type SaramaTransport struct {
	producer sarama.AsyncProducer
	logger   logger.Logger

	mu       sync.RWMutex
	closed   bool
	inFlight atomic.Int64
	wg       sync.WaitGroup
}

// NewSaramaConfig translates ProducerConfig into a sarama config that
// honours caller chosen partitions and reports every outcome.
func NewSaramaConfig(cfg ProducerConfig) *sarama.Config {
	c := sarama.NewConfig()
	c.Version = sarama.V1_0_0_0
	c.ClientID = cfg.ClientID
	c.Producer.Partitioner = sarama.NewManualPartitioner
	c.Producer.Retry.Max = cfg.Retries
	c.Producer.Retry.Backoff = cfg.RetryBackoff
	c.Producer.Flush.Frequency = cfg.Linger
	c.Producer.Flush.Bytes = int(cfg.BatchMaxBytes)
	c.Producer.Compression = sarama.CompressionNone
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	c.Net.MaxOpenRequests = cfg.MaxInFlight

	switch cfg.RequiredAcks {
	case AcksAll:
		c.Producer.RequiredAcks = sarama.WaitForAll
	case AcksNone:
		c.Producer.RequiredAcks = sarama.NoResponse
	default:
		c.Producer.RequiredAcks = sarama.WaitForLocal
	}

	return c
}

func NewSaramaTransport(opts ...ProducerOption) (*SaramaTransport, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := sarama.NewAsyncProducer(cfg.BootstrapServers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create sarama producer: %w", err)
	}

	return NewSaramaTransportFrom(p, cfg.Logger), nil
}

// NewSaramaTransportFrom wraps an existing AsyncProducer. The producer must
// have Return.Successes and Return.Errors enabled.
func NewSaramaTransportFrom(p sarama.AsyncProducer, l logger.Logger) *SaramaTransport {
	if l == nil {
		l = logger.NewNoopLogger()
	}

	t := &SaramaTransport{
		producer: p,
		logger:   l.With("transport", "sarama"),
	}

	t.wg.Add(2)
	go t.successLoop()
	go t.errorLoop()

	return t
}

func (s *SaramaTransport) Send(ctx context.Context, msg Message, onAck AckFunc) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		onAck(msg.ID, Failure(NewTransportError(ErrTransportClosed, msg.Topic, msg.Partition)))
		return
	}

	pm := &sarama.ProducerMessage{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Value:     sarama.ByteEncoder(msg.Value),
		Headers:   convertToSaramaHeaders(msg.Headers),
		Metadata:  saramaMetadata{id: msg.ID, onAck: onAck},
	}
	if msg.Key != nil {
		pm.Key = sarama.ByteEncoder(msg.Key)
	}

	s.inFlight.Add(1)
	select {
	case s.producer.Input() <- pm:
	case <-ctx.Done():
		s.inFlight.Add(-1)
		onAck(msg.ID, Failure(NewTransportError(ctx.Err(), msg.Topic, msg.Partition)))
	}
}

func (s *SaramaTransport) successLoop() {
	defer s.wg.Done()

	for pm := range s.producer.Successes() {
		meta, ok := pm.Metadata.(saramaMetadata)
		if !ok {
			s.logger.Warn("Success without dispatch metadata", "topic", pm.Topic, "partition", pm.Partition)
			continue
		}

		s.inFlight.Add(-1)
		meta.onAck(meta.id, Success(pm.Partition, pm.Offset))
	}
}

func (s *SaramaTransport) errorLoop() {
	defer s.wg.Done()

	for pe := range s.producer.Errors() {
		if pe.Msg == nil {
			s.logger.Error("Producer error without message", "error", pe.Err)
			continue
		}

		meta, ok := pe.Msg.Metadata.(saramaMetadata)
		if !ok {
			s.logger.Warn("Error without dispatch metadata", "topic", pe.Msg.Topic, "error", pe.Err)
			continue
		}

		s.inFlight.Add(-1)
		meta.onAck(meta.id, Failure(NewTransportError(pe.Err, pe.Msg.Topic, pe.Msg.Partition)))
	}
}

// Flush waits until every message handed to sarama has been acknowledged.
func (s *SaramaTransport) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for s.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}

func (s *SaramaTransport) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.producer.AsyncClose()
	s.wg.Wait()
}

func convertToSaramaHeaders(headers []Header) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}

	out := make([]sarama.RecordHeader, len(headers))
	for i, h := range headers {
		out[i] = sarama.RecordHeader{Key: []byte(h.Key), Value: h.Value}
	}
	return out
}
