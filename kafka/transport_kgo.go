package kafka

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hugolhafner/go-dispatch/logger"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

var _ Transport = (*KgoTransport)(nil)

// KgoTransport produces through franz-go. Partitions are always chosen by the
// caller, so the client runs with the manual partitioner.
type KgoTransport struct {
	client *kgo.Client
	config ProducerConfig

	logger logger.Logger
}

func NewKgoTransport(opts ...ProducerOption) (*KgoTransport, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := cfg.Logger.With("transport", "kgo")
	client, err := kgo.NewClient(kgoOpts(cfg, l)...)
	if err != nil {
		return nil, fmt.Errorf("create kgo client: %w", err)
	}

	return &KgoTransport{client: client, config: cfg, logger: l}, nil
}

func kgoOpts(cfg ProducerConfig, l logger.Logger) []kgo.Opt {
	backoff := cfg.RetryBackoff
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.BootstrapServers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RecordPartitioner(kgo.ManualPartitioner()),
		kgo.ProducerLinger(cfg.Linger),
		kgo.ProducerBatchMaxBytes(cfg.BatchMaxBytes),
		kgo.ProducerBatchCompression(kgo.NoCompression()),
		kgo.MaxBufferedRecords(cfg.MaxBufferedRecs),
		kgo.MaxBufferedBytes(cfg.MaxBufferedBytes),
		kgo.ConnIdleTimeout(cfg.ConnIdleTimeout),
		kgo.RecordRetries(cfg.Retries),
		kgo.RetryBackoffFn(func(int) time.Duration { return backoff }),
		kgo.WithLogger(newKgoLogger(l)),
	}

	switch cfg.RequiredAcks {
	case AcksAll:
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
	case AcksNone:
		opts = append(
			opts,
			kgo.RequiredAcks(kgo.NoAck()),
			kgo.DisableIdempotentWrite(),
			kgo.MaxProduceRequestsInflightPerBroker(cfg.MaxInFlight),
		)
	default:
		opts = append(
			opts,
			kgo.RequiredAcks(kgo.LeaderAck()),
			kgo.DisableIdempotentWrite(),
			kgo.MaxProduceRequestsInflightPerBroker(cfg.MaxInFlight),
		)
	}

	return opts
}

func (k *KgoTransport) Send(ctx context.Context, msg Message, onAck AckFunc) {
	record := &kgo.Record{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   convertToKgoHeaders(msg.Headers),
	}

	k.logger.Debug("Producing record", "id", msg.ID, "topic", msg.Topic, "partition", msg.Partition)

	k.client.Produce(
		ctx, record, func(r *kgo.Record, err error) {
			if err != nil {
				onAck(msg.ID, Failure(NewTransportError(err, r.Topic, r.Partition)))
				return
			}

			onAck(msg.ID, Success(r.Partition, r.Offset))
		},
	)
}

func (k *KgoTransport) Flush(ctx context.Context) error {
	return k.client.Flush(ctx)
}

func (k *KgoTransport) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

// Partitions asks the cluster which partitions topic currently has.
func (k *KgoTransport) Partitions(ctx context.Context, topic string) ([]int32, error) {
	req := kmsg.NewPtrMetadataRequest()
	reqTopic := kmsg.NewMetadataRequestTopic()
	reqTopic.Topic = kmsg.StringPtr(topic)
	req.Topics = append(req.Topics, reqTopic)

	resp, err := req.RequestWith(ctx, k.client)
	if err != nil {
		return nil, fmt.Errorf("metadata request for %s: %w", topic, err)
	}

	for _, t := range resp.Topics {
		if t.Topic == nil || *t.Topic != topic {
			continue
		}

		if err := kerr.ErrorForCode(t.ErrorCode); err != nil {
			return nil, fmt.Errorf("metadata for %s: %w", topic, err)
		}

		partitions := make([]int32, 0, len(t.Partitions))
		for _, p := range t.Partitions {
			partitions = append(partitions, p.Partition)
		}
		sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

		return partitions, nil
	}

	return nil, fmt.Errorf("metadata for %s: topic missing from response", topic)
}

func (k *KgoTransport) Close() {
	k.client.Close()
}

func convertToKgoHeaders(headers []Header) []kgo.RecordHeader {
	if len(headers) == 0 {
		return nil
	}

	kgoHeaders := make([]kgo.RecordHeader, len(headers))
	for i, h := range headers {
		kgoHeaders[i] = kgo.RecordHeader{Key: h.Key, Value: h.Value}
	}
	return kgoHeaders
}
