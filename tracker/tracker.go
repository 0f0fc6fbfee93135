package tracker

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/hugolhafner/go-dispatch/logger"
	dispatchotel "github.com/hugolhafner/go-dispatch/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

type entry struct {
	record      kafka.Record
	partition   int32
	callback    Callback
	submittedAt time.Time
}

// Tracker correlates asynchronous acknowledgments with the records that
// caused them. It never retries and applies no timeouts of its own.
type Tracker struct {
	transport kafka.Transport

	mu      sync.Mutex
	pending map[string]entry
	closed  bool

	submitted atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	stale     atomic.Uint64
	abandoned atomic.Uint64

	ids       IDGenerator
	now       func() time.Time
	logger    logger.Logger
	telemetry *dispatchotel.Telemetry
}

func New(transport kafka.Transport, opts ...Option) *Tracker {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Tracker{
		transport: transport,
		pending:   make(map[string]entry),
		ids:       config.IDGenerator,
		now:       config.Clock,
		logger:    config.Logger.With("component", "tracker"),
		telemetry: config.Telemetry,
	}
}

// Submit registers record under a fresh correlation id and forwards it to
// the transport on the given partition. It does not wait for delivery; cb
// fires once the acknowledgment is resolved.
func (t *Tracker) Submit(ctx context.Context, record kafka.Record, partition int32, cb Callback) (*Handle, error) {
	submittedAt := t.now()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTrackerClosed
	}

	id := t.ids.NextID()
	if _, exists := t.pending[id]; exists {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}

	t.pending[id] = entry{
		record:      record,
		partition:   partition,
		callback:    cb,
		submittedAt: submittedAt,
	}
	t.mu.Unlock()

	t.submitted.Add(1)
	attrs := metric.WithAttributes(destinationAttrs(record.Topic, partition)...)
	t.telemetry.DispatchesSubmitted.Add(ctx, 1, attrs)
	t.telemetry.DispatchesPending.Add(ctx, 1, attrs)

	t.logger.Debug("Dispatch submitted", "id", id, "topic", record.Topic, "partition", partition)

	t.transport.Send(ctx, kafka.Message{
		ID:        id,
		Topic:     record.Topic,
		Partition: partition,
		Key:       record.Key,
		Value:     record.Value,
		Headers:   record.Headers,
	}, t.onAck)

	return &Handle{
		id:          id,
		topic:       record.Topic,
		partition:   partition,
		submittedAt: submittedAt,
		t:           t,
	}, nil
}

func (t *Tracker) onAck(id string, ack kafka.Ack) {
	// stale acks are already logged by Resolve
	_ = t.Resolve(id, ack)
}

// Resolve reconciles ack with the dispatch registered under id. Safe to call
// from any goroutine. An unknown id yields ErrStaleAcknowledgment and
// changes nothing.
func (t *Tracker) Resolve(id string, ack kafka.Ack) error {
	if ack.ReceivedAt.IsZero() {
		ack.ReceivedAt = t.now()
	}

	t.mu.Lock()
	e, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()

	ctx := context.Background()
	if !ok {
		t.stale.Add(1)
		t.telemetry.Acknowledgments.Add(ctx, 1,
			metric.WithAttributes(dispatchotel.AttrAckStatus.String(dispatchotel.StatusStale)),
		)
		t.logger.Warn("Stale acknowledgment", "id", id, "partition", ack.Partition, "offset", ack.Offset,
			"error", ack.Err)
		return fmt.Errorf("%w: %s", ErrStaleAcknowledgment, id)
	}

	t.complete(ctx, id, e, ack)
	return nil
}

func (t *Tracker) complete(ctx context.Context, id string, e entry, ack kafka.Ack) {
	status := dispatchotel.StatusSuccess
	if ack.Succeeded() {
		t.succeeded.Add(1)
	} else {
		t.failed.Add(1)
		status = dispatchotel.StatusFailed
	}

	d := Delivery{
		ID:          id,
		Record:      e.record,
		Partition:   e.partition,
		Ack:         ack,
		SubmittedAt: e.submittedAt,
	}

	attrs := destinationAttrs(e.record.Topic, e.partition)
	t.telemetry.DispatchesPending.Add(ctx, -1, metric.WithAttributes(attrs...))
	t.telemetry.Acknowledgments.Add(ctx, 1,
		metric.WithAttributes(append(attrs, dispatchotel.AttrAckStatus.String(status))...),
	)
	t.telemetry.AckLatency.Record(ctx, d.Latency().Seconds(), metric.WithAttributes(attrs...))

	if ack.Succeeded() {
		t.logger.Debug("Dispatch acknowledged", "id", id, "topic", e.record.Topic,
			"partition", ack.Partition, "offset", ack.Offset)
	} else {
		t.logger.Debug("Dispatch failed", "id", id, "topic", e.record.Topic, "partition", e.partition,
			"error", ack.Err)
	}

	if e.callback != nil {
		e.callback(d)
	}
}

// Abandon drops the dispatch registered under id without invoking its
// callback. A later acknowledgment for it is stale. Reports whether the id
// was pending.
func (t *Tracker) Abandon(id string) bool {
	t.mu.Lock()
	e, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}

	t.abandoned.Add(1)
	ctx := context.Background()
	attrs := destinationAttrs(e.record.Topic, e.partition)
	t.telemetry.DispatchesPending.Add(ctx, -1, metric.WithAttributes(attrs...))
	t.telemetry.Acknowledgments.Add(ctx, 1,
		metric.WithAttributes(append(attrs, dispatchotel.AttrAckStatus.String(dispatchotel.StatusAbandoned))...),
	)
	t.logger.Debug("Dispatch abandoned", "id", id, "topic", e.record.Topic, "partition", e.partition)

	return true
}

func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.pending)
}

// Pending returns a snapshot of unresolved dispatches, oldest first.
func (t *Tracker) Pending() []PendingDispatch {
	t.mu.Lock()
	out := make([]PendingDispatch, 0, len(t.pending))
	for id, e := range t.pending {
		out = append(out, PendingDispatch{
			ID:          id,
			Topic:       e.record.Topic,
			Partition:   e.partition,
			SubmittedAt: e.submittedAt,
		})
	}
	t.mu.Unlock()

	slices.SortFunc(out, func(a, b PendingDispatch) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	return out
}

func (t *Tracker) Stats() Stats {
	return Stats{
		Pending:   t.PendingCount(),
		Submitted: t.submitted.Load(),
		Succeeded: t.succeeded.Load(),
		Failed:    t.failed.Load(),
		Stale:     t.stale.Load(),
		Abandoned: t.abandoned.Load(),
	}
}

// Close stops accepting submissions and fails every pending dispatch with
// ErrTrackerClosed, oldest first. It does not close the transport.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true

	ids := make([]string, 0, len(t.pending))
	entries := make(map[string]entry, len(t.pending))
	for id, e := range t.pending {
		ids = append(ids, id)
		entries[id] = e
	}
	clear(t.pending)
	t.mu.Unlock()

	slices.SortFunc(ids, func(a, b string) int {
		return entries[a].submittedAt.Compare(entries[b].submittedAt)
	})

	if len(ids) > 0 {
		t.logger.Warn("Tracker closed with pending dispatches", "count", len(ids))
	}

	ctx := context.Background()
	for _, id := range ids {
		ack := kafka.Failure(ErrTrackerClosed)
		ack.ReceivedAt = t.now()
		t.complete(ctx, id, entries[id], ack)
	}
}

func destinationAttrs(topic string, partition int32) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.MessagingDestinationName(topic),
		semconv.MessagingDestinationPartitionID(strconv.FormatInt(int64(partition), 10)),
	}
}
