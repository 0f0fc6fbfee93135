package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugolhafner/go-dispatch/errorhandler"
	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/hugolhafner/go-dispatch/logger"
	dispatchotel "github.com/hugolhafner/go-dispatch/otel"
	"github.com/hugolhafner/go-dispatch/partition"
	"github.com/hugolhafner/go-dispatch/sweeper"
	"github.com/hugolhafner/go-dispatch/tracker"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
)

// Headers added to records forwarded to a dead letter topic
const (
	HeaderDLQSourceTopic = "x-dispatch-dlq-source-topic"
	HeaderDLQError       = "x-dispatch-dlq-error"
)

// dispatch follows one caller submission across retries.
type dispatch struct {
	record   kafka.Record
	callback tracker.Callback

	// guarded by Dispatcher.mu
	origin  string
	current string
	attempt int

	abandoned atomic.Bool
	done      atomic.Bool
}

// Dispatcher selects a partition for each record, hands it to the tracker
// and applies the error handler to failed deliveries.
type Dispatcher struct {
	transport kafka.Transport
	tracker   *tracker.Tracker
	selector  partition.Selector
	sequencer *partition.Sequencer
	topics    map[string]partition.Topic
	config    Config

	errorHandler errorhandler.Handler
	logger       logger.Logger
	telemetry    *dispatchotel.Telemetry

	mu       sync.Mutex
	inflight map[string]*dispatch
	closed   bool
	failure  error

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(transport kafka.Transport, topics []partition.Topic, opts ...ConfigOption) (*Dispatcher, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return NewWithConfig(transport, topics, config)
}

func NewWithConfig(transport kafka.Transport, topics []partition.Topic, config Config) (*Dispatcher, error) {
	byName := make(map[string]partition.Topic, len(topics))
	for _, t := range topics {
		if t.Name() == "" {
			return nil, partition.ErrEmptyTopicName
		}
		if t.Len() == 0 {
			return nil, fmt.Errorf("%s: %w", t.Name(), partition.ErrNoPartitions)
		}
		if _, ok := byName[t.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTopic, t.Name())
		}
		byName[t.Name()] = t
	}

	if config.Logger == nil {
		config.Logger = logger.NewNoopLogger()
	}
	if config.Telemetry == nil {
		config.Telemetry = dispatchotel.Noop()
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = errorhandler.Silent()
	}

	selector := config.Selector
	if selector == nil {
		selector = partition.NewSelector(partition.WithFallback(config.Fallback))
	}

	trackerOpts := []tracker.Option{
		tracker.WithLogger(config.Logger),
		tracker.WithTelemetry(config.Telemetry),
	}
	if config.IDGenerator != nil {
		trackerOpts = append(trackerOpts, tracker.WithIDGenerator(config.IDGenerator))
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		transport:    transport,
		tracker:      tracker.New(transport, trackerOpts...),
		selector:     selector,
		sequencer:    partition.NewSequencer(),
		topics:       byName,
		config:       config,
		errorHandler: config.ErrorHandler,
		logger:       config.Logger.With("component", "dispatcher"),
		telemetry:    config.Telemetry,
		inflight:     make(map[string]*dispatch),
		ctx:          ctx,
		cancel:       cancel,
	}

	if config.DeliveryTimeout > 0 {
		d.startSweeper(config.DeliveryTimeout, config.SweepInterval)
	}

	return d, nil
}

func (d *Dispatcher) startSweeper(timeout, interval time.Duration) {
	if interval <= 0 {
		interval = max(timeout/10, 10*time.Millisecond)
	}

	s := sweeper.New(
		d.tracker,
		sweeper.WithTimeout(timeout),
		sweeper.WithInterval(interval),
		sweeper.WithLogger(d.config.Logger),
	)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = s.Run(d.ctx)
	}()
}

// Submit selects a partition for record and dispatches it. Selection errors
// are returned synchronously and nothing is sent. cb fires exactly once with
// the final outcome unless the dispatch is abandoned.
func (d *Dispatcher) Submit(ctx context.Context, record kafka.Record, cb tracker.Callback) (*tracker.Handle, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}

	topic, ok := d.topics[record.Topic]
	if !ok {
		d.selectionError(ctx, record.Topic)
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, record.Topic)
	}

	if d.config.AutoSequence {
		record.Sequence = d.sequencer.Next(record.Topic)
	}

	p, err := d.selector.Select(topic, record)
	if err != nil {
		d.selectionError(ctx, record.Topic)
		return nil, err
	}

	ctx, span := d.telemetry.Tracer.Start(
		ctx, "send "+record.Topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationTypeSend,
			semconv.MessagingDestinationName(record.Topic),
			semconv.MessagingDestinationPartitionID(strconv.FormatInt(int64(p), 10)),
			semconv.MessagingMessageBodySize(len(record.Value)),
		),
	)
	defer span.End()

	d.telemetry.Inject(ctx, &record)

	disp := &dispatch{record: record, callback: cb, attempt: 1}
	h, err := d.tracker.Submit(ctx, record, p, d.onDelivery(disp))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, tracker.ErrTrackerClosed) {
			return nil, ErrDispatcherClosed
		}
		return nil, err
	}
	span.SetAttributes(semconv.MessagingMessageID(h.ID()))

	d.mu.Lock()
	if disp.origin == "" {
		disp.origin = h.ID()
	}
	if disp.current == "" {
		disp.current = h.ID()
	}
	if !disp.done.Load() {
		d.inflight[disp.origin] = disp
	}
	d.mu.Unlock()

	return h, nil
}

// SendSync submits record and blocks until it is acknowledged or ctx is
// done. On cancellation the dispatch is abandoned.
func (d *Dispatcher) SendSync(ctx context.Context, record kafka.Record) (kafka.Ack, error) {
	ch := make(chan tracker.Delivery, 1)
	h, err := d.Submit(
		ctx, record, func(del tracker.Delivery) {
			ch <- del
		},
	)
	if err != nil {
		return kafka.Ack{}, err
	}

	select {
	case del := <-ch:
		return del.Ack, del.Ack.Err
	case <-ctx.Done():
		d.Abandon(h)
		return kafka.Ack{}, ctx.Err()
	}
}

func (d *Dispatcher) onDelivery(disp *dispatch) tracker.Callback {
	return func(del tracker.Delivery) {
		d.mu.Lock()
		if disp.origin == "" {
			disp.origin = del.ID
		}
		d.mu.Unlock()

		if del.Ack.Succeeded() || disp.abandoned.Load() {
			d.complete(disp, del)
			return
		}

		// Close cancels ctx under mu before waiting, late acks complete inline
		d.mu.Lock()
		if d.ctx.Err() != nil {
			d.mu.Unlock()
			d.complete(disp, del)
			return
		}
		// handlers may back off, keep them off the transport's goroutine
		d.wg.Add(1)
		d.mu.Unlock()

		go d.handleFailure(disp, del)
	}
}

func (d *Dispatcher) handleFailure(disp *dispatch, del tracker.Delivery) {
	defer d.wg.Done()

	d.mu.Lock()
	attempt := disp.attempt
	d.mu.Unlock()

	action := d.errorHandler.Handle(d.ctx, errorhandler.FromDelivery(del, attempt))
	d.telemetry.ErrorHandlerActions.Add(
		context.Background(), 1,
		metric.WithAttributes(
			semconv.MessagingDestinationName(disp.record.Topic),
			dispatchotel.AttrErrorAction.String(action.Type().String()),
			dispatchotel.AttrAttempt.Int(attempt),
		),
	)

	if disp.abandoned.Load() {
		d.complete(disp, del)
		return
	}

	switch a := action.(type) {
	case errorhandler.ActionRetry:
		if !d.wait(a.Delay()) || disp.abandoned.Load() {
			d.complete(disp, del)
			return
		}
		if err := d.retry(disp, del.Partition); err != nil {
			d.logger.Warn("Retry not dispatched", "topic", disp.record.Topic, "attempt", attempt, "error", err)
			d.complete(disp, del)
		}
	case errorhandler.ActionSendToDLQ:
		d.sendToDLQ(a.Topic(), disp.record, del.Ack.Err)
		d.complete(disp, del)
	case errorhandler.ActionFail:
		d.fail(del.Ack.Err)
		d.complete(disp, del)
	default:
		d.complete(disp, del)
	}
}

// wait sleeps for delay unless the dispatcher shuts down first.
func (d *Dispatcher) wait(delay time.Duration) bool {
	if delay <= 0 {
		return d.ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *Dispatcher) retry(disp *dispatch, p int32) error {
	d.mu.Lock()
	disp.attempt++
	attempt := disp.attempt
	d.mu.Unlock()

	d.logger.Debug("Retrying dispatch", "topic", disp.record.Topic, "partition", p, "attempt", attempt)

	h, err := d.tracker.Submit(d.ctx, disp.record, p, d.onDelivery(disp))
	if err != nil {
		return err
	}

	d.setCurrent(disp, attempt, h.ID())
	return nil
}

// setCurrent records id as the live dispatch for attempt. A synchronous
// failure may already have started a later attempt, which keeps its id.
func (d *Dispatcher) setCurrent(disp *dispatch, attempt int, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if disp.attempt == attempt {
		disp.current = id
	}
}

func (d *Dispatcher) sendToDLQ(topicName string, record kafka.Record, cause error) {
	topic, ok := d.topics[topicName]
	if !ok {
		d.logger.Error("Dead letter topic not registered, dropping", "topic", topicName, "source", record.Topic)
		return
	}

	dlq := kafka.Record{
		Topic:    topicName,
		Key:      record.Key,
		Value:    record.Value,
		Headers:  slices.Clone(record.Headers),
		Sequence: d.sequencer.Next(topicName),
	}
	dlq = dlq.WithHeader(HeaderDLQSourceTopic, []byte(record.Topic))
	if cause != nil {
		dlq = dlq.WithHeader(HeaderDLQError, []byte(cause.Error()))
	}

	p, err := d.selector.Select(topic, dlq)
	if err != nil {
		d.logger.Error("Dead letter partition selection failed", "topic", topicName, "error", err)
		return
	}

	_, err = d.tracker.Submit(
		d.ctx, dlq, p, func(del tracker.Delivery) {
			if !del.Succeeded() {
				d.logger.Error("Dead letter dispatch failed", "topic", topicName, "source", record.Topic,
					"error", del.Ack.Err)
				return
			}
			d.logger.Debug("Dead letter dispatched", "topic", topicName, "partition", del.Ack.Partition,
				"offset", del.Ack.Offset)
		},
	)
	if err != nil {
		d.logger.Error("Dead letter dispatch rejected", "topic", topicName, "error", err)
	}
}

// complete reports the final outcome of disp under its original id.
func (d *Dispatcher) complete(disp *dispatch, del tracker.Delivery) {
	disp.done.Store(true)

	d.mu.Lock()
	origin := disp.origin
	delete(d.inflight, origin)
	d.mu.Unlock()

	if disp.abandoned.Load() || disp.callback == nil {
		return
	}

	del.ID = origin
	disp.callback(del)
}

func (d *Dispatcher) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failure == nil {
		d.failure = err
		d.logger.Error("Dispatcher failed, rejecting new records", "error", err)
	}
}

// Abandon stops tracking the dispatch behind h, including any retry in
// progress. Its callback will not fire. Reports whether it was pending.
func (d *Dispatcher) Abandon(h *tracker.Handle) bool {
	d.mu.Lock()
	disp, ok := d.inflight[h.ID()]
	var current string
	if ok {
		current = disp.current
		delete(d.inflight, h.ID())
	}
	d.mu.Unlock()

	if !ok {
		return d.tracker.Abandon(h.ID())
	}

	if disp.abandoned.Swap(true) {
		return false
	}
	disp.done.Store(true)

	// false while a retry is being decided, the flag covers that window
	d.tracker.Abandon(current)
	return true
}

func (d *Dispatcher) PendingCount() int {
	return d.tracker.PendingCount()
}

func (d *Dispatcher) Stats() tracker.Stats {
	return d.tracker.Stats()
}

// Tracker exposes the underlying tracker for sweepers and collectors.
func (d *Dispatcher) Tracker() *tracker.Tracker {
	return d.tracker
}

func (d *Dispatcher) Topic(name string) (partition.Topic, bool) {
	t, ok := d.topics[name]
	return t, ok
}

// Topics returns the registered topics ordered by name.
func (d *Dispatcher) Topics() []partition.Topic {
	out := make([]partition.Topic, 0, len(d.topics))
	for _, t := range d.topics {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b partition.Topic) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

// Flush waits for the transport to deliver everything sent so far.
func (d *Dispatcher) Flush(ctx context.Context) error {
	return d.transport.Flush(ctx)
}

// Close flushes the transport, fails whatever is still pending, waits for
// in-progress failure handling and closes the transport.
func (d *Dispatcher) Close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(
		func() {
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()

			if ferr := d.transport.Flush(ctx); ferr != nil {
				d.logger.Warn("Flush on close failed", "error", ferr)
				err = ferr
			}

			d.tracker.Close()

			d.mu.Lock()
			d.cancel()
			d.mu.Unlock()
			d.wg.Wait()
			d.transport.Close()

			stats := d.tracker.Stats()
			d.logger.Info(
				"Dispatcher closed",
				"submitted", stats.Submitted,
				"succeeded", stats.Succeeded,
				"failed", stats.Failed,
				"stale", stats.Stale,
				"abandoned", stats.Abandoned,
			)
		},
	)

	return err
}

func (d *Dispatcher) checkOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	if d.failure != nil {
		return fmt.Errorf("%w: %w", ErrDispatcherFailed, d.failure)
	}
	return nil
}

func (d *Dispatcher) selectionError(ctx context.Context, topic string) {
	d.telemetry.SelectionErrors.Add(ctx, 1, metric.WithAttributes(semconv.MessagingDestinationName(topic)))
}
