package dispatch

import (
	"context"
	"fmt"

	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/hugolhafner/go-dispatch/serde"
	"github.com/hugolhafner/go-dispatch/tracker"
)

// TypedRecord is a record whose key and value are serialised on submit.
type TypedRecord[K, V any] struct {
	Topic     string
	Partition *int32
	Key       K
	Value     V
	Headers   []kafka.Header
	Sequence  uint64
}

// Typed wraps a Dispatcher with key and value serialisers.
type Typed[K, V any] struct {
	d          *Dispatcher
	keySerde   serde.Serialiser[K]
	valueSerde serde.Serialiser[V]
}

func NewTyped[K, V any](d *Dispatcher, keySerde serde.Serialiser[K], valueSerde serde.Serialiser[V]) *Typed[K, V] {
	return &Typed[K, V]{
		d:          d,
		keySerde:   keySerde,
		valueSerde: valueSerde,
	}
}

func (t *Typed[K, V]) record(r TypedRecord[K, V]) (kafka.Record, error) {
	key, err := t.keySerde.Serialise(r.Topic, r.Key)
	if err != nil {
		return kafka.Record{}, fmt.Errorf("serialise key for %s: %w", r.Topic, err)
	}

	value, err := t.valueSerde.Serialise(r.Topic, r.Value)
	if err != nil {
		return kafka.Record{}, fmt.Errorf("serialise value for %s: %w", r.Topic, err)
	}

	return kafka.Record{
		Topic:     r.Topic,
		Partition: r.Partition,
		Key:       key,
		Value:     value,
		Headers:   r.Headers,
		Sequence:  r.Sequence,
	}, nil
}

func (t *Typed[K, V]) Submit(ctx context.Context, r TypedRecord[K, V], cb tracker.Callback) (*tracker.Handle, error) {
	rec, err := t.record(r)
	if err != nil {
		return nil, err
	}
	return t.d.Submit(ctx, rec, cb)
}

func (t *Typed[K, V]) SendSync(ctx context.Context, r TypedRecord[K, V]) (kafka.Ack, error) {
	rec, err := t.record(r)
	if err != nil {
		return kafka.Ack{}, err
	}
	return t.d.SendSync(ctx, rec)
}

func (t *Typed[K, V]) Dispatcher() *Dispatcher {
	return t.d
}
