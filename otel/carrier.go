package otel

import (
	"context"
	"slices"

	"github.com/hugolhafner/go-dispatch/kafka"
	"go.opentelemetry.io/otel/propagation"
)

var _ propagation.TextMapCarrier = HeaderCarrier{}

// HeaderCarrier reads and writes propagation fields on a record's headers.
type HeaderCarrier struct {
	record *kafka.Record
}

func NewHeaderCarrier(record *kafka.Record) HeaderCarrier {
	return HeaderCarrier{record: record}
}

func (c HeaderCarrier) Get(key string) string {
	v, _ := kafka.HeaderValue(c.record.Headers, key)
	return string(v)
}

// Set replaces the first header named key and drops any later duplicates, so
// a retried record never carries two trace parents.
func (c HeaderCarrier) Set(key, value string) {
	out := c.record.Headers[:0:0]
	set := false
	for _, h := range c.record.Headers {
		if h.Key != key {
			out = append(out, h)
			continue
		}
		if !set {
			out = append(out, kafka.Header{Key: key, Value: []byte(value)})
			set = true
		}
	}

	if !set {
		out = append(out, kafka.Header{Key: key, Value: []byte(value)})
	}
	c.record.Headers = out
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.record.Headers))
	for _, h := range c.record.Headers {
		if !slices.Contains(keys, h.Key) {
			keys = append(keys, h.Key)
		}
	}
	return keys
}

// Inject writes the trace context of ctx into record's headers. The header
// slice is always replaced, never modified in place, so callers sharing the
// original slice are unaffected.
func (t *Telemetry) Inject(ctx context.Context, record *kafka.Record) {
	t.Propagator.Inject(ctx, NewHeaderCarrier(record))
}

// Extract returns ctx carrying the trace context found in record's headers.
func (t *Telemetry) Extract(ctx context.Context, record kafka.Record) context.Context {
	return t.Propagator.Extract(ctx, NewHeaderCarrier(&record))
}
