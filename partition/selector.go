package partition

import (
	"errors"
	"fmt"

	"github.com/hugolhafner/go-dispatch/kafka"
)

var ErrInvalidOverridePartition = errors.New("override partition is not valid for topic")

// Fallback decides where a sequence lands when the modulo candidate is not
// itself a valid partition.
type Fallback int

const (
	// FallbackPositional maps the candidate onto the candidate-th valid
	// partition, using the last one if that position does not exist.
	FallbackPositional Fallback = iota
	// FallbackLast always uses the last valid partition.
	FallbackLast
)

func (f Fallback) String() string {
	switch f {
	case FallbackPositional:
		return "positional"
	case FallbackLast:
		return "last"
	default:
		return "unknown"
	}
}

// ParseFallback maps a config string onto a Fallback.
func ParseFallback(s string) (Fallback, error) {
	switch s {
	case "", "positional":
		return FallbackPositional, nil
	case "last":
		return FallbackLast, nil
	default:
		return 0, fmt.Errorf("unknown partition fallback %q", s)
	}
}

type Selector interface {
	Select(topic Topic, record kafka.Record) (int32, error)
}

type SelectorFunc func(topic Topic, record kafka.Record) (int32, error)

func (f SelectorFunc) Select(topic Topic, record kafka.Record) (int32, error) {
	return f(topic, record)
}

type SequenceSelector struct {
	fallback Fallback
}

var _ Selector = SequenceSelector{}

type Option func(*SequenceSelector)

func WithFallback(f Fallback) Option {
	return func(s *SequenceSelector) {
		s.fallback = f
	}
}

func NewSelector(opts ...Option) SequenceSelector {
	s := SequenceSelector{fallback: FallbackPositional}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Select returns the partition record should be sent to. It has no side
// effects and never returns a partition outside topic's valid set.
//
// A topic with a single partition always gets that partition, override or
// not. Otherwise a valid override wins, an invalid one is rejected, and
// records without one are spread by Sequence modulo the partition count.
func (s SequenceSelector) Select(topic Topic, record kafka.Record) (int32, error) {
	n := topic.Len()
	if n == 0 {
		return 0, fmt.Errorf("%s: %w", topic.Name(), ErrNoPartitions)
	}

	if n == 1 {
		return topic.partitions[0], nil
	}

	if record.Partition != nil {
		if !topic.Contains(*record.Partition) {
			return 0, fmt.Errorf("%w: %d not in %s", ErrInvalidOverridePartition, *record.Partition, topic)
		}
		return *record.Partition, nil
	}

	pos := record.Sequence % uint64(n)
	candidate := int32(pos)
	if topic.Contains(candidate) {
		return candidate, nil
	}

	last := topic.partitions[n-1]
	if s.fallback == FallbackLast {
		return last, nil
	}

	if pos >= uint64(n) {
		return last, nil
	}

	return topic.partitions[pos], nil
}

// Select applies the default selector.
func Select(topic Topic, record kafka.Record) (int32, error) {
	return NewSelector().Select(topic, record)
}
