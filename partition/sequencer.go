package partition

import (
	"sync"
	"sync/atomic"
)

// Sequencer hands out per-topic monotonic sequence numbers, starting at 0,
// for callers that do not track their own.
type Sequencer struct {
	counters sync.Map // topic -> *atomic.Uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

func (s *Sequencer) Next(topic string) uint64 {
	v, ok := s.counters.Load(topic)
	if !ok {
		v, _ = s.counters.LoadOrStore(topic, new(atomic.Uint64))
	}

	return v.(*atomic.Uint64).Add(1) - 1
}
