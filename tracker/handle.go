package tracker

import (
	"time"
)

// Handle identifies a single submitted record. It is bound to that record
// for life and its id is never reused by the same Tracker.
type Handle struct {
	id          string
	topic       string
	partition   int32
	submittedAt time.Time

	t *Tracker
}

func (h *Handle) ID() string {
	return h.id
}

func (h *Handle) Topic() string {
	return h.topic
}

func (h *Handle) Partition() int32 {
	return h.partition
}

func (h *Handle) SubmittedAt() time.Time {
	return h.submittedAt
}

// Abandon stops tracking the dispatch; its callback will not fire. Reports
// whether the dispatch was still pending.
func (h *Handle) Abandon() bool {
	return h.t.Abandon(h.id)
}
