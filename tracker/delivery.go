package tracker

import (
	"time"

	"github.com/hugolhafner/go-dispatch/kafka"
)

// Delivery is what a Callback receives once the outcome of a dispatch is
// known.
type Delivery struct {
	ID          string
	Record      kafka.Record
	Partition   int32
	Ack         kafka.Ack
	SubmittedAt time.Time
}

func (d Delivery) Succeeded() bool {
	return d.Ack.Succeeded()
}

func (d Delivery) Latency() time.Duration {
	return d.Ack.ReceivedAt.Sub(d.SubmittedAt)
}

// Callback is invoked exactly once per resolved dispatch, outside the
// tracker's lock, on the goroutine that resolved it.
type Callback func(Delivery)

// PendingDispatch is a snapshot of an unresolved dispatch.
type PendingDispatch struct {
	ID          string
	Topic       string
	Partition   int32
	SubmittedAt time.Time
}

// Stats are cumulative counters since the tracker was created.
type Stats struct {
	Pending   int
	Submitted uint64
	Succeeded uint64
	Failed    uint64
	Stale     uint64
	Abandoned uint64
}
