package errorhandler

import (
	"time"

	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/hugolhafner/go-dispatch/tracker"
	"github.com/twmb/franz-go/pkg/kerr"
)

// ErrorContext is what a Handler sees of a failed dispatch.
type ErrorContext struct {
	Record kafka.Record
	Error  error

	// Attempt counts dispatches of Record, starting at 1.
	Attempt int

	ID        string
	Partition int32
	Phase     ErrorPhase

	// Elapsed is the time from submission to the failed acknowledgment.
	Elapsed time.Duration
}

// NewErrorContext copies record so a handler may keep it past the callback.
func NewErrorContext(record kafka.Record, err error) ErrorContext {
	return ErrorContext{
		Record:  record.Copy(),
		Error:   err,
		Attempt: 1,
	}
}

// FromDelivery describes a failed tracker delivery.
func FromDelivery(del tracker.Delivery, attempt int) ErrorContext {
	ec := NewErrorContext(del.Record, del.Ack.Err).
		WithAttempt(attempt).
		WithDispatch(del.ID, del.Partition).
		WithPhase(PhaseOf(del.Ack.Err))
	ec.Elapsed = del.Latency()
	return ec
}

func (ec ErrorContext) WithError(err error) ErrorContext {
	ec.Error = err
	return ec
}

func (ec ErrorContext) WithAttempt(attempt int) ErrorContext {
	ec.Attempt = attempt
	return ec
}

func (ec ErrorContext) WithDispatch(id string, partition int32) ErrorContext {
	ec.ID = id
	ec.Partition = partition
	return ec
}

func (ec ErrorContext) WithPhase(phase ErrorPhase) ErrorContext {
	ec.Phase = phase
	return ec
}

func (ec ErrorContext) IncrementAttempt() ErrorContext {
	ec.Attempt++
	return ec
}

// Retriable reports whether sending the record again may succeed: timeouts
// and broker errors franz-go classifies as retriable.
func (ec ErrorContext) Retriable() bool {
	return ec.Phase == PhaseTimeout || kerr.IsRetriable(ec.Error)
}
