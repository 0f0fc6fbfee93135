package tracker

import (
	"errors"
)

var (
	// ErrStaleAcknowledgment is returned by Resolve when the id is not, or
	// is no longer, pending. It is never fatal.
	ErrStaleAcknowledgment = errors.New("stale acknowledgment")

	// ErrTrackerClosed fails dispatches still pending at Close, and any
	// Submit after it.
	ErrTrackerClosed = errors.New("tracker closed")

	// ErrDuplicateID rejects a Submit whose generated id is already pending.
	ErrDuplicateID = errors.New("correlation id already pending")
)

// ErrDeliveryTimeout resolves dispatches that outlived their delivery
// timeout without an acknowledgment.
var ErrDeliveryTimeout = errors.New("delivery timeout")
