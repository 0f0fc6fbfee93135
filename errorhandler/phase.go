package errorhandler

import (
	"context"
	"errors"

	"github.com/hugolhafner/go-dispatch/tracker"
)

// ErrorPhase says where a failed dispatch gave up.
type ErrorPhase int

const (
	PhaseUnknown   ErrorPhase = iota
	PhaseTransport            // the broker or client rejected the record
	PhaseTimeout              // no acknowledgment within the delivery timeout
	PhaseShutdown             // the tracker closed with the record pending
)

func (p ErrorPhase) String() string {
	switch p {
	case PhaseTransport:
		return "transport"
	case PhaseTimeout:
		return "timeout"
	case PhaseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// PhaseOf classifies the cause carried by a failed acknowledgment.
func PhaseOf(err error) ErrorPhase {
	switch {
	case err == nil:
		return PhaseUnknown
	case errors.Is(err, tracker.ErrDeliveryTimeout):
		return PhaseTimeout
	case errors.Is(err, tracker.ErrTrackerClosed):
		return PhaseShutdown
	default:
		return PhaseTransport
	}
}

var _ Handler = (*PhaseRouter)(nil)

// PhaseRouter sends each failure to the handler registered for its phase.
type PhaseRouter struct {
	fallback Handler
	byPhase  map[ErrorPhase]Handler
}

// NewPhaseRouter routes phases without a handler of their own to fallback.
// A nil fallback is Silent. Nil phase handlers are ignored.
func NewPhaseRouter(fallback, transport, timeout, shutdown Handler) *PhaseRouter {
	if fallback == nil {
		fallback = Silent()
	}

	r := &PhaseRouter{fallback: fallback, byPhase: make(map[ErrorPhase]Handler, 3)}
	for phase, h := range map[ErrorPhase]Handler{
		PhaseTransport: transport,
		PhaseTimeout:   timeout,
		PhaseShutdown:  shutdown,
	} {
		if h != nil {
			r.byPhase[phase] = h
		}
	}

	return r
}

func (r *PhaseRouter) Handle(ctx context.Context, ec ErrorContext) Action {
	if h, ok := r.byPhase[ec.Phase]; ok {
		return h.Handle(ctx, ec)
	}
	return r.fallback.Handle(ctx, ec)
}
