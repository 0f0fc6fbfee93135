package kafka

import (
	"context"
)

// AckFunc is invoked by a Transport exactly when it learns the outcome of a
// message, on whatever goroutine the transport delivers on.
type AckFunc func(id string, ack Ack)

// Transport is the messaging substrate the dispatcher forwards to. Send must
// not block on delivery; failures are reported through onAck.
type Transport interface {
	Send(ctx context.Context, msg Message, onAck AckFunc)
	Flush(ctx context.Context) error
	Close()
}
