package mockkafka

import "github.com/hugolhafner/go-dispatch/kafka"

// Option is a functional option for configuring a mock Transport.
type Option func(*Transport)

// WithDeferredAcks keeps every sent message pending until the test resolves
// it with Ack, Fail, AckAll or Flush. The default acknowledges inside Send.
func WithDeferredAcks() Option {
	return func(t *Transport) {
		t.deferred = true
	}
}

// WithDuplicateAcks makes the transport deliver every acknowledgment twice.
func WithDuplicateAcks() Option {
	return func(t *Transport) {
		t.duplicate = true
	}
}

// WithSendError configures an error to be reported for every Send call.
func WithSendError(err error) Option {
	return func(t *Transport) {
		t.sendErr = func(kafka.Message) error { return err }
	}
}

// WithSendErrorFunc decides per message whether Send fails.
func WithSendErrorFunc(fn func(msg kafka.Message) error) Option {
	return func(t *Transport) {
		t.sendErr = fn
	}
}
