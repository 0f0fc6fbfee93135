package kafka

import (
	"errors"
	"fmt"
)

var ErrTransportClosed = errors.New("transport closed")

// TransportError wraps a failure reported by the underlying client together
// with the destination it was aimed at.
type TransportError struct {
	Cause     error
	Topic     string
	Partition int32
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("produce to %s: %v", TopicPartition{Topic: e.Topic, Partition: e.Partition}, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

func NewTransportError(cause error, topic string, partition int32) error {
	return &TransportError{
		Cause:     cause,
		Topic:     topic,
		Partition: partition,
	}
}

func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}

	return nil, false
}
