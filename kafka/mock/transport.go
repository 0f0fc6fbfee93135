package mockkafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/hugolhafner/go-dispatch/kafka"
)

var _ kafka.Transport = (*Transport)(nil)

// SentMessage is a message handed to the mock together with its ack hook.
type SentMessage struct {
	kafka.Message
	onAck kafka.AckFunc
}

// Transport is an in-memory kafka.Transport. Offsets are assigned per
// topic-partition in the order acknowledgments are produced.
type Transport struct {
	mu sync.Mutex

	sent    []kafka.Message
	pending []SentMessage
	offsets map[kafka.TopicPartition]int64

	deferred  bool
	duplicate bool
	sendErr   func(kafka.Message) error

	closed bool
}

func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		offsets: make(map[kafka.TopicPartition]int64),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Transport) Send(ctx context.Context, msg kafka.Message, onAck kafka.AckFunc) {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()
		t.deliver(onAck, msg.ID, kafka.Failure(kafka.NewTransportError(kafka.ErrTransportClosed, msg.Topic, msg.Partition)))
		return
	}

	copied := copyMessage(msg)
	t.sent = append(t.sent, copied)

	if t.sendErr != nil {
		if err := t.sendErr(copied); err != nil {
			t.mu.Unlock()
			t.deliver(onAck, msg.ID, kafka.Failure(kafka.NewTransportError(err, msg.Topic, msg.Partition)))
			return
		}
	}

	if t.deferred {
		t.pending = append(t.pending, SentMessage{Message: copied, onAck: onAck})
		t.mu.Unlock()
		return
	}

	ack := t.nextSuccessLocked(copied)
	t.mu.Unlock()

	t.deliver(onAck, msg.ID, ack)
}

func (t *Transport) nextSuccessLocked(msg kafka.Message) kafka.Ack {
	tp := kafka.TopicPartition{Topic: msg.Topic, Partition: msg.Partition}
	offset := t.offsets[tp]
	t.offsets[tp] = offset + 1

	return kafka.Success(msg.Partition, offset)
}

func (t *Transport) deliver(onAck kafka.AckFunc, id string, ack kafka.Ack) {
	onAck(id, ack)
	if t.duplicate {
		onAck(id, ack)
	}
}

func (t *Transport) take(id string) (SentMessage, bool) {
	for i, p := range t.pending {
		if p.ID == id {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return p, true
		}
	}

	return SentMessage{}, false
}

// Ack acknowledges the pending message with the given correlation id.
func (t *Transport) Ack(id string) error {
	t.mu.Lock()
	p, ok := t.take(id)
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("no pending message %q", id)
	}
	ack := t.nextSuccessLocked(p.Message)
	t.mu.Unlock()

	t.deliver(p.onAck, id, ack)
	return nil
}

// Fail reports err for the pending message with the given correlation id.
func (t *Transport) Fail(id string, err error) error {
	t.mu.Lock()
	p, ok := t.take(id)
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending message %q", id)
	}

	t.deliver(p.onAck, id, kafka.Failure(kafka.NewTransportError(err, p.Topic, p.Partition)))
	return nil
}

// AckAll acknowledges every pending message, newest first, and returns how
// many were acknowledged.
func (t *Transport) AckAll() int {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil

	acks := make([]kafka.Ack, len(pending))
	for i := len(pending) - 1; i >= 0; i-- {
		acks[i] = t.nextSuccessLocked(pending[i].Message)
	}
	t.mu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		t.deliver(pending[i].onAck, pending[i].ID, acks[i])
	}

	return len(pending)
}

// AckAllConcurrently acknowledges every pending message from its own
// goroutine and waits for all deliveries to finish.
func (t *Transport) AckAllConcurrently() int {
	t.mu.Lock()
	pending := t.pending
	t.pending = nil

	acks := make([]kafka.Ack, len(pending))
	for i := range pending {
		acks[i] = t.nextSuccessLocked(pending[i].Message)
	}
	t.mu.Unlock()

	var wg sync.WaitGroup
	for i := range pending {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			t.deliver(pending[i].onAck, pending[i].ID, acks[i])
		}(i)
	}
	wg.Wait()

	return len(pending)
}

// Flush acknowledges everything still pending.
func (t *Transport) Flush(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.AckAll()
	return nil
}

func (t *Transport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
}

// SentMessages returns a copy of every message handed to Send.
func (t *Transport) SentMessages() []kafka.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]kafka.Message, len(t.sent))
	copy(result, t.sent)
	return result
}

// SentMessagesForTopic returns the messages sent to a specific topic.
func (t *Transport) SentMessagesForTopic(topic string) []kafka.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result []kafka.Message
	for _, m := range t.sent {
		if m.Topic == topic {
			result = append(result, m)
		}
	}
	return result
}

// PendingIDs returns the correlation ids still awaiting an acknowledgment.
func (t *Transport) PendingIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, len(t.pending))
	for i, p := range t.pending {
		ids[i] = p.ID
	}
	return ids
}

func (t *Transport) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closed
}

// Reset clears sent messages, pending acks and offsets.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = nil
	t.pending = nil
	t.offsets = make(map[kafka.TopicPartition]int64)
	t.closed = false
}

func copyMessage(m kafka.Message) kafka.Message {
	headers := make([]kafka.Header, len(m.Headers))
	for i, h := range m.Headers {
		v := make([]byte, len(h.Value))
		copy(v, h.Value)
		headers[i] = kafka.Header{Key: h.Key, Value: v}
	}

	key := make([]byte, len(m.Key))
	copy(key, m.Key)

	value := make([]byte, len(m.Value))
	copy(value, m.Value)

	return kafka.Message{
		ID:        m.ID,
		Topic:     m.Topic,
		Partition: m.Partition,
		Key:       key,
		Value:     value,
		Headers:   headers,
	}
}
