//go:build unit

package mockkafka_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hugolhafner/go-dispatch/kafka"
	mockkafka "github.com/hugolhafner/go-dispatch/kafka/mock"
	"github.com/stretchr/testify/require"
)

type ackRecorder struct {
	mu   sync.Mutex
	acks map[string][]kafka.Ack
}

func newAckRecorder() *ackRecorder {
	return &ackRecorder{acks: make(map[string][]kafka.Ack)}
}

func (r *ackRecorder) onAck(id string, ack kafka.Ack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks[id] = append(r.acks[id], ack)
}

func (r *ackRecorder) get(id string) []kafka.Ack {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acks[id]
}

func msg(id, topic string, partition int32) kafka.Message {
	return kafka.Message{ID: id, Topic: topic, Partition: partition, Value: []byte(id)}
}

func TestTransport_ImmediateAcks(t *testing.T) {
	t.Parallel()
	tr := mockkafka.NewTransport()
	rec := newAckRecorder()

	tr.Send(context.Background(), msg("a", "t", 1), rec.onAck)
	tr.Send(context.Background(), msg("b", "t", 1), rec.onAck)
	tr.Send(context.Background(), msg("c", "t", 0), rec.onAck)

	require.Len(t, rec.get("a"), 1)
	require.Equal(t, int64(0), rec.get("a")[0].Offset)
	require.Equal(t, int64(1), rec.get("b")[0].Offset)
	require.Equal(t, int64(0), rec.get("c")[0].Offset)
	require.Equal(t, int32(1), rec.get("b")[0].Partition)

	tr.AssertSentCount(t, 3)
	tr.AssertPartitions(t, "t", 1, 1, 0)
	tr.AssertSentTo(t, "t", 0, []byte("c"))
	tr.AssertNoPending(t)
}

func TestTransport_DeferredAcks(t *testing.T) {
	t.Parallel()
	tr := mockkafka.NewTransport(mockkafka.WithDeferredAcks())
	rec := newAckRecorder()

	tr.Send(context.Background(), msg("a", "t", 0), rec.onAck)
	tr.Send(context.Background(), msg("b", "t", 0), rec.onAck)
	tr.Send(context.Background(), msg("c", "t", 0), rec.onAck)
	require.Empty(t, rec.get("a"))
	require.Equal(t, []string{"a", "b", "c"}, tr.PendingIDs())

	cause := errors.New("broker unavailable")
	require.NoError(t, tr.Fail("b", cause))
	require.Len(t, rec.get("b"), 1)
	require.ErrorIs(t, rec.get("b")[0].Err, cause)

	te, ok := kafka.AsTransportError(rec.get("b")[0].Err)
	require.True(t, ok)
	require.Equal(t, "t", te.Topic)

	require.Equal(t, 2, tr.AckAll())
	require.True(t, rec.get("a")[0].Succeeded())
	require.True(t, rec.get("c")[0].Succeeded())
	// newest first
	require.Equal(t, int64(0), rec.get("c")[0].Offset)
	require.Equal(t, int64(1), rec.get("a")[0].Offset)

	require.Error(t, tr.Ack("a"))
	tr.AssertNoPending(t)
}

func TestTransport_DuplicateAcks(t *testing.T) {
	t.Parallel()
	tr := mockkafka.NewTransport(mockkafka.WithDuplicateAcks())
	rec := newAckRecorder()

	tr.Send(context.Background(), msg("a", "t", 0), rec.onAck)
	require.Len(t, rec.get("a"), 2)
}

func TestTransport_SendError(t *testing.T) {
	t.Parallel()
	cause := errors.New("message too large")
	tr := mockkafka.NewTransport(
		mockkafka.WithSendErrorFunc(
			func(m kafka.Message) error {
				if m.Partition == 2 {
					return cause
				}
				return nil
			},
		),
	)
	rec := newAckRecorder()

	tr.Send(context.Background(), msg("ok", "t", 1), rec.onAck)
	tr.Send(context.Background(), msg("bad", "t", 2), rec.onAck)

	require.True(t, rec.get("ok")[0].Succeeded())
	require.ErrorIs(t, rec.get("bad")[0].Err, cause)
}

func TestTransport_Closed(t *testing.T) {
	t.Parallel()
	tr := mockkafka.NewTransport()
	rec := newAckRecorder()

	tr.Close()
	require.True(t, tr.IsClosed())

	tr.Send(context.Background(), msg("a", "t", 0), rec.onAck)
	require.ErrorIs(t, rec.get("a")[0].Err, kafka.ErrTransportClosed)
	tr.AssertNothingSent(t)
}

func TestTransport_FlushAcksPending(t *testing.T) {
	t.Parallel()
	tr := mockkafka.NewTransport(mockkafka.WithDeferredAcks())
	rec := newAckRecorder()

	for _, id := range []string{"a", "b"} {
		tr.Send(context.Background(), msg(id, "t", 0), rec.onAck)
	}

	require.NoError(t, tr.Flush(context.Background()))
	require.Len(t, rec.get("a"), 1)
	require.Len(t, rec.get("b"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, tr.Flush(ctx), context.Canceled)
}
