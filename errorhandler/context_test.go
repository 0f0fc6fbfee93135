//go:build unit

package errorhandler_test

import (
	"errors"
	"testing"
	"time"

	"github.com/hugolhafner/go-dispatch/errorhandler"
	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/hugolhafner/go-dispatch/tracker"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
)

func TestNewErrorContext_CopiesRecord(t *testing.T) {
	t.Parallel()
	key := []byte("sensor-1")
	value := []byte("Message #0")
	record := kafka.NewRecord("sensors.first", key, value, 4).
		WithHeader("traceparent", []byte("00-aa-bb-01")).
		WithPartition(1)

	ec := errorhandler.NewErrorContext(record, nil)
	require.Equal(t, record, ec.Record)
	require.Equal(t, 1, ec.Attempt)
	require.Equal(t, errorhandler.PhaseUnknown, ec.Phase)

	key[0] = 'X'
	value[0] = 'X'
	record.Headers[0].Value[0] = 'X'

	require.Equal(t, []byte("sensor-1"), ec.Record.Key)
	require.Equal(t, []byte("Message #0"), ec.Record.Value)
	require.Equal(t, []byte("00-aa-bb-01"), ec.Record.Headers[0].Value)
}

func TestFromDelivery(t *testing.T) {
	t.Parallel()
	submitted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cause := kafka.NewTransportError(tracker.ErrDeliveryTimeout, "sensors.third", 2)

	del := tracker.Delivery{
		ID:          "d-7",
		Record:      kafka.NewRecord("sensors.third", nil, []byte("v"), 5),
		Partition:   2,
		Ack:         kafka.Ack{Err: cause, ReceivedAt: submitted.Add(3 * time.Second)},
		SubmittedAt: submitted,
	}

	ec := errorhandler.FromDelivery(del, 2)
	require.Equal(t, "d-7", ec.ID)
	require.Equal(t, int32(2), ec.Partition)
	require.Equal(t, 2, ec.Attempt)
	require.Equal(t, errorhandler.PhaseTimeout, ec.Phase)
	require.Equal(t, 3*time.Second, ec.Elapsed)
	require.ErrorIs(t, ec.Error, tracker.ErrDeliveryTimeout)
	require.True(t, ec.Retriable())
}

func TestErrorContext_Builders(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	base := errorhandler.NewErrorContext(kafka.Record{Topic: "sensors.first"}, nil)

	ec := base.
		WithError(cause).
		WithAttempt(3).
		WithDispatch("id-1", 5).
		WithPhase(errorhandler.PhaseTransport).
		IncrementAttempt()

	require.ErrorIs(t, ec.Error, cause)
	require.Equal(t, 4, ec.Attempt)
	require.Equal(t, "id-1", ec.ID)
	require.Equal(t, int32(5), ec.Partition)

	require.Nil(t, base.Error)
	require.Equal(t, 1, base.Attempt)
}

func TestErrorContext_Retriable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		err       error
		phase     errorhandler.ErrorPhase
		retriable bool
	}{
		{"leader moved", kerr.NotLeaderForPartition, errorhandler.PhaseTransport, true},
		{
			"wrapped leader moved",
			kafka.NewTransportError(kerr.LeaderNotAvailable, "sensors.first", 0),
			errorhandler.PhaseTransport,
			true,
		},
		{"record too large", kerr.MessageTooLarge, errorhandler.PhaseTransport, false},
		{"unclassified", errors.New("dial refused"), errorhandler.PhaseTransport, false},
		{"timeout", errors.New("late"), errorhandler.PhaseTimeout, true},
		{"shutdown", tracker.ErrTrackerClosed, errorhandler.PhaseShutdown, false},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()
				ec := errorhandler.NewErrorContext(kafka.Record{}, tt.err).WithPhase(tt.phase)
				require.Equal(t, tt.retriable, ec.Retriable())
			},
		)
	}
}
