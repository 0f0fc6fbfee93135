//go:build unit

package sweeper

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hugolhafner/go-dispatch/kafka"
	mockkafka "github.com/hugolhafner/go-dispatch/kafka/mock"
	"github.com/hugolhafner/go-dispatch/logger"
	mocklogger "github.com/hugolhafner/go-dispatch/logger/mock"
	"github.com/hugolhafner/go-dispatch/tracker"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSweeper_ExpiresOldDispatches(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	transport := mockkafka.NewTransport(mockkafka.WithDeferredAcks())
	tr := tracker.New(transport, tracker.WithClock(clock.Now))

	var failures []tracker.Delivery
	var mu sync.Mutex
	cb := func(d tracker.Delivery) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, d)
	}

	_, err := tr.Submit(context.Background(), kafka.NewRecord("t", nil, []byte("old"), 0), 1, cb)
	require.NoError(t, err)

	clock.Advance(20 * time.Second)
	_, err = tr.Submit(context.Background(), kafka.NewRecord("t", nil, []byte("young"), 1), 0, cb)
	require.NoError(t, err)

	clock.Advance(15 * time.Second)

	l := mocklogger.New()
	s := New(tr, WithTimeout(30*time.Second), WithClock(clock.Now), WithLogger(l))
	require.Equal(t, 1, s.Sweep())
	require.Equal(t, 1, tr.PendingCount())

	mu.Lock()
	require.Len(t, failures, 1)
	require.ErrorIs(t, failures[0].Ack.Err, tracker.ErrDeliveryTimeout)
	te, ok := kafka.AsTransportError(failures[0].Ack.Err)
	require.True(t, ok)
	require.Equal(t, int32(1), te.Partition)
	require.Equal(t, []byte("old"), failures[0].Record.Value)
	mu.Unlock()

	l.AssertCalledWithLevelAndMessage(t, logger.WarnLevel, "Expired pending dispatches")

	// a late ack for the expired dispatch is stale
	require.Equal(t, 2, transport.AckAll())
	require.Equal(t, uint64(1), tr.Stats().Stale)
	require.Equal(t, 0, tr.PendingCount())
}

func TestSweeper_NothingExpired(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := tracker.New(mockkafka.NewTransport(mockkafka.WithDeferredAcks()), tracker.WithClock(clock.Now))

	_, err := tr.Submit(context.Background(), kafka.NewRecord("t", nil, nil, 0), 0, nil)
	require.NoError(t, err)

	l := mocklogger.New()
	s := New(tr, WithTimeout(time.Minute), WithClock(clock.Now), WithLogger(l))
	require.Zero(t, s.Sweep())
	require.Equal(t, 1, tr.PendingCount())
	l.AssertNotCalledWithMessage(t, "Expired pending dispatches")
}

type racingSource struct {
	pending  []tracker.PendingDispatch
	resolved atomic.Int32
}

func (r *racingSource) Pending() []tracker.PendingDispatch {
	return r.pending
}

func (r *racingSource) Resolve(id string, ack kafka.Ack) error {
	if id == "gone" {
		return tracker.ErrStaleAcknowledgment
	}
	r.resolved.Add(1)
	return nil
}

func TestSweeper_SkipsConcurrentlyResolved(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &racingSource{
		pending: []tracker.PendingDispatch{
			{ID: "gone", SubmittedAt: now.Add(-time.Hour)},
			{ID: "here", SubmittedAt: now.Add(-time.Hour)},
		},
	}

	s := New(src, WithTimeout(time.Minute), WithClock(func() time.Time { return now }))
	require.Equal(t, 1, s.Sweep())
	require.Equal(t, int32(1), src.resolved.Load())
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	src := &racingSource{}
	s := New(src, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
