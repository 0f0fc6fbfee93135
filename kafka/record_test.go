//go:build unit

package kafka_test

import (
	"errors"
	"testing"

	"github.com/hugolhafner/go-dispatch/kafka"
	"github.com/stretchr/testify/require"
)

func TestRecord_WithPartition(t *testing.T) {
	t.Parallel()
	r := kafka.NewRecord("t", []byte("k"), []byte("v"), 3)
	require.Nil(t, r.Partition)

	o := r.WithPartition(2)
	require.NotNil(t, o.Partition)
	require.Equal(t, int32(2), *o.Partition)
	require.Nil(t, r.Partition, "original record must not change")
}

func TestRecord_Copy(t *testing.T) {
	t.Parallel()
	r := kafka.NewRecord("t", []byte("k"), []byte("v"), 7).
		WithPartition(1).
		WithHeader("h", []byte("x"))

	c := r.Copy()
	r.Key[0] = 'z'
	r.Value[0] = 'z'
	r.Headers[0].Value[0] = 'z'
	*r.Partition = 9

	require.Equal(t, []byte("k"), c.Key)
	require.Equal(t, []byte("v"), c.Value)
	require.Equal(t, []byte("x"), c.Headers[0].Value)
	require.Equal(t, int32(1), *c.Partition)
	require.Equal(t, uint64(7), c.Sequence)
}

func TestHeaderValue(t *testing.T) {
	t.Parallel()
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}, {Key: "a", Value: []byte("2")}}

	v, ok := kafka.HeaderValue(headers, "a")
	require.True(t, ok)
	require.Equal(t, []byte("1"), v)

	_, ok = kafka.HeaderValue(headers, "b")
	require.False(t, ok)
}

func TestAck(t *testing.T) {
	t.Parallel()
	s := kafka.Success(2, 41)
	require.True(t, s.Succeeded())
	require.Equal(t, int32(2), s.Partition)
	require.Equal(t, int64(41), s.Offset)
	require.False(t, s.ReceivedAt.IsZero())

	cause := errors.New("boom")
	f := kafka.Failure(kafka.NewTransportError(cause, "t", 1))
	require.False(t, f.Succeeded())
	require.ErrorIs(t, f.Err, cause)
	require.EqualError(t, f.Err, "produce to t-1: boom")
}

func TestTopicPartition_String(t *testing.T) {
	t.Parallel()
	require.Equal(t, "sensors.third-2", kafka.TopicPartition{Topic: "sensors.third", Partition: 2}.String())
}
