package mockkafka

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertSentCount verifies that exactly n messages were sent.
func (t *Transport) AssertSentCount(tb testing.TB, expected int) {
	tb.Helper()

	actual := len(t.SentMessages())
	require.Equal(tb, expected, actual, "expected %d messages, got %d", expected, actual)
}

// AssertSentCountForTopic verifies that exactly n messages were sent to a topic.
func (t *Transport) AssertSentCountForTopic(tb testing.TB, topic string, expected int) {
	tb.Helper()

	actual := len(t.SentMessagesForTopic(topic))
	require.Equal(tb, expected, actual, "expected %d messages sent to topic %q, got %d", expected, topic, actual)
}

// AssertSentTo verifies that a message with the given value went to topic/partition.
func (t *Transport) AssertSentTo(tb testing.TB, topic string, partition int32, value []byte) {
	tb.Helper()

	for _, m := range t.SentMessagesForTopic(topic) {
		if m.Partition == partition && bytes.Equal(m.Value, value) {
			return
		}
	}

	tb.Errorf(
		"expected message with value=%q to be sent to %s-%d, but it was not found",
		string(value), topic, partition,
	)
}

// AssertPartitions verifies the partition sequence of everything sent to topic.
func (t *Transport) AssertPartitions(tb testing.TB, topic string, expected ...int32) {
	tb.Helper()

	msgs := t.SentMessagesForTopic(topic)
	actual := make([]int32, len(msgs))
	for i, m := range msgs {
		actual[i] = m.Partition
	}

	require.Equal(tb, expected, actual, "unexpected partitions for topic %q", topic)
}

// AssertNothingSent verifies that Send was never called.
func (t *Transport) AssertNothingSent(tb testing.TB) {
	tb.Helper()

	require.Empty(tb, t.SentMessages(), "expected no messages to be sent")
}

// AssertNoPending verifies that every sent message has been acknowledged.
func (t *Transport) AssertNoPending(tb testing.TB) {
	tb.Helper()

	require.Empty(tb, t.PendingIDs(), "expected no pending acknowledgments")
}
