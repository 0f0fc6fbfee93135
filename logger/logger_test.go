//go:build unit

package logger_test

import (
	"testing"

	"github.com/hugolhafner/go-dispatch/logger"
	mocklogger "github.com/hugolhafner/go-dispatch/logger/mock"
	"github.com/stretchr/testify/require"
)

type recordingBase struct {
	level   logger.LogLevel
	entries []mocklogger.LogEntry
}

func (r *recordingBase) Level() logger.LogLevel {
	return r.level
}

func (r *recordingBase) Log(level logger.LogLevel, msg string, kv ...any) {
	r.entries = append(r.entries, mocklogger.LogEntry{Level: level, Message: msg, KV: kv})
}

func TestLevelWrapper(t *testing.T) {
	t.Parallel()
	base := &recordingBase{level: logger.DebugLevel}
	l := logger.WrapLogger(base)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e", "k", 1)

	require.Len(t, base.entries, 4)
	require.Equal(t, logger.DebugLevel, base.entries[0].Level)
	require.Equal(t, logger.InfoLevel, base.entries[1].Level)
	require.Equal(t, logger.WarnLevel, base.entries[2].Level)
	require.Equal(t, logger.ErrorLevel, base.entries[3].Level)
	require.Equal(t, []any{"k", 1}, base.entries[3].KV)
}

func TestLevelWrapper_With(t *testing.T) {
	t.Parallel()
	base := &recordingBase{level: logger.InfoLevel}
	l := logger.WrapLogger(base).With("component", "tracker").With("topic", "t")

	l.Info("hello", "id", "abc")

	require.Len(t, base.entries, 1)
	require.Equal(t, []any{"component", "tracker", "topic", "t", "id", "abc"}, base.entries[0].KV)
	require.Equal(t, logger.InfoLevel, l.Level())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"debug", logger.DebugLevel},
		{"info", logger.InfoLevel},
		{"warn", logger.WarnLevel},
		{"warning", logger.WarnLevel},
		{"error", logger.ErrorLevel},
		{"", logger.InfoLevel},
		{"verbose", logger.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(
			tt.in, func(t *testing.T) {
				t.Parallel()
				require.Equal(t, tt.want, logger.ParseLevel(tt.in))
			},
		)
	}
}

func TestMockLogger_WithSharesEntries(t *testing.T) {
	t.Parallel()
	l := mocklogger.New()
	child := l.With("component", "sweeper")

	child.Warn("expired", "id", "x")

	l.AssertCalled(t, logger.WarnLevel, "expired", "component", "sweeper", "id", "x")
	require.Equal(t, 1, l.CountMessage("expired"))
}
