//go:build unit

package zaplogger_test

import (
	"testing"

	"github.com/hugolhafner/go-dispatch/logger"
	"github.com/hugolhafner/go-dispatch/plugins/zaplogger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Fields(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	l := zaplogger.New(zap.New(core)).With("component", "tracker")

	l.Warn("stale acknowledgment", "id", "abc", 42, "ignored", "dangling")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "stale acknowledgment", entries[0].Message)

	ctx := entries[0].ContextMap()
	require.Equal(t, "tracker", ctx["component"])
	require.Equal(t, "abc", ctx["id"])
	require.Len(t, ctx, 2)
}

func TestZapLogger_Level(t *testing.T) {
	t.Parallel()
	core, _ := observer.New(zapcore.WarnLevel)
	l := zaplogger.New(zap.New(core))
	require.Equal(t, logger.WarnLevel, l.Level())
}
