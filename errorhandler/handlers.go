package errorhandler

import (
	"context"

	"github.com/hugolhafner/dskit/backoff"
	"github.com/hugolhafner/go-dispatch/logger"
)

func logFields(ec ErrorContext) []any {
	return []any{
		"error", ec.Error,
		"topic", ec.Record.Topic,
		"partition", ec.Partition,
		"id", ec.ID,
		"attempt", ec.Attempt,
		"phase", ec.Phase.String(),
		"elapsed", ec.Elapsed,
	}
}

// Silent hands every failure straight back to the caller.
func Silent() Handler {
	return HandlerFunc(
		func(context.Context, ErrorContext) Action {
			return Continue()
		},
	)
}

// LogAndContinue logs the failure and hands it to the caller.
func LogAndContinue(l logger.Logger) Handler {
	return HandlerFunc(
		func(_ context.Context, ec ErrorContext) Action {
			l.Error("Dispatch failed, reporting", logFields(ec)...)
			return Continue()
		},
	)
}

// LogAndFail logs the failure and stops the dispatcher.
func LogAndFail(l logger.Logger) Handler {
	return HandlerFunc(
		func(_ context.Context, ec ErrorContext) Action {
			l.Error("Dispatch failed, stopping", logFields(ec)...)
			return Fail()
		},
	)
}

// WithMaxAttempts retries, waiting b.Next(attempt) first, until maxAttempts
// dispatches have failed. Then fallback decides. A cancelled ctx fails.
func WithMaxAttempts(maxAttempts int, b backoff.Backoff, fallback Handler) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			if ctx.Err() != nil {
				return Fail()
			}

			if ec.Attempt < maxAttempts {
				return Retry(b.Next(uint(ec.Attempt)))
			}

			return fallback.Handle(ctx, ec)
		},
	)
}

// RetryRetriable is WithMaxAttempts for failures ErrorContext.Retriable
// accepts. Everything else goes to fallback on the first attempt.
func RetryRetriable(maxAttempts int, b backoff.Backoff, fallback Handler) Handler {
	retrying := WithMaxAttempts(maxAttempts, b, fallback)

	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			if !ec.Retriable() {
				return fallback.Handle(ctx, ec)
			}
			return retrying.Handle(ctx, ec)
		},
	)
}

// WithDLQ turns a Continue from inner into SendToDLQ(topic). A nil inner
// always dead-letters.
func WithDLQ(topic string, inner Handler) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			if inner == nil {
				return SendToDLQ(topic)
			}

			action := inner.Handle(ctx, ec)
			if action.Type() == ActionTypeContinue {
				return SendToDLQ(topic)
			}
			return action
		},
	)
}

// ActionLogger logs the action next decided at level.
func ActionLogger(l logger.Logger, level logger.LogLevel, next Handler) Handler {
	return HandlerFunc(
		func(ctx context.Context, ec ErrorContext) Action {
			action := next.Handle(ctx, ec)

			kv := append([]any{"action", action.Type().String()}, logFields(ec)...)
			if r, ok := action.(ActionRetry); ok {
				kv = append(kv, "delay", r.Delay())
			}
			if d, ok := action.(ActionSendToDLQ); ok {
				kv = append(kv, "dlq", d.Topic())
			}

			l.Log(level, "Error handler decision", kv...)
			return action
		},
	)
}
