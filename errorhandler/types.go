package errorhandler

import (
	"context"
	"time"
)

// ActionType names the outcome a Handler chose for a failed dispatch.
type ActionType int

const (
	ActionTypeContinue  ActionType = iota // hand the failure to the caller
	ActionTypeRetry                       // dispatch the record again
	ActionTypeFail                        // hand the failure over and stop accepting records
	ActionTypeSendToDLQ                   // forward to a dead letter topic, then hand over
)

func (a ActionType) String() string {
	switch a {
	case ActionTypeContinue:
		return "continue"
	case ActionTypeRetry:
		return "retry"
	case ActionTypeFail:
		return "fail"
	case ActionTypeSendToDLQ:
		return "dlq"
	default:
		return "unknown"
	}
}

var (
	_ Action = ActionContinue{}
	_ Action = ActionRetry{}
	_ Action = ActionFail{}
	_ Action = ActionSendToDLQ{}
)

type Action interface {
	Type() ActionType
}

type ActionContinue struct{}

func (ActionContinue) Type() ActionType { return ActionTypeContinue }

// ActionRetry asks the dispatcher to send the record again, to the same
// partition, once Delay has passed.
type ActionRetry struct {
	delay time.Duration
}

func (ActionRetry) Type() ActionType { return ActionTypeRetry }

func (a ActionRetry) Delay() time.Duration { return a.delay }

type ActionFail struct{}

func (ActionFail) Type() ActionType { return ActionTypeFail }

type ActionSendToDLQ struct {
	topic string
}

func (ActionSendToDLQ) Type() ActionType { return ActionTypeSendToDLQ }

func (a ActionSendToDLQ) Topic() string { return a.topic }

func Continue() Action { return ActionContinue{} }

func Fail() Action { return ActionFail{} }

// Retry schedules another attempt after delay. Zero retries immediately.
func Retry(delay time.Duration) ActionRetry {
	return ActionRetry{delay: max(delay, 0)}
}

func SendToDLQ(topic string) ActionSendToDLQ {
	return ActionSendToDLQ{topic: topic}
}

// Handler decides what happens to a dispatch whose acknowledgment was a
// failure. The dispatcher never calls it on a transport goroutine, but
// handlers should return promptly and express waiting through Retry.
type Handler interface {
	Handle(ctx context.Context, ec ErrorContext) Action
}

type HandlerFunc func(ctx context.Context, ec ErrorContext) Action

func (f HandlerFunc) Handle(ctx context.Context, ec ErrorContext) Action {
	return f(ctx, ec)
}
