package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

// Destination attributes come from semconv; these cover the dispatch
// lifecycle that has no semantic convention.
const (
	AttrDispatchID  = attribute.Key("dispatch.correlation_id")
	AttrAckStatus   = attribute.Key("dispatch.ack.status")
	AttrAttempt     = attribute.Key("dispatch.attempt")
	AttrErrorAction = attribute.Key("dispatch.error.action")
)

// Ack status values
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusStale     = "stale"
	StatusAbandoned = "abandoned"
)
