package otel

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/hugolhafner/go-dispatch"

// Telemetry holds all OpenTelemetry instruments for the dispatcher
// When no providers are configured, all instruments are noops with zero overhead
type Telemetry struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator

	// Dispatch metrics
	DispatchesSubmitted metric.Int64Counter
	DispatchesPending   metric.Int64UpDownCounter

	// Acknowledgment metrics
	Acknowledgments metric.Int64Counter
	AckLatency      metric.Float64Histogram

	// Error metrics
	SelectionErrors     metric.Int64Counter
	ErrorHandlerActions metric.Int64Counter
}

// NewTelemetry creates a Telemetry instance from the given providers.
// all providers are optional and defaulted to noops if nil
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider, prop propagation.TextMapPropagator) (
	*Telemetry, error,
) {
	if tp == nil {
		tp = traceNoop.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if prop == nil {
		prop = propagation.TraceContext{}
	}

	tracer := tp.Tracer(scopeName)
	meter := mp.Meter(scopeName)

	submitted, err := meter.Int64Counter(
		"dispatch.submitted",
		metric.WithDescription("Records handed to the transport"),
	)
	if err != nil {
		return nil, err
	}

	pending, err := meter.Int64UpDownCounter(
		"dispatch.pending",
		metric.WithDescription("Dispatches awaiting acknowledgment"),
	)
	if err != nil {
		return nil, err
	}

	acks, err := meter.Int64Counter(
		"dispatch.acknowledgments",
		metric.WithDescription("Acknowledgments reconciled, by status"),
	)
	if err != nil {
		return nil, err
	}

	ackLatency, err := meter.Float64Histogram(
		"dispatch.ack.latency",
		metric.WithDescription("Time from submit to acknowledgment"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	selectionErrors, err := meter.Int64Counter(
		"dispatch.selection.errors",
		metric.WithDescription("Records rejected at submit time"),
	)
	if err != nil {
		return nil, err
	}

	errorHandlerActions, err := meter.Int64Counter(
		"dispatch.error_handler.actions",
		metric.WithDescription("Delivery error handler decisions"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:              tracer,
		Propagator:          prop,
		DispatchesSubmitted: submitted,
		DispatchesPending:   pending,
		Acknowledgments:     acks,
		AckLatency:          ackLatency,
		SelectionErrors:     selectionErrors,
		ErrorHandlerActions: errorHandlerActions,
	}, nil
}

// Noop returns a Telemetry instance with all noop instruments
func Noop() *Telemetry {
	t, _ := NewTelemetry(nil, nil, nil)
	return t
}
