// Package observability wires OpenTelemetry tracing and metrics around the
// connector nodes. Disabled telemetry degrades to no-op tracer and meter so
// call sites never branch.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "flownode"

// Config tunes the telemetry provider.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPHeaders    map[string]string
	SampleRate     float64
}

// DefaultConfig returns a disabled development configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "flownode",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		OTLPEndpoint:   "localhost:4318",
		SampleRate:     1.0,
	}
}

// TelemetryProvider carries the tracer, meter, and connector instruments.
type TelemetryProvider struct {
	config        Config
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	rowsProcessed      metric.Int64Counter
	deliveriesSent     metric.Int64Counter
	deliveriesFailed   metric.Int64Counter
	deliveryRetries    metric.Int64Counter
	deliveryDuration   metric.Float64Histogram
	sourceControlCalls metric.Int64Counter
}

// NewTelemetryProvider builds a provider. When cfg.Enabled is false the
// returned provider is a no-op whose every method is safe to call.
func NewTelemetryProvider(cfg Config) (*TelemetryProvider, error) {
	tp := &TelemetryProvider{config: cfg}

	if !cfg.Enabled {
		tp.tracer = otel.Tracer(instrumentationName)
		tp.meter = otel.Meter(instrumentationName)
		return tp, nil
	}

	if err := tp.initTracing(); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	if err := tp.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return tp, nil
}

func (tp *TelemetryProvider) initTracing() error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(tp.config.ServiceName),
			semconv.ServiceVersion(tp.config.ServiceVersion),
			semconv.DeploymentEnvironment(tp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlptrace.New(context.Background(),
		otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(tp.config.OTLPEndpoint),
			otlptracehttp.WithHeaders(tp.config.OTLPHeaders),
		),
	)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	tp.traceProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(tp.config.SampleRate)),
	)
	otel.SetTracerProvider(tp.traceProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tp.tracer = otel.Tracer(instrumentationName,
		trace.WithSchemaURL(semconv.SchemaURL),
	)
	return nil
}

func (tp *TelemetryProvider) initMetrics() error {
	tp.meter = otel.Meter(instrumentationName,
		metric.WithSchemaURL(semconv.SchemaURL),
	)

	var err error
	tp.rowsProcessed, err = tp.meter.Int64Counter(
		"flownode_rows_processed_total",
		metric.WithDescription("Total number of input rows processed"),
	)
	if err != nil {
		return fmt.Errorf("create rows_processed counter: %w", err)
	}
	tp.deliveriesSent, err = tp.meter.Int64Counter(
		"flownode_deliveries_sent_total",
		metric.WithDescription("Total number of successful webhook deliveries"),
	)
	if err != nil {
		return fmt.Errorf("create deliveries_sent counter: %w", err)
	}
	tp.deliveriesFailed, err = tp.meter.Int64Counter(
		"flownode_deliveries_failed_total",
		metric.WithDescription("Total number of failed webhook deliveries"),
	)
	if err != nil {
		return fmt.Errorf("create deliveries_failed counter: %w", err)
	}
	tp.deliveryRetries, err = tp.meter.Int64Counter(
		"flownode_delivery_retries_total",
		metric.WithDescription("Total number of delivery retry attempts"),
	)
	if err != nil {
		return fmt.Errorf("create delivery_retries counter: %w", err)
	}
	tp.deliveryDuration, err = tp.meter.Float64Histogram(
		"flownode_delivery_duration_seconds",
		metric.WithDescription("Duration of webhook delivery attempt sequences"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create delivery_duration histogram: %w", err)
	}
	tp.sourceControlCalls, err = tp.meter.Int64Counter(
		"flownode_source_control_calls_total",
		metric.WithDescription("Total number of source control API calls"),
	)
	if err != nil {
		return fmt.Errorf("create source_control_calls counter: %w", err)
	}
	return nil
}

// TraceOperation starts a span for an operation.
func (tp *TelemetryProvider) TraceOperation(ctx context.Context, operationName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	if tp.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tp.tracer.Start(ctx, operationName,
		trace.WithAttributes(attributes...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// TraceDelivery starts a span around one webhook delivery sequence.
func (tp *TelemetryProvider) TraceDelivery(ctx context.Context, messageType string) (context.Context, trace.Span) {
	return tp.TraceOperation(ctx, "flownode.delivery",
		attribute.String("flownode.message.type", messageType),
	)
}

// TraceRow starts a span around one input row.
func (tp *TelemetryProvider) TraceRow(ctx context.Context, index int, messageType string) (context.Context, trace.Span) {
	return tp.TraceOperation(ctx, "flownode.row",
		attribute.Int("flownode.row.index", index),
		attribute.String("flownode.message.type", messageType),
	)
}

// RecordRowProcessed counts a processed input row.
func (tp *TelemetryProvider) RecordRowProcessed(ctx context.Context, messageType string, success bool) {
	if tp.rowsProcessed != nil {
		tp.rowsProcessed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("message_type", messageType),
			attribute.Bool("success", success),
		))
	}
}

// RecordDeliverySent records a successful delivery and its duration.
func (tp *TelemetryProvider) RecordDeliverySent(ctx context.Context, messageType string, duration time.Duration) {
	if tp.deliveriesSent != nil {
		tp.deliveriesSent.Add(ctx, 1, metric.WithAttributes(
			attribute.String("message_type", messageType),
		))
	}
	if tp.deliveryDuration != nil {
		tp.deliveryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("message_type", messageType),
			attribute.String("status", "success"),
		))
	}
}

// RecordDeliveryFailed records a failed delivery with its classified error code.
func (tp *TelemetryProvider) RecordDeliveryFailed(ctx context.Context, messageType string, duration time.Duration, errorCode int) {
	if tp.deliveriesFailed != nil {
		tp.deliveriesFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("message_type", messageType),
			attribute.Int("error_code", errorCode),
		))
	}
	if tp.deliveryDuration != nil {
		tp.deliveryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
			attribute.String("message_type", messageType),
			attribute.String("status", "error"),
		))
	}
}

// RecordDeliveryRetry counts one retry attempt.
func (tp *TelemetryProvider) RecordDeliveryRetry(ctx context.Context, errorCode int) {
	if tp.deliveryRetries != nil {
		tp.deliveryRetries.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("error_code", errorCode),
		))
	}
}

// RecordSourceControlCall counts one source control API call.
func (tp *TelemetryProvider) RecordSourceControlCall(ctx context.Context, operation string, statusCode int) {
	if tp.sourceControlCalls != nil {
		tp.sourceControlCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.Int("status_code", statusCode),
		))
	}
}

// SetSpanError records an error on a span.
func (tp *TelemetryProvider) SetSpanError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful.
func (tp *TelemetryProvider) SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// Shutdown flushes and stops the trace provider.
func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	if tp.traceProvider != nil {
		return tp.traceProvider.Shutdown(ctx)
	}
	return nil
}
