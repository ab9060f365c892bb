// Package telemetry wires OpenTelemetry traces and metrics for wanderbot.
// Export is opt-in; without Init the global no-op providers are used.
package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dotsetgreg/wanderbot/pkg/config"
	"github.com/dotsetgreg/wanderbot/pkg/logger"
)

const ScopeName = "github.com/dotsetgreg/wanderbot"

// Instruments holds the tracer and meters shared by the generation client
// and the orchestrator.
type Instruments struct {
	Tracer trace.Tracer

	LLMRequests  metric.Int64Counter
	LLMFallbacks metric.Int64Counter
	TokenUsage   metric.Int64Counter
	LLMDuration  metric.Float64Histogram
	Responses    metric.Int64Counter
	ToolCalls    metric.Int64Counter
}

// Init installs OTLP/HTTP trace and metric exporters as the global providers.
// Endpoints and headers come from the standard OTEL_EXPORTER_OTLP_* variables.
// When telemetry is disabled it returns a no-op shutdown.
func Init(ctx context.Context, cfg config.TelemetryConfig) (func(context.Context) error, error) {
	noopShutdown := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "wanderbot"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return noopShutdown, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return noopShutdown, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return noopShutdown, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.InfoCF("telemetry", "OTLP export enabled",
		map[string]interface{}{"service": serviceName})

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// NewInstruments builds instruments from explicit providers. Nil providers
// fall back to the globals.
func NewInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(ScopeName)

	llmRequests, err := meter.Int64Counter("llm.requests",
		metric.WithDescription("Generation requests by outcome"))
	if err != nil {
		return nil, err
	}
	llmFallbacks, err := meter.Int64Counter("llm.fallbacks",
		metric.WithDescription("Answers served by the offline fallback"))
	if err != nil {
		return nil, err
	}
	tokenUsage, err := meter.Int64Counter("llm.token.usage",
		metric.WithDescription("Tokens reported by usageMetadata"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}
	llmDuration, err := meter.Float64Histogram("llm.duration",
		metric.WithDescription("Generation round-trip time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	responses, err := meter.Int64Counter("wanderbot.responses",
		metric.WithDescription("Completed respond calls"))
	if err != nil {
		return nil, err
	}
	toolCalls, err := meter.Int64Counter("wanderbot.tool.calls",
		metric.WithDescription("Tool invocations by tool name"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:       tp.Tracer(ScopeName),
		LLMRequests:  llmRequests,
		LLMFallbacks: llmFallbacks,
		TokenUsage:   tokenUsage,
		LLMDuration:  llmDuration,
		Responses:    responses,
		ToolCalls:    toolCalls,
	}, nil
}

// Default returns instruments bound to the global providers, degrading to
// no-op meters if instrument creation fails.
func Default() *Instruments {
	inst, err := NewInstruments(nil, nil)
	if err == nil {
		return inst
	}
	logger.WarnCF("telemetry", "Falling back to no-op metrics",
		map[string]interface{}{"error": err.Error()})
	inst, _ = NewInstruments(otel.GetTracerProvider(), noop.NewMeterProvider())
	return inst
}
