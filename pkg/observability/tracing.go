// Package observability provides OpenTelemetry tracing for Tidemark.
// Strategy scopes and bounded reads start spans here when tracing is
// enabled.
package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tidemark-io/tidemark/pkg/errors"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	SamplingRate   float64
}

var (
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer("tidemark")
	provider *sdktrace.TracerProvider
	initOnce sync.Once
)

// InitTracing sets up the tracer provider. Disabled configurations keep
// the no-op tracer, so StartSpan stays safe to call unconditionally.
func InitTracing(cfg TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}

	var initErr error
	initOnce.Do(func() {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			initErr = errors.Wrap(err, errors.ErrorTypeInternal, "failed to create trace exporter")
			return
		}

		res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		))
		if err != nil {
			initErr = errors.Wrap(err, errors.ErrorTypeInternal, "failed to build trace resource")
			return
		}

		sampling := cfg.SamplingRate
		if sampling <= 0 || sampling > 1 {
			sampling = 1
		}

		provider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampling)),
		)
		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		tracer = provider.Tracer("tidemark")
	})
	return initErr
}

// Tracer returns the global tracer
func Tracer() trace.Tracer {
	return tracer
}

// StartSpan starts a span on the global tracer
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}
