package otel

import (
	"context"
	"errors"
	"os"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Every batcheval process, the CLI and the inference pods it starts, reports under this namespace
const ServiceNamespace = "batcheval"

// Span, metric and log exporters for one telemetry mode
type exporters struct {
	spans   trace.SpanExporter
	metrics metric.Exporter
	logs    log.Exporter
}

// Releases the exporters built before a later one failed
func (e exporters) shutdown(ctx context.Context) error {
	var errs error
	if e.spans != nil {
		errs = errors.Join(errs, e.spans.Shutdown(ctx))
	}
	if e.metrics != nil {
		errs = errors.Join(errs, e.metrics.Shutdown(ctx))
	}
	if e.logs != nil {
		errs = errors.Join(errs, e.logs.Shutdown(ctx))
	}
	return errs
}

// OTLP over gRPC, configured by the standard OTEL_EXPORTER_OTLP_* variables
func otlpExporters(ctx context.Context) (exporters, error) {
	var e exporters

	spans, err := otlptracegrpc.New(ctx)
	if err != nil {
		return e, err
	}
	e.spans = spans

	metrics, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return e, err
	}
	e.metrics = metrics

	logs, err := otlploggrpc.New(ctx)
	if err != nil {
		return e, err
	}
	e.logs = logs

	return e, nil
}

// stdout carries command results, so local telemetry is written to stderr
func stderrExporters() (exporters, error) {
	var e exporters

	spans, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	if err != nil {
		return e, err
	}
	e.spans = spans

	metrics, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr))
	if err != nil {
		return e, err
	}
	e.metrics = metrics

	logs, err := stdoutlog.New(stdoutlog.WithWriter(os.Stderr))
	if err != nil {
		return e, err
	}
	e.logs = logs

	return e, nil
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}

	return info.Main.Version
}

// OTEL_SERVICE_NAME and OTEL_RESOURCE_ATTRIBUTES win over serviceName, which is how inference pods
// report under their own name
func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.namespace", ServiceNamespace),
			attribute.String("service.version", buildVersion()),
		),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithFromEnv(),
	)
}

//nolint:ireturn // no control over otel's propagator interface return.
func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// Installs the global propagator and trace, meter and logger providers.
// If it does not return an error, make sure to call shutdown for proper cleanup.
//
// useOTLP selects OTLP gRPC export, otherwise everything is printed to stderr.
func SetupOTelSDK(
	ctx context.Context,
	serviceName string,
	useOTLP bool,
) (func(context.Context) error, error) {
	// the propagator is needed for PodEnv even when no exporter can be built
	otel.SetTextMapPropagator(newPropagator())

	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs error
		for _, fn := range shutdownFuncs {
			errs = errors.Join(errs, fn(ctx))
		}
		shutdownFuncs = nil
		return errs
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return shutdown, err
	}

	var e exporters
	if useOTLP {
		e, err = otlpExporters(ctx)
	} else {
		e, err = stderrExporters()
	}
	if err != nil {
		return shutdown, errors.Join(err, e.shutdown(ctx))
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.AlwaysSample())),
		trace.WithBatcher(e.spans),
	)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(e.metrics)),
	)
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	loggerProvider := log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(e.logs)),
	)
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	return shutdown, nil
}
