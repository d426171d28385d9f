package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"atsquick/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const defaultCollectionInterval = 15 * time.Second

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// pipeline is the part of the full config that shapes the providers.
// A nil full config turns tracing and metrics on with no remote exporter.
type pipeline struct {
	tracing  bool
	metrics  bool
	otlp     *config.OTLPConfig
	interval time.Duration
	instance string
}

func pipelineFor(obs ObservabilityConfig, full *config.Config) pipeline {
	p := pipeline{
		tracing:  true,
		metrics:  true,
		interval: defaultCollectionInterval,
		instance: obs.ServiceName + "-1",
	}
	if full == nil {
		return p
	}

	o := full.Observability
	p.tracing = o.Tracing.Enabled
	p.metrics = o.Metrics.Enabled
	if o.OTLP.Enabled {
		p.otlp = &o.OTLP
	}
	if o.Metrics.CollectionInterval > 0 {
		p.interval = o.Metrics.CollectionInterval
	}
	if o.ServiceInstance != "" {
		p.instance = o.ServiceInstance
	}
	return p
}

// ObservabilityManager owns the tracer and meter providers of the HTTP server
type ObservabilityManager struct {
	config         ObservabilityConfig
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	manualReader   *sdkmetric.ManualReader
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager builds the providers described by obsConfig and the
// observability section of fullConfig. A disabled config yields an inert manager.
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	om := &ObservabilityManager{config: obsConfig}
	if !obsConfig.Enabled {
		return om, nil
	}

	p := pipelineFor(obsConfig, fullConfig)
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(obsConfig.ServiceName),
		semconv.ServiceVersion(obsConfig.ServiceVersion),
		attribute.String("service.instance.id", p.instance),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if p.tracing {
		if err := om.startTracing(res, p); err != nil {
			_ = om.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if p.metrics {
		if err := om.startMetrics(res, p, switchesFor(fullConfig)); err != nil {
			_ = om.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return om, nil
}

func (om *ObservabilityManager) startTracing(res *resource.Resource, p pipeline) error {
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(om.config.SampleRate)),
	}

	switch {
	case om.config.ConsoleOutput:
		var stdoutOpts []stdouttrace.Option
		if om.config.PrettyPrint {
			stdoutOpts = append(stdoutOpts, stdouttrace.WithPrettyPrint())
		}
		exporter, err := stdouttrace.New(stdoutOpts...)
		if err != nil {
			return fmt.Errorf("failed to create console trace exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exporter))

	case p.otlp != nil:
		exporter, err := otlptracehttp.New(context.Background(), otlpTraceOptions(*p.otlp)...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exporter))
	}
	// Without an exporter spans still carry IDs for request correlation

	tp := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

func (om *ObservabilityManager) startMetrics(res *resource.Resource, p pipeline, on metricSwitches) error {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	periodic := func(exporter sdkmetric.Exporter) {
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(p.interval))))
	}
	exporting := false

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		periodic(exporter)
		exporting = true
	}

	if p.otlp != nil {
		exporter, err := otlpmetrichttp.New(context.Background(), otlpMetricOptions(*p.otlp)...)
		if err != nil {
			return fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		periodic(exporter)
		exporting = true
	}

	if om.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return err
		}
		opts = append(opts, sdkmetric.WithReader(reader))
		shutdown, err := StartPrometheusServer(mux, om.config.Prometheus.Port)
		if err != nil {
			return fmt.Errorf("failed to start Prometheus server: %w", err)
		}
		om.shutdownFuncs = append(om.shutdownFuncs, shutdown)
		exporting = true
	}

	// Keep metrics collectable in-process when nothing exports them
	if !exporting {
		om.manualReader = sdkmetric.NewManualReader()
		opts = append(opts, sdkmetric.WithReader(om.manualReader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	metrics, err := newMetrics(mp.Meter(om.config.ServiceName), on)
	if err != nil {
		return err
	}
	om.metrics = metrics
	return nil
}

func otlpTraceOptions(c config.OTLPConfig) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(c.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(c.Headers))
	}
	return opts
}

func otlpMetricOptions(c config.OTLPConfig) []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(c.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(c.Headers))
	}
	return opts
}

// GetMetrics returns the metrics instance. It is never nil.
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware wraps a handler with otelhttp server instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if om == nil || !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	var opts []otelhttp.Option
	if om.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(om.tracerProvider))
	}
	if om.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(om.meterProvider))
	}
	return otelhttp.NewMiddleware(om.config.ServiceName, opts...)
}

// Tracer returns a tracer from the manager's provider, or a no-op tracer
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if om == nil || om.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown flushes and stops every provider and exporter, continuing past failures
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	om.shutdownFuncs = nil
	return errors.Join(errs...)
}
