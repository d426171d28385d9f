package observability

import (
	"net/http"

	"atsquick/internal/config"

	"go.opentelemetry.io/otel/attribute"
)

const defaultServiceName = "atsquick"

// GetObservabilityConfig creates observability config from provided config
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    defaultServiceName,
			ServiceVersion: version,
			Enabled:        true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
			Prometheus:     GetPrometheusConfig(cfg),
		}
	}

	obsConfig := cfg.Observability

	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	serviceName := obsConfig.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	sampleRate := obsConfig.SampleRate
	if obsConfig.Tracing.Enabled && obsConfig.Tracing.SampleRate > 0 {
		sampleRate = obsConfig.Tracing.SampleRate
	}

	return ObservabilityConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Enabled:        obsConfig.Enabled,
		ConsoleOutput:  obsConfig.ConsoleOutput || obsConfig.Console.Enabled,
		PrettyPrint:    obsConfig.Console.PrettyPrint,
		SampleRate:     sampleRate,
		Prometheus:     GetPrometheusConfig(cfg),
	}
}

// RouteMiddleware tags the request span with the route that served it
func RouteMiddleware(om *ObservabilityManager, route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if om == nil || !om.config.Enabled {
				next(w, r)
				return
			}

			ctx, span := om.Tracer(defaultServiceName+".http").Start(r.Context(), route)
			defer span.End()

			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.Int64("http.request_content_length", r.ContentLength),
			)

			next(w, r.WithContext(ctx))
		}
	}
}
