package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/vatledger/internal/observability/logger"
	"github.com/smallbiznis/vatledger/internal/observability/metrics"
	"github.com/smallbiznis/vatledger/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideMiddlewareConfig,
		metrics.NewRegistry,
		func(r *prometheus.Registry) prometheus.Registerer { return r },
		func(r *prometheus.Registry) prometheus.Gatherer { return r },
		provideMetricsConfig,
		metrics.New,
		metrics.NewHTTPMetrics,
		tracing.NewTracerProvider,
	),
)

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}
}

func provideMiddlewareConfig(cfg Config) logger.MiddlewareConfig {
	return logger.MiddlewareConfig{Debug: cfg.Debug()}
}
