package db

import (
	"context"
	"strings"

	"github.com/smallbiznis/vatledger/internal/config"
	obslogger "github.com/smallbiznis/vatledger/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Module = fx.Module("db",
	fx.Provide(
		ConfigFromApp,
		New,
	),
	fx.Invoke(instrument),
)

type instrumentParams struct {
	fx.In

	Conn           *gorm.DB
	Cfg            Config
	TracerProvider trace.TracerProvider `optional:"true"`
}

// instrument emits a span per query through the configured tracer provider.
func instrument(p instrumentParams) error {
	if p.TracerProvider == nil {
		return nil
	}
	return p.Conn.Use(otelgorm.NewPlugin(
		otelgorm.WithTracerProvider(p.TracerProvider),
		otelgorm.WithDBName(p.Cfg.Name),
		otelgorm.WithoutQueryVariables(),
	))
}

// New opens the gorm connection and closes it on shutdown.
func New(lc fx.Lifecycle, cfg Config, appCfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	logCfg := obslogger.DefaultGormLoggerConfig()
	if !appCfg.IsProduction() && strings.EqualFold(appCfg.LogLevel, "debug") {
		logCfg.Level = logger.Info
	}
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         obslogger.NewGormLogger(log, logCfg),
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("closing database connection")
				return sqlDB.Close()
			},
		})
	}

	log.Info("database connected", zap.String("type", cfg.Type))
	return conn, nil
}
