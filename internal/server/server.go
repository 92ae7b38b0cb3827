package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/vatledger/internal/config"
	"github.com/smallbiznis/vatledger/internal/observability"
	obslogger "github.com/smallbiznis/vatledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/vatledger/internal/observability/metrics"
	"github.com/smallbiznis/vatledger/internal/observability/tracing"
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"github.com/smallbiznis/vatledger/internal/vat/export"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	ObsCfg         observability.Config
	Log            *zap.Logger
	LogCfg         obslogger.MiddlewareConfig `optional:"true"`
	HTTPMetrics    *obsmetrics.HTTPMetrics    `optional:"true"`
	Gatherer       prometheus.Gatherer        `optional:"true"`
	TracerProvider trace.TracerProvider       `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if p.ObsCfg.Debug() {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	logCfg := p.LogCfg
	logCfg.Debug = logCfg.Debug || p.ObsCfg.Debug()
	logCfg.ErrorClassifier = classifyErrorForLog
	r.Use(obslogger.GinMiddleware(p.Log, logCfg))
	r.Use(tracing.GinMiddleware(p.TracerProvider))
	r.Use(obsmetrics.GinMiddleware(p.HTTPMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	vatSvc   vatdomain.Service
	exporter *export.Exporter
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	VatSvc   vatdomain.Service
	Exporter *export.Exporter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		vatSvc:   p.VatSvc,
		exporter: p.Exporter,
	}

	svc.registerTaxRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerTaxRoutes() {
	tax := s.engine.Group("/api/tax")

	// -------- Records --------
	tax.POST("/orders/:id/calculate", s.CalculateOrderTax)
	tax.POST("/recalculate", s.RecalculateTaxRecords)
	tax.GET("/records", s.ListTaxRecords)

	// -------- Reports --------
	tax.GET("/summary", s.GetTaxSummary)
	tax.GET("/breakdown", s.GetVatBreakdown)

	// -------- Returns --------
	tax.GET("/returns", s.ListTaxReturns)
	tax.POST("/returns", s.CreateTaxReturn)
	tax.GET("/returns/:id", s.GetTaxReturn)
	tax.PATCH("/returns/:id/status", s.UpdateTaxReturnStatus)
	tax.GET("/returns/:id/export", s.ExportTaxReturn)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
