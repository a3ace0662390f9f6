package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	pricingapp "github.com/erp/pricing/internal/application/pricing"
	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/infrastructure/rulefile"
	"github.com/erp/pricing/internal/infrastructure/telemetry"
	"github.com/erp/pricing/internal/interfaces/http/handler"
	"github.com/erp/pricing/internal/interfaces/http/middleware"
	"github.com/erp/pricing/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// The log bridge needs a logger to report its own setup, so the final
	// logger is built once the provider exists
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log provider", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		level, _ := zapcore.ParseLevel(cfg.Log.Level)
		log, err = logger.New(logCfg, telemetry.NewZapOTELCore(logProvider, level))
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting pricing engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Rule snapshot used when a request carries no rules
	var (
		source        pricing.RuleSource
		snapshotRules func() int
	)
	if cfg.Pricing.RulesFile != "" {
		snapshot, err := rulefile.Load(cfg.Pricing.RulesFile, log)
		if err != nil {
			log.Fatal("Failed to load rule snapshot", zap.Error(err))
		}
		source = snapshot
		snapshotRules = snapshot.Len
	} else {
		log.Info("No rule snapshot configured, requests must carry their rules")
	}

	pricingMetrics, err := telemetry.NewPricingMetrics(meterProvider.Meter("pricing"), log)
	if err != nil {
		log.Fatal("Failed to initialize pricing metrics", zap.Error(err))
	}
	pricingService := pricingapp.NewService(cfg.Pricing, source, pricingMetrics)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = cfg.Telemetry.Enabled

	// Order matters: the request id feeds the logger and the span attributes
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.RequestTimeout),
		middleware.TracingWithConfig(tracingCfg),
		middleware.TracingAttributeInjector(),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Enabled:       cfg.Telemetry.Enabled,
		}, log),
	)

	router.Setup(engine, router.Handlers{
		Pricing: handler.NewPricingHandler(pricingService),
		System:  handler.NewSystemHandler(snapshotRules),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Flush telemetry after the last request has finished
	_ = meterProvider.Shutdown(shutdownCtx)
	_ = tracerProvider.Shutdown(shutdownCtx)
	_ = logProvider.Shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}
