package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported on every exported span, metric and log record
const ServiceVersion = "1.0.0"

// shutdownTimeout bounds the final flush of each signal pipeline
const shutdownTimeout = 10 * time.Second

// newResource describes the service for all three signal pipelines
func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdown flushes one signal pipeline. A nil stop means the signal was never started.
func shutdown(ctx context.Context, logger *zap.Logger, signal string, stop func(context.Context) error) error {
	if stop == nil {
		logger.Debug("Telemetry signal not started, nothing to flush", zap.String("signal", signal))
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := stop(shutdownCtx); err != nil {
		logger.Error("Telemetry flush failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}

	logger.Info("Telemetry flushed", zap.String("signal", signal))
	return nil
}
