package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"
)

func TestNewPricingMetrics(t *testing.T) {
	t.Run("nil meter", func(t *testing.T) {
		_, err := NewPricingMetrics(nil, nil)
		require.Error(t, err)

		var metricsErr *MetricsError
		assert.True(t, errors.As(err, &metricsErr))
		assert.Equal(t, "NewPricingMetrics", metricsErr.Op)
	})

	t.Run("noop meter", func(t *testing.T) {
		pm, err := NewPricingMetrics(noop.NewMeterProvider().Meter("test"), zaptest.NewLogger(t))
		require.NoError(t, err)

		ctx := context.Background()
		assert.NotPanics(t, func() {
			pm.RecordOutcome(ctx, pricing.PricingOutcome{})
			pm.RecordBatch(ctx, 3, 1, time.Millisecond)
			pm.RecordValidation(ctx, "validate", true)
			pm.RecordComputationError(ctx, "price_from_margin")
		})
	})
}

func TestPricingMetrics_RecordOutcome(t *testing.T) {
	reader, provider := newTestMeter(t)
	pm, err := NewPricingMetrics(provider.Meter("test"), nil)
	require.NoError(t, err)

	ctx := context.Background()
	rule := pricing.MarkupRule{ID: "r1", Scope: pricing.BrandScope{BrandID: "acme"}}

	pm.RecordOutcome(ctx, pricing.PricingOutcome{
		AppliedRule:  &rule,
		B2BSource:    pricing.PriceSourceRule,
		RetailSource: pricing.PriceSourceManual,
		B2BClamp:     pricing.ClampMax,
		RetailClamp:  pricing.ClampNone,
	})
	pm.RecordOutcome(ctx, pricing.PricingOutcome{
		B2BSource:    pricing.PriceSourceNone,
		RetailSource: pricing.PriceSourceNone,
		B2BClamp:     pricing.ClampNone,
		RetailClamp:  pricing.ClampNone,
	})

	metrics := collect(t, reader)
	assert.Equal(t, int64(4), sumOf(t, metrics["pricing_channel_prices_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["pricing_clamps_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["pricing_unresolved_rule_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["pricing_rule_resolutions_total"]))
}

func TestPricingMetrics_RecordBatch(t *testing.T) {
	reader, provider := newTestMeter(t)
	pm, err := NewPricingMetrics(provider.Meter("test"), zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx := context.Background()
	pm.RecordBatch(ctx, 10, 2, 20*time.Millisecond)
	pm.RecordBatch(ctx, 5, 0, 5*time.Millisecond)
	pm.RecordValidation(ctx, "validate", false)
	pm.RecordComputationError(ctx, "price_from_margin")

	metrics := collect(t, reader)
	assert.Equal(t, int64(15), sumOf(t, metrics["pricing_batch_items_total"]))
	assert.Equal(t, int64(2), sumOf(t, metrics["pricing_batch_item_failures_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["pricing_validations_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["pricing_computation_errors_total"]))
	assert.Contains(t, metrics, "pricing_batch_duration_seconds")
	assert.Contains(t, metrics, "pricing_batch_size")
}
