package telemetry

import (
	"context"
	"time"

	"github.com/erp/pricing/internal/domain/pricing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PricingMetrics records what the pricing engine computes: how channel prices were
// sourced, how often bounds clamped them, batch sizes and validation results.
type PricingMetrics struct {
	logger *zap.Logger

	channelPricesTotal *Counter
	clampsTotal        *Counter
	resolvedTotal      *Counter
	unresolvedTotal    *Counter
	batchItemsTotal    *Counter
	batchFailuresTotal *Counter
	computeErrorsTotal *Counter
	validationsTotal   *Counter
	batchDuration      *Histogram
	batchSize          *Histogram
}

// NewPricingMetrics registers the pricing instruments on meter.
func NewPricingMetrics(meter metric.Meter, logger *zap.Logger) (*PricingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PricingMetrics{logger: logger}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&pm.channelPricesTotal, "pricing_channel_prices_total", "Channel prices computed, by channel and price source", "{prices}"},
		{&pm.clampsTotal, "pricing_clamps_total", "Rule-derived prices changed by a min or max bound", "{prices}"},
		{&pm.resolvedTotal, "pricing_rule_resolutions_total", "Items priced with a resolved rule, by scope kind", "{items}"},
		{&pm.unresolvedTotal, "pricing_unresolved_rule_total", "Items priced without any matching rule", "{items}"},
		{&pm.batchItemsTotal, "pricing_batch_items_total", "Products submitted in batches", "{items}"},
		{&pm.batchFailuresTotal, "pricing_batch_item_failures_total", "Batch items that could not be priced", "{items}"},
		{&pm.computeErrorsTotal, "pricing_computation_errors_total", "Formulas rejected as undefined for their input", "{errors}"},
		{&pm.validationsTotal, "pricing_validations_total", "Constraint validation reports produced", "{reports}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	pm.batchDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "pricing_batch_duration_seconds",
		Description: "Time to price a whole batch",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	pm.batchSize, err = NewHistogram(meter, HistogramOpts{
		Name:        "pricing_batch_size",
		Description: "Products per batch",
		Unit:        "{items}",
		Boundaries:  BatchSizeBuckets,
	})
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordOutcome counts both channels of a computed outcome.
func (pm *PricingMetrics) RecordOutcome(ctx context.Context, outcome pricing.PricingOutcome) {
	pm.recordChannel(ctx, pricing.ChannelB2B, outcome.B2BSource, outcome.B2BClamp)
	pm.recordChannel(ctx, pricing.ChannelRetail, outcome.RetailSource, outcome.RetailClamp)

	switch rule := outcome.AppliedRule; {
	case rule == nil:
		pm.unresolvedTotal.Inc(ctx)
	case rule.Scope != nil:
		pm.resolvedTotal.Inc(ctx, AttrScopeKind.String(rule.Scope.Kind().String()))
	}
}

func (pm *PricingMetrics) recordChannel(ctx context.Context, channel pricing.Channel, source pricing.PriceSource, clamp pricing.ClampResult) {
	pm.channelPricesTotal.Inc(ctx,
		AttrChannel.String(channel.String()),
		AttrSource.String(string(source)),
	)
	if clamp != pricing.ClampNone {
		pm.clampsTotal.Inc(ctx,
			AttrChannel.String(channel.String()),
			AttrClamp.String(string(clamp)),
		)
	}
}

// RecordBatch records size, duration and failures of a finished batch.
func (pm *PricingMetrics) RecordBatch(ctx context.Context, items, failures int, d time.Duration) {
	pm.batchItemsTotal.Add(ctx, int64(items))
	if failures > 0 {
		pm.batchFailuresTotal.Add(ctx, int64(failures))
	}
	pm.batchSize.Record(ctx, float64(items))
	pm.batchDuration.RecordDuration(ctx, d)

	pm.logger.Debug("Batch metrics recorded",
		zap.Int("items", items),
		zap.Int("failures", failures),
		zap.Duration("duration", d),
	)
}

// RecordComputationError counts a formula that was undefined for its input.
func (pm *PricingMetrics) RecordComputationError(ctx context.Context, operation string) {
	pm.computeErrorsTotal.Inc(ctx, AttrOperation.String(operation))
}

// RecordValidation counts a validation report for the given operation.
func (pm *PricingMetrics) RecordValidation(ctx context.Context, operation string, valid bool) {
	pm.validationsTotal.Inc(ctx,
		AttrOperation.String(operation),
		attribute.Bool(string(AttrValid), valid),
	)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPricingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
