package telemetry

import (
	"context"
	"testing"

	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.TelemetryConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "pricing-test",
	}

	tp, err := NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.Equal(t, cfg, tp.GetConfig())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio    float64
		contains string
	}{
		{1.0, "AlwaysOnSampler"},
		{1.5, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			desc := Sampler(tt.ratio).Description()
			assert.Contains(t, desc, "ParentBased")
			assert.Contains(t, desc, "root:"+tt.contains)
		})
	}
}
