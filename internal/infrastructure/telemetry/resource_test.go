package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShutdown(t *testing.T) {
	ctx := context.Background()

	t.Run("signal never started", func(t *testing.T) {
		assert.NoError(t, shutdown(ctx, zap.NewNop(), "trace", nil))
	})

	t.Run("flush gets a deadline", func(t *testing.T) {
		err := shutdown(ctx, zap.NewNop(), "metric", func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("flush failure is wrapped", func(t *testing.T) {
		boom := errors.New("collector unreachable")
		err := shutdown(ctx, zap.NewNop(), "log", func(context.Context) error { return boom })
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "log provider")
	})
}

func TestNewResource(t *testing.T) {
	res, err := newResource("pricing-test")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "pricing-test", attrs["service.name"])
	assert.Equal(t, ServiceVersion, attrs["service.version"])
}
