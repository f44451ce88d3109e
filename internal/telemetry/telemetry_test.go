package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/banking/risk-analytics/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), &config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_InvalidRatio(t *testing.T) {
	_, err := Init(context.Background(), &config.TelemetryConfig{Enabled: true, SamplingRatio: 1.5})
	assert.ErrorIs(t, err, ErrInvalidSamplingRatio)
}

func TestNewSampler(t *testing.T) {
	for _, ratio := range []float64{0, 0.1, 1} {
		s, err := newSampler(ratio)
		require.NoError(t, err)
		assert.Contains(t, s.Description(), "ParentBased")
	}
	_, err := newSampler(-0.1)
	assert.ErrorIs(t, err, ErrInvalidSamplingRatio)
}

func TestTraceIDs(t *testing.T) {
	traceID, spanID := TraceIDs(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	traceID, spanID = TraceIDs(ctx)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
}
