package observability

import (
	"context"
	"testing"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTelemetry_Disabled(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(context.Background()), "no-op shutdown не должен падать")
}

func TestInitTelemetry_Enabled(t *testing.T) {
	// экспортер подключается лениво, поэтому коллектор для инициализации не нужен
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		ServiceName: "voxel-test",
		Endpoint:    "127.0.0.1:4318",
		Insecure:    true,
		SampleRatio: 0.5,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestSampler_Ratio(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestExporterOptions(t *testing.T) {
	assert.Empty(t, exporterOptions(config.TelemetryConfig{}), "без endpoint берём настройки из окружения")
	assert.Len(t, exporterOptions(config.TelemetryConfig{Endpoint: "otel:4318", Insecure: true}), 2)
	var _ trace.Sampler = sampler(0)
}
