package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 6, cfg.World.ChunkSize)
	assert.Equal(t, 10, cfg.Terrain.SeaLevel)
	assert.Equal(t, 128, cfg.Streaming.BatchSize)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	yml := `
world:
  chunk_size: 8
terrain:
  seed: 99
  sea_level: 12
streaming:
  view_radius: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.World.ChunkSize)
	assert.Equal(t, int64(99), cfg.Terrain.Seed)
	assert.Equal(t, 12, cfg.Terrain.SeaLevel)
	assert.Equal(t, 3, cfg.Streaming.ViewRadius)
	// Остальное остаётся по умолчанию
	assert.Equal(t, 125, cfg.World.HalfExtent)
	assert.Equal(t, 25.0, cfg.Physics.Gravity)
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  tick_rate: 30\n"), 0o644))
	t.Setenv("VOXEL_CONFIG", path)
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Engine.TickRate)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("world:\n  chunk_size: 0\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestServerConfig_PortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("VOXEL_REST_PORT", "9090")
	assert.Equal(t, 9090, s.GetRESTPort())

	s.RESTPort = 7000
	assert.Equal(t, 7000, s.GetRESTPort())
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "server.yaml"))
	require.NoError(t, err, "пример конфигурации должен проходить проверку")
	assert.Equal(t, "assets/trees", cfg.Structures.TreeDir)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4318", cfg.Telemetry.Endpoint)
	assert.InDelta(t, 0.25, cfg.Telemetry.SampleRatio, 1e-9)
}

func TestValidate_SampleRatio(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.SampleRatio = 1.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid, "доля семплирования больше 1 недопустима")
}
