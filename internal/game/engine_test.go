package game

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/physics"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig — мир 24x24 с ровным ландшафтом высоты 12
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.HalfExtent = 12
	cfg.World.ChunkSize = 6
	cfg.World.MaxHeight = 64
	cfg.Terrain.Amplitude = 1
	cfg.Terrain.BaseHeight = 12
	cfg.Streaming.ViewRadius = 1
	cfg.Streaming.BatchSize = 5
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config) (*Engine, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	e, err := New(cfg, WithNoise(util.ConstantNoise(0)), WithRegisterer(reg))
	require.NoError(t, err)
	return e, reg
}

func TestNew_SpawnsActorOnSurface(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	assert.True(t, e.Streamer().IsLoaded(0, 0), "чанк точки появления должен быть загружен")
	assert.InDelta(t, 12.0, e.Actor().Position.Y(), 1e-9, "ступни актёра должны стоять на поверхности")
	assert.True(t, e.Streaming())
	assert.False(t, e.Materializing())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.TickRate = 0

	_, err := New(cfg, WithRegisterer(prometheus.NewRegistry()))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestTick_StreamsChunksAroundActor(t *testing.T) {
	e, reg := newTestEngine(t, testConfig())

	e.Tick(1.0 / 60)

	// круг радиуса 1 вокруг чанка (0,0): центр и четыре соседа
	assert.Equal(t, 5, e.Streamer().LoadedCount(), "должны загрузиться чанки в радиусе обзора")
	assert.Equal(t, uint64(1), e.TickCount())

	loaded, err := testutil.GatherAndCount(reg, "voxel_chunks_loaded")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.InDelta(t, 5.0, testutil.ToFloat64(e.metrics.chunksLoaded), 1e-9, "gauge чанков должен совпадать с загруженными")
}

func TestTick_ActorStaysGrounded(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	for i := 0; i < 30; i++ {
		e.Tick(1.0 / 60)
	}

	assert.True(t, e.Actor().Grounded, "актёр должен стоять на земле")
	assert.InDelta(t, 12.0, e.Actor().Position.Y(), 1e-6, "актёр не должен проваливаться")
}

func TestTick_MovesActorWithInput(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	e.Tick(1.0 / 60)

	e.SetInput(physics.Input{Direction: [2]float64{1, 0}})
	for i := 0; i < 30; i++ {
		e.Tick(1.0 / 60)
	}

	assert.Greater(t, e.Actor().Position.X(), 0.5, "актёр должен сместиться по X")
}

func TestSetStreaming_MaterializesWholeMap(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	var reports []int
	e.progress = world.ProgressFunc(func(done, total int, _ string) {
		reports = append(reports, done)
		assert.Equal(t, 16, total)
	})

	require.NoError(t, e.SetStreaming(false))
	assert.True(t, e.Materializing())

	// 16 чанков порциями по 5 — четыре тика
	for i := 0; i < 4; i++ {
		e.Tick(1.0 / 60)
	}

	assert.False(t, e.Materializing(), "загрузка должна завершиться")
	assert.Equal(t, 16, e.Streamer().LoadedCount(), "должны быть загружены все чанки мира")
	assert.Len(t, reports, 16, "прогресс сообщается по каждому чанку")

	// без стриминга чанки не выгружаются
	e.Tick(1.0 / 60)
	assert.Equal(t, 16, e.Streamer().LoadedCount())
}

func TestSetStreaming_ReenableWaitsForMaterialize(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	require.NoError(t, e.SetStreaming(false))
	e.Tick(1.0 / 60)
	require.NoError(t, e.SetStreaming(true))

	assert.True(t, e.Materializing(), "полная загрузка не прерывается")
	for e.Materializing() {
		e.Tick(1.0 / 60)
	}
	assert.Equal(t, 16, e.Streamer().LoadedCount())

	// после загрузки стриминг снова выгружает чанки дальше r+1
	e.Tick(1.0 / 60)
	assert.Equal(t, 11, e.Streamer().LoadedCount(), "должны остаться чанки с dx²+dz² <= 4")
	assert.False(t, e.Streamer().IsLoaded(-2, -2))
}

func TestAddBlock_RecordsMetrics(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	e.Tick(1.0 / 60)

	// блок в ногах актёра
	res := e.AddBlock(vec.Vec3{X: 0, Y: 12, Z: 0}, block.StoneBlockID)
	assert.False(t, res.OK)
	assert.Equal(t, world.RejectActorCollision, res.Reason)

	res = e.AddBlock(vec.Vec3{X: 3, Y: 12, Z: 3}, block.StoneBlockID)
	assert.True(t, res.OK, "свободная позиция должна приниматься")

	res = e.RemoveBlock(vec.Vec3{X: 3, Y: 0, Z: 3})
	assert.Equal(t, world.RejectIndestructible, res.Reason, "бедрок не удаляется")

	assert.InDelta(t, 1.0, testutil.ToFloat64(e.metrics.blockEdits.WithLabelValues("add", "ok")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(e.metrics.blockEdits.WithLabelValues("add", "actor_collision")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(e.metrics.blockEdits.WithLabelValues("remove", "indestructible")), 1e-9)
}

func TestPopulateStructures_PlacesTrees(t *testing.T) {
	cfg := testConfig()
	cfg.Structures.TreeCount = 3
	e, _ := newTestEngine(t, cfg)

	e.Placer().SetSampler(world.KindTree, func(attempt, _, _ int) (int, int) {
		return attempt*3 - 6, 0
	})
	sapling := &world.Structure{Name: "sapling", Kind: world.KindTree, Voxels: []world.Voxel{
		{Y: 0, Type: block.TrunkBlockID},
		{Y: 1, Type: block.TrunkBlockID},
		{Y: 2, Type: block.LeavesBlockID},
	}}

	_, planted, err := e.PopulateStructures(context.Background(), nil, world.StaticSource{sapling})
	require.NoError(t, err)

	assert.Equal(t, 3, planted.Placed)
	assert.False(t, planted.Short)
	for _, x := range []int{-3, 0, 3} {
		id, ok := e.State().Get(vec.Vec3{X: x, Y: 12, Z: 0})
		assert.True(t, ok)
		assert.Equal(t, block.TrunkBlockID, id, "ствол должен стоять на поверхности в x=%d", x)
	}
	assert.InDelta(t, 3.0, testutil.ToFloat64(e.metrics.structuresPlaced.WithLabelValues("tree")), 1e-9)
}

func TestPopulateStructures_EmptySource(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	_, _, err := e.PopulateStructures(context.Background(), world.StaticSource{}, nil)
	assert.ErrorIs(t, err, world.ErrNoStructures)
}

func TestSubmit_RunsOnTickLoop(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	var res world.EditResult
	err := e.Submit(context.Background(), func(e *Engine) {
		res = e.AddBlock(vec.Vec3{X: 4, Y: 12, Z: 4}, block.BrickBlockID)
	})
	require.NoError(t, err)
	assert.True(t, res.OK, "правка должна выполниться в потоке тика")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("игровой цикл не остановился")
	}

	err = e.Submit(context.Background(), func(*Engine) {})
	assert.ErrorIs(t, err, ErrStopped, "после остановки команды не принимаются")
}

func TestSubmit_RespectsContext(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	// цикл не запущен: команда встаёт в очередь, но не выполняется
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.Submit(ctx, func(*Engine) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
