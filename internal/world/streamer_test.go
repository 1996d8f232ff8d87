package world

import (
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkStreamer_RadiusAtOrigin(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 0, 4)

	stats := w.streamer.Update(mgl64.Vec3{0.5, 5, 0.5}, 2)

	assert.Equal(t, 13, stats.Loaded, "Радиус 2 вокруг начала координат покрывает 13 чанков")
	assert.Equal(t, 13, w.streamer.LoadedCount())
	assert.True(t, w.streamer.IsLoaded(2, 0))
	assert.False(t, w.streamer.IsLoaded(2, 1), "Чанк на расстоянии sqrt(5) > 2 не загружается")
	assert.False(t, w.streamer.IsLoaded(7, 0))
	assert.Equal(t, ChunkUnloaded, w.streamer.State(7, 0))
}

func TestChunkStreamer_EnsureLoadedIdempotent(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 0, 4)

	assert.True(t, w.streamer.EnsureLoaded(1, 1))
	assert.False(t, w.streamer.EnsureLoaded(1, 1), "Повторная загрузка — no-op")

	require.Len(t, w.notifier.loaded, 1, "Уведомление о загрузке ровно одно")
	batches := w.notifier.batches[vec.Vec2{X: 1, Y: 1}]
	assert.Equal(t, 16*3, batches.Count(), "16 колонн по 3 блока")
	assert.Len(t, batches[block.BedrockBlockID], 16)
	assert.Equal(t, 16*3, w.state.Len(), "Блоки не дублируются")
}

func TestChunkStreamer_OutOfBounds(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 6, 6)

	assert.False(t, w.streamer.EnsureLoaded(1, 0), "Чанк за границей мира не загружается")
	assert.True(t, w.streamer.EnsureLoaded(-1, 0))
	assert.Equal(t, 0, w.state.TopHeight(6, 0))
}

func TestChunkStreamer_EvictionKeepsBlocks(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 0, 4)
	w.streamer.Update(mgl64.Vec3{0, 0, 0}, 1)
	require.True(t, w.streamer.IsLoaded(0, 0))

	// Уходим далеко: чанк (0,0) выгружается
	stats := w.streamer.Update(mgl64.Vec3{400, 0, 0}, 1)
	assert.Equal(t, 5, stats.Evicted)
	assert.False(t, w.streamer.IsLoaded(0, 0))
	origin := vec.Vec2{X: 0, Y: 0}
	assert.Equal(t, w.notifier.handles[origin], w.notifier.unloaded[origin], "Выгрузка возвращает handle загрузки")
	assert.Equal(t, 3, w.state.TopHeight(0, 0), "Данные блоков остаются после выгрузки")
}

func TestChunkStreamer_Hysteresis(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 0, 4)
	w.streamer.Update(mgl64.Vec3{0, 0, 0}, 2)
	require.True(t, w.streamer.IsLoaded(2, 0))

	// Сдвиг на один чанк: (-2,0) теперь на расстоянии 3 = radius+1 и остаётся
	stats := w.streamer.Update(mgl64.Vec3{4, 0, 0}, 2)
	assert.Equal(t, 0, stats.Evicted)
	assert.True(t, w.streamer.IsLoaded(-2, 0))

	w.streamer.Update(mgl64.Vec3{8, 0, 0}, 2)
	assert.False(t, w.streamer.IsLoaded(-2, 0), "На расстоянии radius+2 чанк выгружается")
}

func TestChunkStreamer_GenerationDoesNotOverwrite(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 0, 4)
	structure := vec.Vec3{X: 1, Y: 1, Z: 1}
	w.state.Set(structure, block.TrunkBlockID)

	w.streamer.EnsureLoaded(0, 0)

	id, _ := w.state.Get(structure)
	assert.Equal(t, block.TrunkBlockID, id, "Генерация пишет только в пустые ячейки")

	// Правка после выгрузки переживает повторный вход
	w.state.Remove(vec.Vec3{X: 2, Y: 2, Z: 2})
	w.streamer.Unload(0, 0)
	w.streamer.EnsureLoaded(0, 0)
	assert.False(t, w.state.Occupied(vec.Vec3{X: 2, Y: 2, Z: 2}), "Сгенерированные колонны не генерируются повторно")
}

func TestChunkStreamer_LoadedChunksSorted(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 0, 4)
	w.streamer.EnsureLoaded(1, 0)
	w.streamer.EnsureLoaded(-1, 2)
	w.streamer.EnsureLoaded(-1, -3)

	assert.Equal(t, []vec.Vec2{{X: -1, Y: -3}, {X: -1, Y: 2}, {X: 1, Y: 0}}, w.streamer.LoadedChunks())
	assert.True(t, w.streamer.IsLoadedAt(-0.5, 9.9))
}

func TestMaterializeTask(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 6, 6)

	var reports []int
	task, err := w.streamer.NewMaterializeTask(3, ProgressFunc(func(done, total int, message string) {
		assert.Equal(t, 4, total)
		assert.Contains(t, message, "Загрузка карты")
		reports = append(reports, done)
	}))
	require.NoError(t, err)

	assert.False(t, task.Step(), "После первой порции загружено 3 из 4")
	assert.Equal(t, 3, w.streamer.LoadedCount())
	assert.True(t, task.Step())
	assert.True(t, task.Done())
	assert.Equal(t, []int{1, 2, 3, 4}, reports)

	done, total := task.Progress()
	assert.Equal(t, total, done)
	assert.Equal(t, 12*12*3, w.state.Len())
}

func TestMaterializeTask_RequiresBounds(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 0, 6)
	_, err := w.streamer.NewMaterializeTask(8, nil)
	assert.ErrorIs(t, err, ErrUnboundedWorld)
}
