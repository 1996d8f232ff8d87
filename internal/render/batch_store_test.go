package render

import (
	"testing"

	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchStore_SwapRemove(t *testing.T) {
	s := NewBatchStore(6)
	key := vec.Vec2{X: 0, Y: 0}
	a, b, c := vec.Vec3{X: 1}, vec.Vec3{X: 2}, vec.Vec3{X: 3}
	s.ChunkLoaded(key, world.Batches{block.StoneBlockID: {a, b, c}})

	s.BlockRemoved(a, block.StoneBlockID)
	assert.Equal(t, []vec.Vec3{c, b}, s.Positions(key, block.StoneBlockID), "Последний экземпляр занимает место удалённого")

	s.BlockRemoved(a, block.StoneBlockID)
	assert.Equal(t, 2, s.Count(key, block.StoneBlockID), "Повторное удаление ничего не меняет")

	s.BlockAdded(vec.Vec3{X: 4}, block.GlassBlockID)
	s.BlockAdded(vec.Vec3{X: 4}, block.GlassBlockID)
	assert.Equal(t, 1, s.Count(key, block.GlassBlockID), "Позиция не дублируется")
	assert.Equal(t, 3, s.Instances())
}

func TestBatchStore_IgnoresUnloadedChunks(t *testing.T) {
	s := NewBatchStore(6)
	s.BlockAdded(vec.Vec3{X: 100}, block.StoneBlockID)
	s.StructureBuilt(vec.Vec2{X: 16}, world.Batches{block.TrunkBlockID: {{X: 100}}})
	assert.Empty(t, s.Chunks())
}

func TestBatchStore_StaleHandle(t *testing.T) {
	s := NewBatchStore(6)
	key := vec.Vec2{X: 1, Y: 1}
	old := s.ChunkLoaded(key, world.Batches{})
	s.ChunkUnloaded(key, old)
	s.ChunkLoaded(key, world.Batches{block.DirtBlockID: {{X: 6, Z: 6}}})

	s.ChunkUnloaded(key, old)
	assert.Equal(t, 1, s.Count(key, block.DirtBlockID), "Устаревший handle не выгружает новую загрузку")
}

// Хранилище остаётся согласованным с миром при стриминге и правках
func TestBatchStore_MirrorsWorld(t *testing.T) {
	cfg := world.DefaultTerrainConfig()
	gen := world.NewTerrainGenerator(cfg, util.NewPerlinNoise(5))
	state := world.NewState()
	store := NewBatchStore(6)
	bounds := world.Bounds{HalfExtent: 24, MaxHeight: 64}
	streamer := world.NewChunkStreamer(state, gen, store, bounds, 6)
	editor := world.NewBlockEditor(state, streamer, store, bounds, nil)

	streamer.Update(mgl64.Vec3{0, 0, 0}, 2)
	require.Equal(t, 13, len(store.Chunks()))

	top := state.TopHeight(2, 2)
	require.True(t, editor.Add(vec.Vec3{X: 2, Y: top, Z: 2}, block.BrickBlockID).OK)
	require.True(t, editor.Remove(vec.Vec3{X: 2, Y: top - 1, Z: 2}).OK)

	for _, key := range store.Chunks() {
		expected := streamer.ChunkBatches(key)
		for _, id := range block.All() {
			assert.ElementsMatch(t, expected[id], store.Positions(key, id), "Чанк %v, тип %s", key, id)
		}
	}

	streamer.Update(mgl64.Vec3{200, 0, 200}, 2)
	assert.Empty(t, store.Chunks(), "Выгруженные чанки освобождаются")
}
