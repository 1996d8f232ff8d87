package world

import (
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(w *testWorld, actor *Box) *BlockEditor {
	var boxFn ActorBoxFunc
	if actor != nil {
		boxFn = func() (Box, bool) { return *actor, true }
	}
	return NewBlockEditor(w.state, w.streamer, w.notifier, w.bounds, boxFn)
}

func TestBlockEditor_Add(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 30, 6)
	e := newTestEditor(w, nil)
	pos := vec.Vec3{X: 4, Y: 3, Z: 4}

	res := e.Add(pos, block.TorchBlockID)
	require.True(t, res.OK)
	assert.Equal(t, RejectNone, res.Reason)
	assert.Equal(t, 4, w.state.TopHeight(4, 4))
	assert.Equal(t, []vec.Vec3{pos}, w.notifier.added)
	assert.True(t, w.streamer.IsLoaded(0, 0), "Правка догружает чанк")

	res = e.Add(pos, block.StoneBlockID)
	assert.Equal(t, EditResult{Reason: RejectOccupied}, res)
	id, _ := w.state.Get(pos)
	assert.Equal(t, block.TorchBlockID, id, "Отказ не меняет мир")
	assert.Len(t, w.notifier.added, 1, "Отказ не рассылает уведомления")
}

func TestBlockEditor_AddRejections(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 30, 6)
	actor := Box{Min: mgl64.Vec3{-0.3, 3, -0.3}, Max: mgl64.Vec3{0.3, 4.6, 0.3}}
	e := newTestEditor(w, &actor)

	cases := []struct {
		name   string
		pos    vec.Vec3
		id     block.BlockID
		reason Rejection
	}{
		{"воздух", vec.Vec3{X: 5, Y: 5, Z: 5}, block.AirBlockID, RejectInvalidType},
		{"неизвестный тип", vec.Vec3{X: 5, Y: 5, Z: 5}, block.BlockID(999), RejectInvalidType},
		{"ниже нуля", vec.Vec3{X: 0, Y: -1, Z: 0}, block.StoneBlockID, RejectOutOfBounds},
		{"за краем", vec.Vec3{X: 30, Y: 5, Z: 0}, block.StoneBlockID, RejectOutOfBounds},
		{"в актёре", vec.Vec3{X: 0, Y: 4, Z: 0}, block.StoneBlockID, RejectActorCollision},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Add(tc.pos, tc.id)
			assert.False(t, res.OK)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}

	assert.True(t, e.Add(vec.Vec3{X: 1, Y: 3, Z: 0}, block.StoneBlockID).OK, "Соседний с актёром блок ставится")
	assert.True(t, e.Add(vec.Vec3{X: 0, Y: 5, Z: 0}, block.StoneBlockID).OK, "Блок над головой не пересекает актёра")
}

func TestBlockEditor_RejectedAddKeepsChunkUnloaded(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 30, 6)
	actor := Box{Min: mgl64.Vec3{11.7, 3, 11.7}, Max: mgl64.Vec3{12.3, 4.6, 12.3}}
	e := newTestEditor(w, &actor)

	res := e.Add(vec.Vec3{X: 13, Y: 1, Z: 13}, block.StoneBlockID)
	assert.Equal(t, RejectOccupied, res.Reason, "Ландшафт незагруженного чанка считается занятым")
	res = e.Add(vec.Vec3{X: 12, Y: 3, Z: 12}, block.StoneBlockID)
	assert.Equal(t, RejectActorCollision, res.Reason)

	assert.False(t, w.streamer.IsLoaded(2, 2), "Отказ не загружает чанк")
	assert.Empty(t, w.notifier.loaded, "Отказ не рассылает ChunkLoaded")
	assert.Equal(t, 0, w.state.Len(), "Отказ не генерирует ландшафт")
	assert.False(t, w.state.IsGenerated(13, 13))

	require.True(t, e.Add(vec.Vec3{X: 13, Y: 3, Z: 13}, block.StoneBlockID).OK)
	assert.True(t, w.streamer.IsLoaded(2, 2))
	id, _ := w.state.Get(vec.Vec3{X: 13, Y: 3, Z: 13})
	assert.Equal(t, block.StoneBlockID, id, "Генерация не затирает правку")
}

func TestBlockEditor_Remove(t *testing.T) {
	w := newTestWorld(flatTerrain(3, 2), 30, 6)
	w.streamer.EnsureLoaded(0, 0)
	e := newTestEditor(w, nil)

	res := e.Remove(vec.Vec3{X: 1, Y: 2, Z: 1})
	require.True(t, res.OK)
	assert.Equal(t, 2, w.state.TopHeight(1, 1))
	assert.Equal(t, []vec.Vec3{{X: 1, Y: 2, Z: 1}}, w.notifier.removed)

	assert.Equal(t, RejectEmpty, e.Remove(vec.Vec3{X: 1, Y: 2, Z: 1}).Reason)
	assert.Equal(t, RejectIndestructible, e.Remove(vec.Vec3{X: 1, Y: 0, Z: 1}).Reason, "Коренная порода неразрушима")
	assert.True(t, w.state.Occupied(vec.Vec3{X: 1, Y: 0, Z: 1}))
}

func TestRejection_String(t *testing.T) {
	assert.Equal(t, "actor_collision", RejectActorCollision.String())
	text, err := RejectOccupied.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "occupied", string(text))
}
