package world

import (
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// recordingNotifier запоминает все уведомления мира
type recordingNotifier struct {
	loaded   []vec.Vec2
	batches  map[vec.Vec2]Batches
	handles  map[vec.Vec2]RenderHandle
	unloaded map[vec.Vec2]RenderHandle
	added    []vec.Vec3
	removed  []vec.Vec3
	built    map[vec.Vec2]Batches
	handle   int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		batches:  make(map[vec.Vec2]Batches),
		handles:  make(map[vec.Vec2]RenderHandle),
		unloaded: make(map[vec.Vec2]RenderHandle),
		built:    make(map[vec.Vec2]Batches),
	}
}

func (n *recordingNotifier) ChunkLoaded(chunk vec.Vec2, batches Batches) RenderHandle {
	n.loaded = append(n.loaded, chunk)
	n.batches[chunk] = batches
	n.handle++
	n.handles[chunk] = n.handle
	return n.handle
}

func (n *recordingNotifier) ChunkUnloaded(chunk vec.Vec2, handle RenderHandle) {
	n.unloaded[chunk] = handle
}

func (n *recordingNotifier) BlockAdded(pos vec.Vec3, _ block.BlockID) {
	n.added = append(n.added, pos)
}

func (n *recordingNotifier) BlockRemoved(pos vec.Vec3, _ block.BlockID) {
	n.removed = append(n.removed, pos)
}

func (n *recordingNotifier) StructureBuilt(chunk vec.Vec2, batches Batches) {
	existing, ok := n.built[chunk]
	if !ok {
		existing = make(Batches)
		n.built[chunk] = existing
	}
	for id, positions := range batches {
		existing[id] = append(existing[id], positions...)
	}
}

// flatTerrain строит генератор ровного ландшафта заданной высоты
func flatTerrain(height, sea int) *TerrainGenerator {
	cfg := DefaultTerrainConfig()
	cfg.Amplitude = 1
	cfg.BaseHeight = height
	cfg.SeaLevel = sea
	return NewTerrainGenerator(cfg, util.ConstantNoise(0))
}

type testWorld struct {
	state    *State
	streamer *ChunkStreamer
	notifier *recordingNotifier
	bounds   Bounds
}

func newTestWorld(gen ColumnGenerator, halfExtent, chunkSize int) *testWorld {
	state := NewState()
	notifier := newRecordingNotifier()
	bounds := Bounds{HalfExtent: halfExtent, MaxHeight: 64}
	return &testWorld{
		state:    state,
		streamer: NewChunkStreamer(state, gen, notifier, bounds, chunkSize),
		notifier: notifier,
		bounds:   bounds,
	}
}
