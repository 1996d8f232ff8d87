// Package render хранит экземпляры блоков по чанкам и типам так, как их
// ожидает инстансинг: плотные массивы позиций с удалением за O(1).
package render

import (
	"sort"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Batch — плотный массив позиций одного типа блока
type Batch struct {
	positions []vec.Vec3
	index     map[vec.Vec3]int
}

func newBatch(capacity int) *Batch {
	return &Batch{
		positions: make([]vec.Vec3, 0, capacity),
		index:     make(map[vec.Vec3]int, capacity),
	}
}

func (b *Batch) add(pos vec.Vec3) {
	if _, ok := b.index[pos]; ok {
		return
	}
	b.index[pos] = len(b.positions)
	b.positions = append(b.positions, pos)
}

// remove переносит последний экземпляр на место удалённого
func (b *Batch) remove(pos vec.Vec3) bool {
	i, ok := b.index[pos]
	if !ok {
		return false
	}
	last := len(b.positions) - 1
	moved := b.positions[last]
	b.positions[i] = moved
	b.index[moved] = i
	b.positions = b.positions[:last]
	delete(b.index, pos)
	return true
}

// Len возвращает число экземпляров
func (b *Batch) Len() int {
	return len(b.positions)
}

type chunkBatches struct {
	handle  uint64
	batches map[block.BlockID]*Batch
}

// BatchStore реализует world.Notifier и держит экземпляры только загруженных чанков
type BatchStore struct {
	chunkSize  int
	chunks     map[vec.Vec2]*chunkBatches
	nextHandle uint64
}

var _ world.Notifier = (*BatchStore)(nil)

// NewBatchStore создаёт пустое хранилище
func NewBatchStore(chunkSize int) *BatchStore {
	return &BatchStore{chunkSize: chunkSize, chunks: make(map[vec.Vec2]*chunkBatches)}
}

func (s *BatchStore) ChunkLoaded(chunk vec.Vec2, batches world.Batches) world.RenderHandle {
	s.nextHandle++
	cb := &chunkBatches{handle: s.nextHandle, batches: make(map[block.BlockID]*Batch, len(batches))}
	for id, positions := range batches {
		b := newBatch(len(positions))
		for _, pos := range positions {
			b.add(pos)
		}
		cb.batches[id] = b
	}
	s.chunks[chunk] = cb
	return cb.handle
}

func (s *BatchStore) ChunkUnloaded(chunk vec.Vec2, handle world.RenderHandle) {
	cb, ok := s.chunks[chunk]
	if !ok {
		return
	}
	if h, ok := handle.(uint64); ok && h != cb.handle {
		return // устаревший handle от предыдущей загрузки
	}
	delete(s.chunks, chunk)
}

func (s *BatchStore) BlockAdded(pos vec.Vec3, id block.BlockID) {
	cb, ok := s.chunks[pos.Chunk(s.chunkSize)]
	if !ok {
		return
	}
	b, ok := cb.batches[id]
	if !ok {
		b = newBatch(1)
		cb.batches[id] = b
	}
	b.add(pos)
}

func (s *BatchStore) BlockRemoved(pos vec.Vec3, id block.BlockID) {
	cb, ok := s.chunks[pos.Chunk(s.chunkSize)]
	if !ok {
		return
	}
	if b, ok := cb.batches[id]; ok {
		b.remove(pos)
	}
}

func (s *BatchStore) StructureBuilt(chunk vec.Vec2, batches world.Batches) {
	for id, positions := range batches {
		for _, pos := range positions {
			s.BlockAdded(pos, id)
		}
	}
}

// Count возвращает число экземпляров типа в чанке
func (s *BatchStore) Count(chunk vec.Vec2, id block.BlockID) int {
	cb, ok := s.chunks[chunk]
	if !ok {
		return 0
	}
	if b, ok := cb.batches[id]; ok {
		return b.Len()
	}
	return 0
}

// Positions возвращает копию позиций типа в чанке в порядке хранения
func (s *BatchStore) Positions(chunk vec.Vec2, id block.BlockID) []vec.Vec3 {
	cb, ok := s.chunks[chunk]
	if !ok {
		return nil
	}
	b, ok := cb.batches[id]
	if !ok {
		return nil
	}
	out := make([]vec.Vec3, len(b.positions))
	copy(out, b.positions)
	return out
}

// Instances возвращает общее число экземпляров во всех чанках
func (s *BatchStore) Instances() int {
	n := 0
	for _, cb := range s.chunks {
		for _, b := range cb.batches {
			n += b.Len()
		}
	}
	return n
}

// Chunks возвращает ключи чанков с экземплярами
func (s *BatchStore) Chunks() []vec.Vec2 {
	keys := make([]vec.Vec2, 0, len(s.chunks))
	for key := range s.chunks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
