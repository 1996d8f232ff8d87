package world

import (
	"sort"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// RenderHandle — непрозрачный токен, который возвращает получатель уведомлений
// при загрузке чанка. Ядро только хранит его и возвращает при выгрузке.
type RenderHandle interface{}

// Batches группирует позиции блоков по типу
type Batches map[block.BlockID][]vec.Vec3

// Add добавляет позицию в группу типа
func (b Batches) Add(id block.BlockID, pos vec.Vec3) {
	b[id] = append(b[id], pos)
}

// Count возвращает общее число позиций
func (b Batches) Count() int {
	n := 0
	for _, positions := range b {
		n += len(positions)
	}
	return n
}

// Types возвращает типы блоков в порядке возрастания ID
func (b Batches) Types() []block.BlockID {
	ids := make([]block.BlockID, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Notifier получает уведомления об изменениях мира.
// Все методы вызываются из потока тика.
type Notifier interface {
	ChunkLoaded(chunk vec.Vec2, batches Batches) RenderHandle
	ChunkUnloaded(chunk vec.Vec2, handle RenderHandle)
	BlockAdded(pos vec.Vec3, id block.BlockID)
	BlockRemoved(pos vec.Vec3, id block.BlockID)
	StructureBuilt(chunk vec.Vec2, batches Batches)
}

// NopNotifier игнорирует все уведомления
type NopNotifier struct{}

func (NopNotifier) ChunkLoaded(vec.Vec2, Batches) RenderHandle { return nil }
func (NopNotifier) ChunkUnloaded(vec.Vec2, RenderHandle)       {}
func (NopNotifier) BlockAdded(vec.Vec3, block.BlockID)         {}
func (NopNotifier) BlockRemoved(vec.Vec3, block.BlockID)       {}
func (NopNotifier) StructureBuilt(vec.Vec2, Batches)           {}

// Notifiers рассылает уведомления нескольким получателям.
// Каждый получатель видит при выгрузке только свой собственный handle.
type Notifiers []Notifier

type fanoutHandle []RenderHandle

func (n Notifiers) ChunkLoaded(chunk vec.Vec2, batches Batches) RenderHandle {
	handles := make(fanoutHandle, len(n))
	for i, target := range n {
		handles[i] = target.ChunkLoaded(chunk, batches)
	}
	return handles
}

func (n Notifiers) ChunkUnloaded(chunk vec.Vec2, handle RenderHandle) {
	handles, _ := handle.(fanoutHandle)
	for i, target := range n {
		var h RenderHandle
		if i < len(handles) {
			h = handles[i]
		}
		target.ChunkUnloaded(chunk, h)
	}
}

func (n Notifiers) BlockAdded(pos vec.Vec3, id block.BlockID) {
	for _, target := range n {
		target.BlockAdded(pos, id)
	}
}

func (n Notifiers) BlockRemoved(pos vec.Vec3, id block.BlockID) {
	for _, target := range n {
		target.BlockRemoved(pos, id)
	}
}

func (n Notifiers) StructureBuilt(chunk vec.Vec2, batches Batches) {
	for _, target := range n {
		target.StructureBuilt(chunk, batches)
	}
}
