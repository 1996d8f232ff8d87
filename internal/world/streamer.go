package world

import (
	"sort"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// ChunkState — состояние жизненного цикла чанка
type ChunkState uint8

const (
	ChunkUnloaded ChunkState = iota
	ChunkLoaded
)

func (s ChunkState) String() string {
	if s == ChunkLoaded {
		return "loaded"
	}
	return "unloaded"
}

// ChunkLoader — часть стримера, нужная размещению структур и редактору
type ChunkLoader interface {
	EnsureLoaded(chunkX, chunkZ int) bool
	Occupied(pos vec.Vec3) bool
	IsLoaded(chunkX, chunkZ int) bool
	ChunkSize() int
}

// UpdateStats итог одного вызова Update
type UpdateStats struct {
	Loaded  int
	Evicted int
}

type chunkEntry struct {
	handle RenderHandle
}

// ChunkStreamer поддерживает загруженными чанки рядом с наблюдателем.
// Чанки не владеют блоками: загрузка генерирует недостающие колонны в State,
// выгрузка только снимает отметку и отдаёт handle обратно получателю уведомлений.
type ChunkStreamer struct {
	world     *State
	generator ColumnGenerator
	notifier  Notifier
	bounds    Bounds
	chunkSize int

	loaded map[vec.Vec2]*chunkEntry
	logger *logging.Logger
}

// NewChunkStreamer создаёт стример. notifier может быть nil.
func NewChunkStreamer(world *State, generator ColumnGenerator, notifier Notifier, bounds Bounds, chunkSize int) *ChunkStreamer {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ChunkStreamer{
		world:     world,
		generator: generator,
		notifier:  notifier,
		bounds:    bounds,
		chunkSize: chunkSize,
		loaded:    make(map[vec.Vec2]*chunkEntry),
		logger:    logging.GetWorldLogger(),
	}
}

// ChunkSize возвращает размер стороны чанка в блоках
func (s *ChunkStreamer) ChunkSize() int {
	return s.chunkSize
}

// Bounds возвращает границы мира
func (s *ChunkStreamer) Bounds() Bounds {
	return s.bounds
}

// ChunkBounds возвращает включительный диапазон ключей чанков мира
func (s *ChunkStreamer) ChunkBounds() (min, max vec.Vec2) {
	return s.bounds.ChunkRange(s.chunkSize)
}

// State возвращает состояние чанка
func (s *ChunkStreamer) State(chunkX, chunkZ int) ChunkState {
	if s.IsLoaded(chunkX, chunkZ) {
		return ChunkLoaded
	}
	return ChunkUnloaded
}

// IsLoaded проверяет, загружен ли чанк
func (s *ChunkStreamer) IsLoaded(chunkX, chunkZ int) bool {
	_, ok := s.loaded[vec.Vec2{X: chunkX, Y: chunkZ}]
	return ok
}

// IsLoadedAt проверяет, загружен ли чанк, содержащий мировую точку
func (s *ChunkStreamer) IsLoadedAt(x, z float64) bool {
	key := ChunkAt(x, z, s.chunkSize)
	return s.IsLoaded(key.X, key.Y)
}

// LoadedCount возвращает число загруженных чанков
func (s *ChunkStreamer) LoadedCount() int {
	return len(s.loaded)
}

// LoadedChunks возвращает ключи загруженных чанков в отсортированном порядке
func (s *ChunkStreamer) LoadedChunks() []vec.Vec2 {
	keys := make([]vec.Vec2, 0, len(s.loaded))
	for key := range s.loaded {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// EnsureLoaded загружает чанк, если он в границах мира и ещё не загружен.
// Возвращает true, если чанк был загружен этим вызовом.
func (s *ChunkStreamer) EnsureLoaded(chunkX, chunkZ int) bool {
	key := vec.Vec2{X: chunkX, Y: chunkZ}
	if _, ok := s.loaded[key]; ok {
		return false
	}
	if !s.bounds.ContainsChunk(key, s.chunkSize) {
		return false
	}

	startX := chunkX * s.chunkSize
	startZ := chunkZ * s.chunkSize
	for x := startX; x < startX+s.chunkSize; x++ {
		for z := startZ; z < startZ+s.chunkSize; z++ {
			if s.bounds.ContainsColumn(x, z) {
				s.generateColumn(x, z)
			}
		}
	}

	batches := s.ChunkBatches(key)
	entry := &chunkEntry{}
	s.loaded[key] = entry
	entry.handle = s.notifier.ChunkLoaded(key, batches)

	logging.LogChunkLoaded(s.logger, chunkX, chunkZ, batches.Count())
	return true
}

// Occupied сообщает, будет ли ячейка занята после загрузки её чанка.
// Для ещё не сгенерированной колонны ландшафт вычисляется, но в мир не пишется.
func (s *ChunkStreamer) Occupied(pos vec.Vec3) bool {
	if s.world.Occupied(pos) {
		return true
	}
	if s.world.IsGenerated(pos.X, pos.Z) || !s.bounds.ContainsColumn(pos.X, pos.Z) {
		return false
	}
	for _, b := range s.generator.GenerateColumn(pos.X, pos.Z) {
		if b.Y == pos.Y {
			return true
		}
	}
	return false
}

// generateColumn пишет ландшафт только в пустые ячейки, чтобы не затереть
// структуры и правки игрока при повторном входе в чанк
func (s *ChunkStreamer) generateColumn(x, z int) {
	if s.world.IsGenerated(x, z) {
		return
	}
	for _, b := range s.generator.GenerateColumn(x, z) {
		pos := vec.Vec3{X: x, Y: b.Y, Z: z}
		if !s.world.Occupied(pos) {
			s.world.Set(pos, b.Type)
		}
	}
	s.world.MarkGenerated(x, z)
}

// ChunkBatches собирает все блоки чанка, сгруппированные по типу
func (s *ChunkStreamer) ChunkBatches(key vec.Vec2) Batches {
	batches := make(Batches)
	startX := key.X * s.chunkSize
	startZ := key.Y * s.chunkSize
	for x := startX; x < startX+s.chunkSize; x++ {
		for z := startZ; z < startZ+s.chunkSize; z++ {
			s.world.ColumnBlocks(x, z, func(y int, id block.BlockID) {
				batches.Add(id, vec.Vec3{X: x, Y: y, Z: z})
			})
		}
	}
	return batches
}

// Unload выгружает чанк, сохраняя данные блоков
func (s *ChunkStreamer) Unload(chunkX, chunkZ int) bool {
	key := vec.Vec2{X: chunkX, Y: chunkZ}
	entry, ok := s.loaded[key]
	if !ok {
		return false
	}
	delete(s.loaded, key)
	s.notifier.ChunkUnloaded(key, entry.handle)
	logging.LogChunkEvicted(s.logger, chunkX, chunkZ)
	return true
}

// Update загружает чанки в радиусе radius от чанка наблюдателя и выгружает
// загруженные чанки дальше radius+1 (гистерезис против дребезга на границе)
func (s *ChunkStreamer) Update(viewer mgl64.Vec3, radius int) UpdateStats {
	var stats UpdateStats
	center := ChunkAt(viewer.X(), viewer.Z(), s.chunkSize)

	r2 := radius * radius
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			if dx*dx+dz*dz > r2 {
				continue
			}
			if s.EnsureLoaded(center.X+dx, center.Y+dz) {
				stats.Loaded++
			}
		}
	}

	keep := (radius + 1) * (radius + 1)
	for _, key := range s.LoadedChunks() {
		dx := key.X - center.X
		dz := key.Y - center.Y
		if dx*dx+dz*dz > keep && s.Unload(key.X, key.Y) {
			stats.Evicted++
		}
	}

	if stats.Loaded > 0 || stats.Evicted > 0 {
		s.logger.Debug("🧱 Стриминг: +%d / -%d чанков, загружено %d", stats.Loaded, stats.Evicted, len(s.loaded))
	}
	return stats
}
