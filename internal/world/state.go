package world

import (
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Column хранит индекс высоты колонны (x, z).
// TopHeight = 1 + максимальный занятый y, либо 0 для пустой колонны.
type Column struct {
	TopHeight int
	Generated bool // генератор ландшафта уже отработал для колонны
}

// State — разреженное хранилище блоков мира и индекс высот колонн.
// Единственный владелец данных о блоках; остальные компоненты держат ссылку.
// Не потокобезопасно: все изменения выполняются из одного тика.
type State struct {
	blocks  map[vec.Vec3]block.BlockID
	columns map[vec.Vec2]Column
}

// NewState создаёт пустой мир
func NewState() *State {
	return &State{
		blocks:  make(map[vec.Vec3]block.BlockID),
		columns: make(map[vec.Vec2]Column),
	}
}

// Get возвращает тип блока; false, если позиция пуста
func (s *State) Get(pos vec.Vec3) (block.BlockID, bool) {
	id, ok := s.blocks[pos]
	return id, ok
}

// BlockType синоним Get для поверхности запросов
func (s *State) BlockType(pos vec.Vec3) (block.BlockID, bool) {
	return s.Get(pos)
}

// Occupied проверяет, занята ли позиция
func (s *State) Occupied(pos vec.Vec3) bool {
	_, ok := s.blocks[pos]
	return ok
}

// Set вставляет или перезаписывает блок и поднимает TopHeight при необходимости.
// Установка воздуха эквивалентна Remove. Позиции с y < 0 игнорируются.
func (s *State) Set(pos vec.Vec3, id block.BlockID) {
	if id == block.AirBlockID {
		s.Remove(pos)
		return
	}
	if pos.Y < 0 {
		return
	}
	s.blocks[pos] = id

	key := pos.Column()
	col := s.columns[key]
	if pos.Y+1 > col.TopHeight {
		col.TopHeight = pos.Y + 1
		s.columns[key] = col
	}
}

// Remove удаляет блок. Если это была вершина колонны, высота пересчитывается
// сканированием вниз до первого занятого блока.
func (s *State) Remove(pos vec.Vec3) (block.BlockID, bool) {
	id, ok := s.blocks[pos]
	if !ok {
		return block.AirBlockID, false
	}
	delete(s.blocks, pos)

	key := pos.Column()
	col := s.columns[key]
	if pos.Y+1 == col.TopHeight {
		col.TopHeight = 0
		for y := pos.Y - 1; y >= 0; y-- {
			if _, occupied := s.blocks[vec.Vec3{X: pos.X, Y: y, Z: pos.Z}]; occupied {
				col.TopHeight = y + 1
				break
			}
		}
		s.columns[key] = col
	}
	return id, true
}

// TopHeight возвращает высоту колонны; 0 для неизвестных колонн
func (s *State) TopHeight(x, z int) int {
	return s.columns[vec.Vec2{X: x, Y: z}].TopHeight
}

// Column возвращает копию метаданных колонны
func (s *State) Column(x, z int) Column {
	return s.columns[vec.Vec2{X: x, Y: z}]
}

// IsGenerated проверяет, сгенерирован ли ландшафт колонны
func (s *State) IsGenerated(x, z int) bool {
	return s.columns[vec.Vec2{X: x, Y: z}].Generated
}

// MarkGenerated отмечает колонну как сгенерированную
func (s *State) MarkGenerated(x, z int) {
	key := vec.Vec2{X: x, Y: z}
	col := s.columns[key]
	col.Generated = true
	s.columns[key] = col
}

// ColumnBlocks обходит блоки колонны снизу вверх
func (s *State) ColumnBlocks(x, z int, fn func(y int, id block.BlockID)) {
	top := s.TopHeight(x, z)
	for y := 0; y < top; y++ {
		if id, ok := s.blocks[vec.Vec3{X: x, Y: y, Z: z}]; ok {
			fn(y, id)
		}
	}
}

// Len возвращает количество блоков в мире
func (s *State) Len() int {
	return len(s.blocks)
}
