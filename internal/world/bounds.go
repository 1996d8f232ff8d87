package world

import (
	"math"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// Bounds задаёт границы мира.
// Колонна (x, z) лежит в мире, если -HalfExtent <= x < HalfExtent (для z аналогично).
// HalfExtent <= 0 означает мир без горизонтальных границ.
type Bounds struct {
	HalfExtent int
	MaxHeight  int
}

// Unbounded возвращает true, если горизонтальных границ нет
func (b Bounds) Unbounded() bool {
	return b.HalfExtent <= 0
}

// ContainsColumn проверяет колонну (x, z)
func (b Bounds) ContainsColumn(x, z int) bool {
	if b.Unbounded() {
		return true
	}
	return x >= -b.HalfExtent && x < b.HalfExtent && z >= -b.HalfExtent && z < b.HalfExtent
}

// ContainsBlock проверяет позицию блока, включая высоту
func (b Bounds) ContainsBlock(pos vec.Vec3) bool {
	if pos.Y < 0 || (b.MaxHeight > 0 && pos.Y >= b.MaxHeight) {
		return false
	}
	return b.ContainsColumn(pos.X, pos.Z)
}

// ChunkRange возвращает включительный диапазон ключей чанков, пересекающих мир
func (b Bounds) ChunkRange(chunkSize int) (min, max vec.Vec2) {
	lo := vec.FloorDiv(-b.HalfExtent, chunkSize)
	hi := vec.FloorDiv(b.HalfExtent-1, chunkSize)
	return vec.Vec2{X: lo, Y: lo}, vec.Vec2{X: hi, Y: hi}
}

// ContainsChunk проверяет, есть ли в чанке хотя бы одна колонна мира
func (b Bounds) ContainsChunk(key vec.Vec2, chunkSize int) bool {
	if b.Unbounded() {
		return true
	}
	min, max := b.ChunkRange(chunkSize)
	return key.X >= min.X && key.X <= max.X && key.Y >= min.Y && key.Y <= max.Y
}

// ContainsBox проверяет, что коробка не выходит за края крайних блоков и не уходит ниже нуля
func (b Bounds) ContainsBox(box Box) bool {
	if box.Min.Y() < 0 {
		return false
	}
	if b.Unbounded() {
		return true
	}
	lo := float64(-b.HalfExtent) - 0.5
	hi := float64(b.HalfExtent) - 0.5
	return box.Min.X() >= lo && box.Max.X() <= hi && box.Min.Z() >= lo && box.Max.Z() <= hi
}

// Box — выровненный по осям параллелепипед
type Box struct {
	Min, Max mgl64.Vec3
}

// BlockBox возвращает объём блока: [x-0.5, x+0.5] x [y, y+1] x [z-0.5, z+0.5]
func BlockBox(pos vec.Vec3) Box {
	x, y, z := float64(pos.X), float64(pos.Y), float64(pos.Z)
	return Box{
		Min: mgl64.Vec3{x - 0.5, y, z - 0.5},
		Max: mgl64.Vec3{x + 0.5, y + 1, z + 0.5},
	}
}

// Intersects проверяет строгое пересечение (касание гранями не считается)
func (b Box) Intersects(other Box) bool {
	return b.Min.X() < other.Max.X() && b.Max.X() > other.Min.X() &&
		b.Min.Y() < other.Max.Y() && b.Max.Y() > other.Min.Y() &&
		b.Min.Z() < other.Max.Z() && b.Max.Z() > other.Min.Z()
}

// ChunkAt возвращает ключ чанка для мировой точки
func ChunkAt(x, z float64, chunkSize int) vec.Vec2 {
	size := float64(chunkSize)
	return vec.Vec2{X: int(math.Floor(x / size)), Y: int(math.Floor(z / size))}
}
