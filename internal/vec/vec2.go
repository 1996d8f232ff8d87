package vec

import "math"

// Vec2 представляет 2D координаты (колонна X/Z или ключ чанка).
// Вторая компонента хранит мировую ось Z.
type Vec2 struct {
	X, Y int
}

// ToChunkCoords преобразует координаты колонны в координаты чанка заданного размера
func (v Vec2) ToChunkCoords(chunkSize int) Vec2 {
	return Vec2{X: FloorDiv(v.X, chunkSize), Y: FloorDiv(v.Y, chunkSize)}
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk(chunkSize int) Vec2 {
	return Vec2{X: FloorMod(v.X, chunkSize), Y: FloorMod(v.Y, chunkSize)}
}

// DistanceTo вычисляет евклидово расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Less задаёт полный порядок: сначала X, затем Y
func (v Vec2) Less(other Vec2) bool {
	if v.X != other.X {
		return v.X < other.X
	}
	return v.Y < other.Y
}

// FloorDiv делит с округлением вниз (для отрицательных координат тоже)
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod возвращает неотрицательный остаток, согласованный с FloorDiv
func FloorMod(a, b int) int {
	return a - FloorDiv(a, b)*b
}
