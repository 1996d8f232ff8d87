package world

import "github.com/annel0/voxel-world/internal/vec"

// Rect — прямоугольник колонн (включительно с обеих сторон)
type Rect struct {
	MinX, MinZ int
	MaxX, MaxZ int
}

// Expand расширяет прямоугольник на n клеток во все стороны
func (r Rect) Expand(n int) Rect {
	return Rect{MinX: r.MinX - n, MinZ: r.MinZ - n, MaxX: r.MaxX + n, MaxZ: r.MaxZ + n}
}

// Contains проверяет, лежит ли колонна внутри
func (r Rect) Contains(x, z int) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Intersects проверяет пересечение прямоугольников
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && r.MaxX >= o.MinX && r.MinZ <= o.MaxZ && r.MaxZ >= o.MinZ
}

func (r Rect) Width() int { return r.MaxX - r.MinX + 1 }
func (r Rect) Depth() int { return r.MaxZ - r.MinZ + 1 }

// Cells обходит все колонны прямоугольника
func (r Rect) Cells(fn func(x, z int)) {
	for x := r.MinX; x <= r.MaxX; x++ {
		for z := r.MinZ; z <= r.MaxZ; z++ {
			fn(x, z)
		}
	}
}

// Ring обходит колонны на границе прямоугольника, включая углы
func (r Rect) Ring(fn func(x, z int)) {
	for x := r.MinX; x <= r.MaxX; x++ {
		fn(x, r.MinZ)
		if r.MaxZ != r.MinZ {
			fn(x, r.MaxZ)
		}
	}
	for z := r.MinZ + 1; z < r.MaxZ; z++ {
		fn(r.MinX, z)
		if r.MaxX != r.MinX {
			fn(r.MaxX, z)
		}
	}
}

// rectOf возвращает проекцию вокселей на плоскость XZ
func rectOf(voxels []Voxel) Rect {
	r := Rect{MinX: voxels[0].X, MinZ: voxels[0].Z, MaxX: voxels[0].X, MaxZ: voxels[0].Z}
	for _, v := range voxels[1:] {
		r.MinX = min(r.MinX, v.X)
		r.MinZ = min(r.MinZ, v.Z)
		r.MaxX = max(r.MaxX, v.X)
		r.MaxZ = max(r.MaxZ, v.Z)
	}
	return r
}

// FootprintRegistry хранит колонны, занятые размещёнными структурами
type FootprintRegistry struct {
	cells map[vec.Vec2]struct{}
	rects []Rect
}

// NewFootprintRegistry создаёт пустой реестр
func NewFootprintRegistry() *FootprintRegistry {
	return &FootprintRegistry{cells: make(map[vec.Vec2]struct{})}
}

// Occupied проверяет, занята ли колонна
func (f *FootprintRegistry) Occupied(x, z int) bool {
	_, ok := f.cells[vec.Vec2{X: x, Y: z}]
	return ok
}

// Intersects проверяет, занята ли хотя бы одна колонна прямоугольника
func (f *FootprintRegistry) Intersects(r Rect) bool {
	for _, claimed := range f.rects {
		if claimed.Intersects(r) {
			return true
		}
	}
	return false
}

// Claim регистрирует прямоугольник
func (f *FootprintRegistry) Claim(r Rect) {
	r.Cells(func(x, z int) {
		f.cells[vec.Vec2{X: x, Y: z}] = struct{}{}
	})
	f.rects = append(f.rects, r)
}

// Len возвращает число зарегистрированных прямоугольников
func (f *FootprintRegistry) Len() int {
	return len(f.rects)
}

// Rects возвращает копию зарегистрированных прямоугольников
func (f *FootprintRegistry) Rects() []Rect {
	out := make([]Rect, len(f.rects))
	copy(out, f.rects)
	return out
}
