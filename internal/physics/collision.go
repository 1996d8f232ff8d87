package physics

import (
	"math"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// BoxCollider — прямоугольный коллайдер, привязанный к точке ступней
type BoxCollider struct {
	HalfWidth float64 // половина размера по X
	HalfDepth float64 // половина размера по Z
	Height    float64
}

// NewBoxCollider создаёт коллайдер с указанными размерами
func NewBoxCollider(width, depth, height float64) BoxCollider {
	return BoxCollider{HalfWidth: width / 2, HalfDepth: depth / 2, Height: height}
}

// BoxAt возвращает объём коллайдера, стоящего в точке pos
func (c BoxCollider) BoxAt(pos mgl64.Vec3) world.Box {
	return world.Box{
		Min: mgl64.Vec3{pos.X() - c.HalfWidth, pos.Y(), pos.Z() - c.HalfDepth},
		Max: mgl64.Vec3{pos.X() + c.HalfWidth, pos.Y() + c.Height, pos.Z() + c.HalfDepth},
	}
}

// Intersects проверяет, пересекает ли объём блок в позиции pos
func Intersects(box world.Box, pos vec.Vec3) bool {
	return box.Intersects(world.BlockBox(pos))
}

// BlockReader — доступ к блокам мира только на чтение
type BlockReader interface {
	Get(pos vec.Vec3) (block.BlockID, bool)
}

// LoadedChecker сообщает, загружен ли чанк под мировой точкой
type LoadedChecker interface {
	IsLoadedAt(x, z float64) bool
}

// CanMoveToPosition проверяет, может ли коллайдер встать в позицию.
// blockChecker возвращает true, если блок в указанной позиции проходим.
func CanMoveToPosition(box world.Box, radius int, center vec.Vec3, blockChecker func(vec.Vec3) bool) bool {
	for x := center.X - radius; x <= center.X+radius; x++ {
		for y := max(center.Y-radius, 0); y <= center.Y+radius; y++ {
			for z := center.Z - radius; z <= center.Z+radius; z++ {
				pos := vec.Vec3{X: x, Y: y, Z: z}
				if blockChecker(pos) {
					continue
				}
				if Intersects(box, pos) {
					return false
				}
			}
		}
	}
	return true
}

// roundVec3 округляет точку до ближайшего блока
func roundVec3(p mgl64.Vec3) vec.Vec3 {
	return vec.Vec3{
		X: int(math.Round(p.X())),
		Y: int(math.Round(p.Y())),
		Z: int(math.Round(p.Z())),
	}
}
