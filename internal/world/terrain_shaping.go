package world

import (
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// shapeTerrain готовит участок под здание:
//  1. срезает всё выше fill, запоминая воду;
//  2. засыпает каждую колонну участка до fill;
//  3. насыпает вокруг лестницу, спускающуюся к окружающему ландшафту;
//  4. возвращает воду на место, кроме позиций самого здания.
func (p *StructurePlacer) shapeTerrain(area Rect, fill int, reserved map[vec.Vec3]struct{}, changes *changeSet) {
	var water []vec.Vec3

	area.Cells(func(x, z int) {
		top := p.world.TopHeight(x, z)
		for y := fill + 1; y < top; y++ {
			pos := vec.Vec3{X: x, Y: y, Z: z}
			id, ok := p.world.Remove(pos)
			if !ok {
				continue
			}
			if id == block.WaterBlockID {
				water = append(water, pos)
			}
			p.notifier.BlockRemoved(pos, id)
		}
	})

	area.Cells(func(x, z int) {
		p.fillColumn(x, z, fill, changes)
	})

	p.carveStairs(area, fill, changes)

	for _, pos := range water {
		if _, taken := reserved[pos]; taken || p.world.Occupied(pos) {
			continue
		}
		p.world.Set(pos, block.WaterBlockID)
		changes.add(pos, block.WaterBlockID)
	}
}

// carveStairs насыпает кольца вокруг участка: кольцо на расстоянии step
// поднимается до fill-step+1, пока не опустится ниже окружающего ландшафта
func (p *StructurePlacer) carveStairs(area Rect, fill int, changes *changeSet) {
	lowest := -1
	area.Expand(2).Cells(func(x, z int) {
		if !p.bounds.ContainsColumn(x, z) {
			return
		}
		h := p.world.TopHeight(x, z)
		if lowest < 0 || h < lowest {
			lowest = h
		}
	})
	if lowest < 0 {
		return
	}

	steps := max(1, fill-lowest)
	for step := 1; step <= steps; step++ {
		height := fill - step + 1
		if height < lowest {
			break
		}
		ring := area.Expand(step)
		p.ensureRect(ring)
		ring.Ring(func(x, z int) {
			if p.bounds.ContainsColumn(x, z) {
				p.fillColumn(x, z, height, changes)
			}
		})
	}
}

// fillColumn заполняет пустые ячейки колонны от её вершины до top включительно
func (p *StructurePlacer) fillColumn(x, z, top int, changes *changeSet) {
	for y := p.world.TopHeight(x, z); y <= top; y++ {
		pos := vec.Vec3{X: x, Y: y, Z: z}
		if p.world.Occupied(pos) {
			continue
		}
		p.world.Set(pos, p.cfg.FillBlock)
		changes.add(pos, p.cfg.FillBlock)
	}
}
