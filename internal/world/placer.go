package world

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// PlacerConfig параметры размещения структур
type PlacerConfig struct {
	AttemptsPerTree     int
	AttemptsPerBuilding int
	BuildingBaseY       int // высота основания зданий
	BuildingPadding     int // отступ выравнивания вокруг здания
	FillBlock           block.BlockID
}

// DefaultPlacerConfig возвращает параметры стандартной карты
func DefaultPlacerConfig() PlacerConfig {
	return PlacerConfig{
		AttemptsPerTree:     5,
		AttemptsPerBuilding: 2000,
		BuildingBaseY:       19,
		BuildingPadding:     2,
		FillBlock:           block.DirtBlockID,
	}
}

// Sampler выбирает колонну для попытки размещения.
// width и depth — размеры основания структуры.
type Sampler func(attempt, width, depth int) (x, z int)

// PlacedStructure описывает размещённую структуру
type PlacedStructure struct {
	Name      string
	Kind      StructureKind
	Origin    vec.Vec3
	Footprint Rect
}

// PlacementResult итог размещения партии структур
type PlacementResult struct {
	Kind       StructureKind
	Requested  int
	Placed     int
	Attempts   int
	Short      bool // бюджет попыток исчерпан раньше, чем размещено нужное число
	Structures []PlacedStructure
}

// StructurePlacer размещает деревья и здания поверх сгенерированного ландшафта
type StructurePlacer struct {
	world    *State
	chunks   ChunkLoader
	notifier Notifier
	bounds   Bounds
	cfg      PlacerConfig
	rng      *rand.Rand

	registry *FootprintRegistry
	samplers map[StructureKind]Sampler
	progress ProgressSink
	logger   *logging.Logger
}

// NewStructurePlacer создаёт размещатель. notifier может быть nil.
func NewStructurePlacer(world *State, chunks ChunkLoader, notifier Notifier, bounds Bounds, cfg PlacerConfig, rng *rand.Rand) *StructurePlacer {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	p := &StructurePlacer{
		world:    world,
		chunks:   chunks,
		notifier: notifier,
		bounds:   bounds,
		cfg:      cfg,
		rng:      rng,
		registry: NewFootprintRegistry(),
		samplers: make(map[StructureKind]Sampler),
		progress: nopProgress{},
		logger:   logging.GetWorldLogger(),
	}
	if !bounds.Unbounded() {
		p.samplers[KindTree] = p.uniformSampler
		p.samplers[KindBuilding] = p.quadrantSampler()
	}
	return p
}

// SetSampler заменяет выбор колонн для вида структур
func (p *StructurePlacer) SetSampler(kind StructureKind, s Sampler) {
	p.samplers[kind] = s
}

// SetProgress задаёт получателя отчётов о ходе размещения
func (p *StructurePlacer) SetProgress(sink ProgressSink) {
	if sink == nil {
		sink = nopProgress{}
	}
	p.progress = sink
}

// Registry возвращает реестр занятых колонн
func (p *StructurePlacer) Registry() *FootprintRegistry {
	return p.registry
}

func (p *StructurePlacer) uniformSampler(_, _, _ int) (int, int) {
	span := 2 * p.bounds.HalfExtent
	return p.rng.Intn(span) - p.bounds.HalfExtent, p.rng.Intn(span) - p.bounds.HalfExtent
}

// quadrantSampler перебирает четверти мира по кругу, чтобы здания не скапливались
func (p *StructurePlacer) quadrantSampler() Sampler {
	h := p.bounds.HalfExtent
	quadrants := []Rect{
		{MinX: -h, MinZ: -h, MaxX: 0, MaxZ: 0},
		{MinX: 0, MinZ: -h, MaxX: h, MaxZ: 0},
		{MinX: -h, MinZ: 0, MaxX: 0, MaxZ: h},
		{MinX: 0, MinZ: 0, MaxX: h, MaxZ: h},
	}
	buffer := p.cfg.BuildingPadding + 1
	current := 0

	pick := func(lo, hi, size int) int {
		span := hi - lo - 2*buffer - size
		if span <= 0 {
			return lo + buffer
		}
		return lo + buffer + p.rng.Intn(span)
	}

	return func(_, width, depth int) (int, int) {
		q := quadrants[current]
		current = (current + 1) % len(quadrants)
		return pick(q.MinX, q.MaxX, width), pick(q.MinZ, q.MaxZ, depth)
	}
}

func (p *StructurePlacer) sampler(kind StructureKind) (Sampler, error) {
	s, ok := p.samplers[kind]
	if !ok {
		return nil, fmt.Errorf("place %s: %w", kind, ErrUnboundedWorld)
	}
	return s, nil
}

// PlaceTrees размещает до count деревьев случайных определений из src.
// Нехватка места — не ошибка: результат помечается Short.
func (p *StructurePlacer) PlaceTrees(src StructureSource, count int) (PlacementResult, error) {
	result := PlacementResult{Kind: KindTree, Requested: count}
	defs, err := src.Load()
	if err != nil {
		return result, fmt.Errorf("load tree definitions: %w", err)
	}
	if len(defs) == 0 {
		return result, fmt.Errorf("load tree definitions: %w", ErrNoStructures)
	}
	sample, err := p.sampler(KindTree)
	if err != nil {
		return result, err
	}

	maxAttempts := count * p.cfg.AttemptsPerTree
	for result.Placed < count && result.Attempts < maxAttempts {
		def := defs[p.rng.Intn(len(defs))]
		result.Attempts++

		if err := def.Validate(); err != nil {
			p.logger.Warn("⚠️ Пропуск дерева %q: %v", def.Name, err)
			continue
		}
		anchor, _ := def.Anchor()

		size := def.Size()
		x, z := sample(result.Attempts, size.X, size.Z)
		placed, ok := p.tryPlaceTree(def, anchor, x, z)
		if !ok {
			continue
		}
		result.Placed++
		result.Structures = append(result.Structures, placed)
		p.progress.Progress(result.Placed, count, fmt.Sprintf("Размещение деревьев... (%d/%d)", result.Placed, count))
	}

	p.finish(&result)
	return result, nil
}

func (p *StructurePlacer) tryPlaceTree(def *Structure, anchor vec.Vec3, x, z int) (PlacedStructure, bool) {
	if !p.bounds.ContainsColumn(x, z) {
		return PlacedStructure{}, false
	}
	p.ensureColumn(x, z)

	origin := vec.Vec3{X: x, Y: p.world.TopHeight(x, z), Z: z}
	voxels := def.Place(anchor, origin)
	footprint := rectOf(voxels)
	p.ensureRect(footprint)

	if p.registry.Intersects(footprint.Expand(1)) {
		return PlacedStructure{}, false
	}
	if !p.hasGroundBelow(footprint, origin.Y-1) {
		return PlacedStructure{}, false
	}
	for _, v := range voxels {
		pos := v.Pos()
		if !p.bounds.ContainsBlock(pos) || p.world.Occupied(pos) {
			return PlacedStructure{}, false
		}
	}

	changes := newChangeSet(p.chunks.ChunkSize())
	for _, v := range voxels {
		p.world.Set(v.Pos(), v.Type)
		changes.add(v.Pos(), v.Type)
	}
	p.registry.Claim(footprint)
	p.flush(changes)

	return PlacedStructure{Name: def.Name, Kind: KindTree, Origin: origin, Footprint: footprint}, true
}

// PlaceBuildings размещает до count зданий; каждое определение используется не больше одного раза.
// Участок под зданием выравнивается до BuildingBaseY-1, вокруг насыпается лестница.
func (p *StructurePlacer) PlaceBuildings(src StructureSource, count int) (PlacementResult, error) {
	result := PlacementResult{Kind: KindBuilding, Requested: count}
	defs, err := src.Load()
	if err != nil {
		return result, fmt.Errorf("load building definitions: %w", err)
	}
	if len(defs) == 0 {
		return result, fmt.Errorf("load building definitions: %w", ErrNoStructures)
	}
	sample, err := p.sampler(KindBuilding)
	if err != nil {
		return result, err
	}

	pool := make([]*Structure, len(defs))
	copy(pool, defs)

	maxAttempts := count * p.cfg.AttemptsPerBuilding
	for result.Placed < count && result.Attempts < maxAttempts && len(pool) > 0 {
		idx := p.rng.Intn(len(pool))
		def := pool[idx]
		result.Attempts++

		if err := def.Validate(); err != nil {
			p.logger.Warn("⚠️ Пропуск здания %q: %v", def.Name, err)
			pool = append(pool[:idx], pool[idx+1:]...)
			continue
		}
		anchor, _ := def.Anchor()

		size := def.Size()
		x, z := sample(result.Attempts, size.X, size.Z)
		placed, ok := p.tryPlaceBuilding(def, anchor, x, z)
		if !ok {
			continue
		}
		result.Placed++
		result.Structures = append(result.Structures, placed)
		pool = append(pool[:idx], pool[idx+1:]...)
		p.progress.Progress(result.Placed, count, fmt.Sprintf("Размещение зданий... (%d/%d)", result.Placed, count))
		p.logger.Info("🏠 Здание %q размещено в (%d, %d, %d)", def.Name, placed.Origin.X, placed.Origin.Y, placed.Origin.Z)
	}

	p.finish(&result)
	return result, nil
}

func (p *StructurePlacer) tryPlaceBuilding(def *Structure, anchor vec.Vec3, x, z int) (PlacedStructure, bool) {
	origin := vec.Vec3{X: x, Y: p.cfg.BuildingBaseY, Z: z}
	voxels := def.Place(anchor, origin)
	site := rectOf(voxels)
	area := site.Expand(p.cfg.BuildingPadding)

	if !p.rectInBounds(area) {
		return PlacedStructure{}, false
	}
	reserved := make(map[vec.Vec3]struct{}, len(voxels))
	for _, v := range voxels {
		if !p.bounds.ContainsBlock(v.Pos()) {
			return PlacedStructure{}, false
		}
		reserved[v.Pos()] = struct{}{}
	}
	if p.registry.Intersects(area.Expand(1)) {
		return PlacedStructure{}, false
	}

	p.ensureRect(area.Expand(2))
	if !p.hasTerrain(site) {
		return PlacedStructure{}, false
	}

	changes := newChangeSet(p.chunks.ChunkSize())
	p.shapeTerrain(area, origin.Y-1, reserved, changes)

	for _, v := range voxels {
		p.world.Set(v.Pos(), v.Type)
		changes.add(v.Pos(), v.Type)
	}
	p.registry.Claim(area)
	p.flush(changes)

	return PlacedStructure{Name: def.Name, Kind: KindBuilding, Origin: origin, Footprint: area}, true
}

func (p *StructurePlacer) finish(result *PlacementResult) {
	if result.Placed < result.Requested {
		result.Short = true
		p.logger.Warn("⚠️ Размещено только %d из %d (%s) за %d попыток",
			result.Placed, result.Requested, result.Kind, result.Attempts)
		return
	}
	p.logger.Info("✅ Размещено %d %s за %d попыток", result.Placed, result.Kind, result.Attempts)
}

// hasGroundBelow проверяет, что под основанием есть хотя бы один блок
func (p *StructurePlacer) hasGroundBelow(r Rect, y int) bool {
	if y < 0 {
		return false
	}
	found := false
	r.Cells(func(x, z int) {
		if !found && p.world.Occupied(vec.Vec3{X: x, Y: y, Z: z}) {
			found = true
		}
	})
	return found
}

// hasTerrain проверяет, что под участком есть ландшафт
func (p *StructurePlacer) hasTerrain(r Rect) bool {
	found := false
	r.Cells(func(x, z int) {
		if !found && p.world.TopHeight(x, z) > 0 {
			found = true
		}
	})
	return found
}

func (p *StructurePlacer) rectInBounds(r Rect) bool {
	return p.bounds.ContainsColumn(r.MinX, r.MinZ) && p.bounds.ContainsColumn(r.MaxX, r.MaxZ)
}

func (p *StructurePlacer) ensureColumn(x, z int) {
	size := p.chunks.ChunkSize()
	p.chunks.EnsureLoaded(vec.FloorDiv(x, size), vec.FloorDiv(z, size))
}

// ensureRect загружает все чанки, которые задевает прямоугольник
func (p *StructurePlacer) ensureRect(r Rect) {
	size := p.chunks.ChunkSize()
	for cx := vec.FloorDiv(r.MinX, size); cx <= vec.FloorDiv(r.MaxX, size); cx++ {
		for cz := vec.FloorDiv(r.MinZ, size); cz <= vec.FloorDiv(r.MaxZ, size); cz++ {
			p.chunks.EnsureLoaded(cx, cz)
		}
	}
}

// changeSet копит добавленные блоки по чанкам до одного уведомления StructureBuilt
type changeSet struct {
	chunkSize int
	added     map[vec.Vec2]Batches
}

func newChangeSet(chunkSize int) *changeSet {
	return &changeSet{chunkSize: chunkSize, added: make(map[vec.Vec2]Batches)}
}

func (c *changeSet) add(pos vec.Vec3, id block.BlockID) {
	key := pos.Chunk(c.chunkSize)
	batches, ok := c.added[key]
	if !ok {
		batches = make(Batches)
		c.added[key] = batches
	}
	batches.Add(id, pos)
}

func (p *StructurePlacer) flush(c *changeSet) {
	keys := make([]vec.Vec2, 0, len(c.added))
	for key := range c.added {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for _, key := range keys {
		p.notifier.StructureBuilt(key, c.added[key])
	}
}
