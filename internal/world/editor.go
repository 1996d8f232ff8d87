package world

import (
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Rejection причина отказа в правке блока
type Rejection uint8

const (
	RejectNone Rejection = iota
	RejectOccupied
	RejectOutOfBounds
	RejectActorCollision
	RejectEmpty
	RejectIndestructible
	RejectInvalidType
)

var rejectionNames = map[Rejection]string{
	RejectNone:           "none",
	RejectOccupied:       "occupied",
	RejectOutOfBounds:    "out_of_bounds",
	RejectActorCollision: "actor_collision",
	RejectEmpty:          "empty",
	RejectIndestructible: "indestructible",
	RejectInvalidType:    "invalid_type",
}

func (r Rejection) String() string {
	if name, ok := rejectionNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText кодирует причину строкой
func (r Rejection) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// EditResult итог правки. Ожидаемые отказы — не ошибки.
type EditResult struct {
	OK     bool      `json:"ok"`
	Reason Rejection `json:"reason"`
}

func rejected(reason Rejection) EditResult {
	return EditResult{Reason: reason}
}

// ActorBoxFunc возвращает текущий объём актёра; false — актёра нет
type ActorBoxFunc func() (Box, bool)

// BlockEditor добавляет и удаляет блоки по действиям игрока
type BlockEditor struct {
	world    *State
	chunks   ChunkLoader
	notifier Notifier
	bounds   Bounds
	actorBox ActorBoxFunc
	logger   *logging.Logger
}

// NewBlockEditor создаёт редактор. notifier и actorBox могут быть nil.
func NewBlockEditor(world *State, chunks ChunkLoader, notifier Notifier, bounds Bounds, actorBox ActorBoxFunc) *BlockEditor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BlockEditor{
		world:    world,
		chunks:   chunks,
		notifier: notifier,
		bounds:   bounds,
		actorBox: actorBox,
		logger:   logging.GetWorldLogger(),
	}
}

// Add ставит блок в пустую позицию
func (e *BlockEditor) Add(pos vec.Vec3, id block.BlockID) EditResult {
	if id == block.AirBlockID || !block.IsValidBlockID(id) {
		return rejected(RejectInvalidType)
	}
	if !e.bounds.ContainsBlock(pos) {
		return rejected(RejectOutOfBounds)
	}

	// Проверки не трогают мир: отказ не должен загружать чанк
	if e.chunks.Occupied(pos) {
		return rejected(RejectOccupied)
	}
	if e.actorBox != nil {
		if box, ok := e.actorBox(); ok && box.Intersects(BlockBox(pos)) {
			return rejected(RejectActorCollision)
		}
	}

	// Чанк догружается до записи, иначе генерация позже положит ландшафт поверх правки
	key := pos.Chunk(e.chunks.ChunkSize())
	e.chunks.EnsureLoaded(key.X, key.Y)

	e.world.Set(pos, id)
	e.notifier.BlockAdded(pos, id)
	e.logger.Debug("Блок %s поставлен в (%d, %d, %d)", id, pos.X, pos.Y, pos.Z)
	return EditResult{OK: true}
}

// Remove убирает блок, если он есть и разрушаем
func (e *BlockEditor) Remove(pos vec.Vec3) EditResult {
	id, ok := e.world.Get(pos)
	if !ok {
		return rejected(RejectEmpty)
	}
	if block.IsIndestructible(id) {
		return rejected(RejectIndestructible)
	}

	e.world.Remove(pos)
	e.notifier.BlockRemoved(pos, id)
	e.logger.Debug("Блок %s убран из (%d, %d, %d)", id, pos.X, pos.Y, pos.Z)
	return EditResult{OK: true}
}
