package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/vec"
)

// ErrUnboundedWorld возвращается операциями, которым нужны границы мира
var ErrUnboundedWorld = errors.New("world has no horizontal bounds")

// ProgressSink получает отчёты о ходе длительных операций
type ProgressSink interface {
	Progress(done, total int, message string)
}

// ProgressFunc адаптирует функцию к ProgressSink
type ProgressFunc func(done, total int, message string)

func (f ProgressFunc) Progress(done, total int, message string) { f(done, total, message) }

type nopProgress struct{}

func (nopProgress) Progress(int, int, string) {}

// MaterializeTask загружает все чанки мира порциями по batchSize за шаг.
// Между шагами управление возвращается игровому циклу. Задачу нельзя отменить:
// она всегда доходит до конца.
type MaterializeTask struct {
	streamer  *ChunkStreamer
	keys      []vec.Vec2
	next      int
	batchSize int
	sink      ProgressSink
}

// NewMaterializeTask создаёт задачу полной загрузки карты в порядке строк
func (s *ChunkStreamer) NewMaterializeTask(batchSize int, sink ProgressSink) (*MaterializeTask, error) {
	if s.bounds.Unbounded() {
		return nil, fmt.Errorf("materialize: %w", ErrUnboundedWorld)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("materialize: batch size must be positive, got %d", batchSize)
	}
	if sink == nil {
		sink = nopProgress{}
	}

	min, max := s.ChunkBounds()
	keys := make([]vec.Vec2, 0, (max.X-min.X+1)*(max.Y-min.Y+1))
	for cz := min.Y; cz <= max.Y; cz++ {
		for cx := min.X; cx <= max.X; cx++ {
			keys = append(keys, vec.Vec2{X: cx, Y: cz})
		}
	}

	return &MaterializeTask{
		streamer:  s,
		keys:      keys,
		batchSize: batchSize,
		sink:      sink,
	}, nil
}

// Step загружает следующую порцию чанков. Возвращает true, когда загружено всё.
func (t *MaterializeTask) Step() bool {
	end := min(t.next+t.batchSize, len(t.keys))
	total := len(t.keys)
	for ; t.next < end; t.next++ {
		key := t.keys[t.next]
		t.streamer.EnsureLoaded(key.X, key.Y)
		t.sink.Progress(t.next+1, total, fmt.Sprintf("Загрузка карты... (%d/%d)", t.next+1, total))
	}
	return t.Done()
}

// Done проверяет, завершена ли задача
func (t *MaterializeTask) Done() bool {
	return t.next >= len(t.keys)
}

// Progress возвращает число обработанных и общее число чанков
func (t *MaterializeTask) Progress() (done, total int) {
	return t.next, len(t.keys)
}
