package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Типы событий мира
const (
	EventChunkLoaded    = "ChunkLoaded"
	EventChunkUnloaded  = "ChunkUnloaded"
	EventBlockAdded     = "BlockAdded"
	EventBlockRemoved   = "BlockRemoved"
	EventStructureBuilt = "StructureBuilt"
)

// MetaEncoding — ключ метаданных с кодировкой полезной нагрузки
const (
	MetaEncoding = "encoding"
	EncodingZstd = "zstd"
)

// payloadVersion — версия схемы ChunkPayload/BlockPayload
const payloadVersion = 1

// ChunkPayload — полезная нагрузка событий чанков и структур
type ChunkPayload struct {
	Chunk  [2]int                     `json:"chunk"`
	Blocks map[block.BlockID][][3]int `json:"blocks,omitempty"`
}

// BlockPayload — полезная нагрузка правок блоков
type BlockPayload struct {
	Position [3]int        `json:"position"`
	Type     block.BlockID `json:"type"`
}

// WorldPublisher реализует world.Notifier и публикует изменения мира в шину.
// Большие полезные нагрузки сжимаются zstd.
type WorldPublisher struct {
	bus           EventBus
	source        string
	timeout       time.Duration
	compressAbove int
	encoder       *zstd.Encoder
	tick          func() uint64
	logger        *logging.Logger
}

var _ world.Notifier = (*WorldPublisher)(nil)

// NewWorldPublisher создаёт издателя. source попадает в Envelope.Source.
func NewWorldPublisher(bus EventBus, source string) (*WorldPublisher, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &WorldPublisher{
		bus:           bus,
		source:        source,
		timeout:       100 * time.Millisecond,
		compressAbove: 512,
		encoder:       enc,
		logger:        logging.GetEventBusLogger(),
	}, nil
}

// SetTickSource задаёт источник номера тика для CorrelationID
func (p *WorldPublisher) SetTickSource(tick func() uint64) {
	p.tick = tick
}

// SetCompressionThreshold задаёт размер, начиная с которого нагрузка сжимается
func (p *WorldPublisher) SetCompressionThreshold(bytes int) {
	p.compressAbove = bytes
}

// Close освобождает кодировщик
func (p *WorldPublisher) Close() error {
	return p.encoder.Close()
}

func (p *WorldPublisher) ChunkLoaded(chunk vec.Vec2, batches world.Batches) world.RenderHandle {
	p.publish(EventChunkLoaded, PriorityStream, chunkPayload(chunk, batches))
	return nil
}

func (p *WorldPublisher) ChunkUnloaded(chunk vec.Vec2, _ world.RenderHandle) {
	p.publish(EventChunkUnloaded, PriorityStream, ChunkPayload{Chunk: [2]int{chunk.X, chunk.Y}})
}

func (p *WorldPublisher) BlockAdded(pos vec.Vec3, id block.BlockID) {
	p.publish(EventBlockAdded, PriorityEdit, BlockPayload{Position: [3]int{pos.X, pos.Y, pos.Z}, Type: id})
}

func (p *WorldPublisher) BlockRemoved(pos vec.Vec3, id block.BlockID) {
	p.publish(EventBlockRemoved, PriorityEdit, BlockPayload{Position: [3]int{pos.X, pos.Y, pos.Z}, Type: id})
}

func (p *WorldPublisher) StructureBuilt(chunk vec.Vec2, batches world.Batches) {
	p.publish(EventStructureBuilt, PriorityStructure, chunkPayload(chunk, batches))
}

func chunkPayload(chunk vec.Vec2, batches world.Batches) ChunkPayload {
	out := ChunkPayload{Chunk: [2]int{chunk.X, chunk.Y}, Blocks: make(map[block.BlockID][][3]int, len(batches))}
	for id, positions := range batches {
		list := make([][3]int, len(positions))
		for i, pos := range positions {
			list[i] = [3]int{pos.X, pos.Y, pos.Z}
		}
		out.Blocks[id] = list
	}
	return out
}

// publish вызывается из потока тика, поэтому ошибки только логируются
func (p *WorldPublisher) publish(eventType string, priority int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("❌ Сериализация %s: %v", eventType, err)
		return
	}

	ev := &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    p.source,
		EventType: eventType,
		Version:   payloadVersion,
		Priority:  priority,
		Payload:   data,
	}
	if p.tick != nil {
		ev.CorrelationID = fmt.Sprintf("tick-%d", p.tick())
	}
	if len(data) > p.compressAbove {
		ev.Payload = p.encoder.EncodeAll(data, make([]byte, 0, len(data)/4))
		ev.Metadata = map[string]string{MetaEncoding: EncodingZstd}
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.bus.Publish(ctx, ev); err != nil {
		p.logger.Warn("⚠️ Публикация %s не удалась: %v", eventType, err)
	}
}

// DecodePayload распаковывает (при необходимости) и разбирает полезную нагрузку события
func DecodePayload(ev *Envelope, v any) error {
	data := ev.Payload
	if ev.Metadata[MetaEncoding] == EncodingZstd {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("zstd decoder: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(ev.Payload, nil)
		if err != nil {
			return fmt.Errorf("decompress %s: %w", ev.EventType, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", ev.EventType, err)
	}
	return nil
}
