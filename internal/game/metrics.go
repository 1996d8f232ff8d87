package game

import (
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики игрового мира.
//
// * voxel_chunks_loaded — gauge
// * voxel_chunk_loads_total / voxel_chunk_evictions_total — counters
// * voxel_block_edits_total{op,result} — counter
// * voxel_structures_placed_total{kind} / voxel_placement_attempts_total{kind} — counters
// * voxel_tick_duration_seconds — histogram
// * voxel_world_blocks — gauge
type Metrics struct {
	chunksLoaded      prometheus.Gauge
	chunkLoads        prometheus.Counter
	chunkEvictions    prometheus.Counter
	blockEdits        *prometheus.CounterVec
	structuresPlaced  *prometheus.CounterVec
	placementAttempts *prometheus.CounterVec
	structureChunks   prometheus.Counter
	tickDuration      prometheus.Histogram
	worldBlocks       prometheus.Gauge
}

// NewMetrics создаёт метрики и регистрирует их в reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		chunksLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Name:      "chunks_loaded",
			Help:      "Число загруженных чанков.",
		}),
		chunkLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "chunk_loads_total",
			Help:      "Общее число загрузок чанков.",
		}),
		chunkEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "chunk_evictions_total",
			Help:      "Общее число выгрузок чанков.",
		}),
		blockEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "block_edits_total",
			Help:      "Правки блоков по операции и результату.",
		}, []string{"op", "result"}),
		structuresPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "structures_placed_total",
			Help:      "Размещённые структуры по виду.",
		}, []string{"kind"}),
		placementAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "placement_attempts_total",
			Help:      "Попытки размещения структур по виду.",
		}, []string{"kind"}),
		structureChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Name:      "structure_chunk_updates_total",
			Help:      "Обновления чанков после постройки структур.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Name:      "tick_duration_seconds",
			Help:      "Длительность игрового тика.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.025, 0.05, 0.1},
		}),
		worldBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Name:      "world_blocks",
			Help:      "Число блоков в мире.",
		}),
	}

	collectors := []prometheus.Collector{
		m.chunksLoaded, m.chunkLoads, m.chunkEvictions, m.blockEdits,
		m.structuresPlaced, m.placementAttempts, m.structureChunks, m.tickDuration, m.worldBlocks,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordEdit(op string, res world.EditResult) {
	result := "ok"
	if !res.OK {
		result = res.Reason.String()
	}
	m.blockEdits.WithLabelValues(op, result).Inc()
}

func (m *Metrics) recordPlacement(res world.PlacementResult) {
	kind := res.Kind.String()
	m.structuresPlaced.WithLabelValues(kind).Add(float64(res.Placed))
	m.placementAttempts.WithLabelValues(kind).Add(float64(res.Attempts))
}

// metricsNotifier считает уведомления мира
type metricsNotifier struct {
	m *Metrics
}

var _ world.Notifier = metricsNotifier{}

func (n metricsNotifier) ChunkLoaded(vec.Vec2, world.Batches) world.RenderHandle {
	n.m.chunkLoads.Inc()
	n.m.chunksLoaded.Inc()
	return nil
}

func (n metricsNotifier) ChunkUnloaded(vec.Vec2, world.RenderHandle) {
	n.m.chunkEvictions.Inc()
	n.m.chunksLoaded.Dec()
}

func (n metricsNotifier) BlockAdded(vec.Vec3, block.BlockID)   {}
func (n metricsNotifier) BlockRemoved(vec.Vec3, block.BlockID) {}

func (n metricsNotifier) StructureBuilt(vec.Vec2, world.Batches) {
	n.m.structureChunks.Inc()
}
