package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/physics"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrStopped возвращается Submit, если цикл движка завершён
var ErrStopped = errors.New("engine stopped")

// maxTickDelta ограничивает шаг физики после долгой паузы
const maxTickDelta = physics.MaxDelta

type command struct {
	fn   func(*Engine)
	done chan struct{}
}

// Engine владеет миром и всеми компонентами и выполняет их в одном потоке тика.
// Другие горутины обращаются к миру только через Submit.
type Engine struct {
	cfg *config.Config

	state     *world.State
	generator *world.TerrainGenerator
	streamer  *world.ChunkStreamer
	placer    *world.StructurePlacer
	editor    *world.BlockEditor
	resolver  *physics.Resolver
	actor     *physics.Actor

	metrics  *Metrics
	progress world.ProgressSink
	tracer   trace.Tracer
	logger   *logging.Logger

	commands    chan command
	stopped     chan struct{}
	input       physics.Input
	streaming   bool
	materialize *world.MaterializeTask
	tick        uint64
	startedAt   time.Time
}

type options struct {
	notifiers  []world.Notifier
	noise      util.Noise2D
	registerer prometheus.Registerer
	progress   world.ProgressSink
	rng        *rand.Rand
}

// Option настраивает движок
type Option func(*options)

// WithNotifier добавляет получателя уведомлений мира
func WithNotifier(n world.Notifier) Option {
	return func(o *options) { o.notifiers = append(o.notifiers, n) }
}

// WithNoise заменяет источник шума ландшафта
func WithNoise(n util.Noise2D) Option {
	return func(o *options) { o.noise = n }
}

// WithRegisterer задаёт реестр Prometheus (по умолчанию — глобальный)
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithProgress задаёт получателя отчётов о длительных операциях
func WithProgress(p world.ProgressSink) Option {
	return func(o *options) { o.progress = p }
}

// WithRand задаёт генератор случайных чисел для размещения структур
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// New собирает движок из конфигурации и ставит актёра на точку появления
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}
	if o.noise == nil {
		o.noise = util.NewPerlinNoise(cfg.Terrain.Seed)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(cfg.Structures.Seed))
	}
	if o.progress == nil {
		o.progress = world.ProgressFunc(func(int, int, string) {})
	}

	metrics, err := NewMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	notifier := append(world.Notifiers{metricsNotifier{m: metrics}}, o.notifiers...)
	bounds := world.Bounds{HalfExtent: cfg.World.HalfExtent, MaxHeight: cfg.World.MaxHeight}

	e := &Engine{
		cfg:       cfg,
		state:     world.NewState(),
		metrics:   metrics,
		progress:  o.progress,
		tracer:    otel.Tracer("github.com/annel0/voxel-world/internal/game"),
		logger:    logging.GetGameLogger(),
		commands:  make(chan command, 64),
		stopped:   make(chan struct{}),
		streaming: true,
		startedAt: time.Now(),
	}

	e.generator = world.NewTerrainGenerator(terrainConfig(cfg), o.noise)
	e.streamer = world.NewChunkStreamer(e.state, e.generator, notifier, bounds, cfg.World.ChunkSize)
	e.placer = world.NewStructurePlacer(e.state, e.streamer, notifier, bounds, placerConfig(cfg), o.rng)
	e.placer.SetProgress(o.progress)
	e.actor = physics.NewActor(
		physics.NewBoxCollider(cfg.Actor.Width, cfg.Actor.Depth, cfg.Actor.Height),
		mgl64.Vec3{cfg.Actor.SpawnX, 0, cfg.Actor.SpawnZ},
	)
	e.editor = world.NewBlockEditor(e.state, e.streamer, notifier, bounds, func() (world.Box, bool) {
		return e.actor.Box(), true
	})
	e.resolver = physics.NewResolver(e.state, e.streamer, bounds, physicsConfig(cfg))

	e.Spawn()
	if !cfg.Streaming.Enabled {
		if err := e.SetStreaming(false); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func terrainConfig(cfg *config.Config) world.TerrainConfig {
	return world.TerrainConfig{
		Amplitude:     cfg.Terrain.Amplitude,
		Frequency:     cfg.Terrain.Frequency,
		BaseHeight:    cfg.Terrain.BaseHeight,
		MaxHeight:     cfg.Terrain.MaxHeight,
		SeaLevel:      cfg.Terrain.SeaLevel,
		SnowThreshold: cfg.Terrain.SnowThreshold,
		DirtDepth:     cfg.Terrain.DirtDepth,
	}
}

func placerConfig(cfg *config.Config) world.PlacerConfig {
	pc := world.DefaultPlacerConfig()
	pc.AttemptsPerTree = cfg.Structures.AttemptsPerTree
	pc.AttemptsPerBuilding = cfg.Structures.AttemptsPerBuilding
	pc.BuildingBaseY = cfg.Structures.BuildingBaseY
	pc.BuildingPadding = cfg.Structures.BuildingPadding
	return pc
}

func physicsConfig(cfg *config.Config) physics.Config {
	return physics.Config{
		Gravity:       cfg.Physics.Gravity,
		JumpSpeed:     cfg.Physics.JumpSpeed,
		Speed:         cfg.Physics.Speed,
		RunMultiplier: cfg.Physics.RunMultiplier,
		Damping:       cfg.Physics.Damping,
		SearchRadius:  cfg.Physics.SearchRadius,
	}
}

// Spawn ставит актёра на поверхность в точке появления
func (e *Engine) Spawn() {
	sx, sz := e.cfg.Actor.SpawnX, e.cfg.Actor.SpawnZ
	x, z := int(math.Round(sx)), int(math.Round(sz))
	// чанк точки и чанк её колонны могут различаться на границе
	for _, key := range []vec.Vec2{
		world.ChunkAt(sx, sz, e.cfg.World.ChunkSize),
		world.ChunkAt(float64(x), float64(z), e.cfg.World.ChunkSize),
	} {
		e.streamer.EnsureLoaded(key.X, key.Y)
	}

	top := e.state.TopHeight(x, z)
	e.actor.Position = mgl64.Vec3{sx, float64(top), sz}
	e.actor.Velocity = mgl64.Vec3{}
	e.actor.Grounded = false
	e.logger.Info("🧍 Актёр появился в (%.1f, %d, %.1f)", sx, top, sz)
}

// PopulateStructures размещает здания, затем деревья. Нехватка места — не ошибка.
func (e *Engine) PopulateStructures(ctx context.Context, buildings, trees world.StructureSource) (built, planted world.PlacementResult, err error) {
	ctx, span := e.tracer.Start(ctx, "game.PopulateStructures")
	defer span.End()

	if buildings != nil {
		_, bspan := e.tracer.Start(ctx, "game.PlaceBuildings")
		built, err = e.placer.PlaceBuildings(buildings, e.cfg.Structures.BuildingCount)
		bspan.SetAttributes(attribute.Int("placed", built.Placed), attribute.Int("attempts", built.Attempts))
		bspan.End()
		if err != nil {
			span.RecordError(err)
			return built, planted, fmt.Errorf("place buildings: %w", err)
		}
		e.metrics.recordPlacement(built)
	}

	if trees != nil {
		_, tspan := e.tracer.Start(ctx, "game.PlaceTrees")
		planted, err = e.placer.PlaceTrees(trees, e.cfg.Structures.TreeCount)
		tspan.SetAttributes(attribute.Int("placed", planted.Placed), attribute.Int("attempts", planted.Attempts))
		tspan.End()
		if err != nil {
			span.RecordError(err)
			return built, planted, fmt.Errorf("place trees: %w", err)
		}
		e.metrics.recordPlacement(planted)
	}

	e.metrics.worldBlocks.Set(float64(e.state.Len()))
	return built, planted, nil
}

// SetStreaming переключает режим: при выключении стриминга запускается полная загрузка
// карты порциями по одной за тик. Загрузку нельзя прервать: повторное включение
// стриминга вступает в силу после её завершения.
func (e *Engine) SetStreaming(enabled bool) error {
	e.streaming = enabled
	if enabled || e.materialize != nil {
		return nil
	}
	task, err := e.streamer.NewMaterializeTask(e.cfg.Streaming.BatchSize, e.progress)
	if err != nil {
		return err
	}
	e.materialize = task
	e.logger.Info("🗺️ Полная загрузка карты: стриминг выключен")
	return nil
}

// Streaming возвращает true, если чанки подгружаются вокруг актёра
func (e *Engine) Streaming() bool {
	return e.streaming
}

// Materializing возвращает true, пока идёт полная загрузка карты
func (e *Engine) Materializing() bool {
	return e.materialize != nil
}

// SetInput задаёт ввод игрока для следующих тиков
func (e *Engine) SetInput(in physics.Input) {
	e.input = in
}

// Tick выполняет один игровой тик: команды, загрузку чанков, физику
func (e *Engine) Tick(delta float64) physics.StepResult {
	start := time.Now()
	e.tick++
	e.drainCommands()

	switch {
	case e.materialize != nil:
		_, span := e.tracer.Start(context.Background(), "game.Materialize")
		if e.materialize.Step() {
			done, total := e.materialize.Progress()
			e.logger.Info("✅ Карта загружена: %d/%d чанков", done, total)
			e.materialize = nil
		}
		span.End()
	case e.streaming:
		e.streamer.Update(e.actor.Position, e.cfg.Streaming.ViewRadius)
	}

	result := e.resolver.Step(e.actor, e.input, delta)

	e.metrics.worldBlocks.Set(float64(e.state.Len()))
	e.metrics.tickDuration.Observe(time.Since(start).Seconds())
	return result
}

func (e *Engine) drainCommands() {
	for {
		select {
		case cmd := <-e.commands:
			cmd.fn(e)
			close(cmd.done)
		default:
			return
		}
	}
}

// Run крутит игровой цикл с частотой engine.tick_rate до отмены ctx.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)

	interval := time.Second / time.Duration(e.cfg.Engine.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("▶️ Игровой цикл запущен: %d TPS", e.cfg.Engine.TickRate)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("⏹️ Игровой цикл остановлен на тике %d", e.tick)
			return nil
		case cmd := <-e.commands:
			cmd.fn(e)
			close(cmd.done)
		case now := <-ticker.C:
			delta := math.Min(now.Sub(last).Seconds(), maxTickDelta)
			last = now
			e.Tick(delta)
		}
	}
}

// Submit передаёт fn потоку тика и ждёт её выполнения.
// Это единственный безопасный способ обратиться к миру из другой горутины.
func (e *Engine) Submit(ctx context.Context, fn func(*Engine)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case e.commands <- cmd:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return nil
	case <-e.stopped:
		// команда могла выполниться в последнем тике
		select {
		case <-cmd.done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddBlock ставит блок от имени игрока
func (e *Engine) AddBlock(pos vec.Vec3, id block.BlockID) world.EditResult {
	res := e.editor.Add(pos, id)
	e.metrics.recordEdit("add", res)
	return res
}

// RemoveBlock убирает блок от имени игрока
func (e *Engine) RemoveBlock(pos vec.Vec3) world.EditResult {
	res := e.editor.Remove(pos)
	e.metrics.recordEdit("remove", res)
	return res
}

// State возвращает мир. Вызывать только из потока тика.
func (e *Engine) State() *world.State { return e.state }

// Streamer возвращает менеджер чанков. Вызывать только из потока тика.
func (e *Engine) Streamer() *world.ChunkStreamer { return e.streamer }

// Placer возвращает размещатель структур
func (e *Engine) Placer() *world.StructurePlacer { return e.placer }

// Actor возвращает актёра. Вызывать только из потока тика.
func (e *Engine) Actor() *physics.Actor { return e.actor }

// TickCount возвращает номер текущего тика
func (e *Engine) TickCount() uint64 { return e.tick }

// Uptime возвращает время с создания движка
func (e *Engine) Uptime() time.Duration { return time.Since(e.startedAt) }
