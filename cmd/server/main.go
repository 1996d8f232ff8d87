package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-world/internal/api"
	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/game"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/render"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию $VOXEL_CONFIG или встроенные значения)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.Configure(logging.Options{
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: logging.ParseLevel(cfg.Logging.ConsoleLevel),
		FileLevel:    logging.ParseLevel(cfg.Logging.FileLevel),
	})
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	logging.Info("🎮 Запуск voxel-world: мир %dx%d, чанк %d, радиус обзора %d",
		2*cfg.World.HalfExtent, 2*cfg.World.HalfExtent, cfg.World.ChunkSize, cfg.Streaming.ViewRadius)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === OBSERVABILITY ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("⚠️ Остановка телеметрии: %v", err)
		}
	}()

	// === EVENT BUS ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	busMetrics, err := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("eventbus metrics: %w", err)
	}
	busMetrics.Start()
	defer busMetrics.Stop()

	if sub, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("⚠️ LoggingListener не запущен: %v", err)
	} else {
		defer sub.Unsubscribe()
	}

	publisher, err := eventbus.NewWorldPublisher(bus, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("world publisher: %w", err)
	}
	defer publisher.Close()

	// === ENGINE ===
	batches := render.NewBatchStore(cfg.World.ChunkSize)
	engine, err := game.New(cfg,
		game.WithNotifier(batches),
		game.WithNotifier(publisher),
		game.WithProgress(progressLogger()),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	publisher.SetTickSource(engine.TickCount)

	populate(ctx, engine, cfg.Structures)

	// === REST API ===
	restServer, err := api.NewRestServer(api.Config{
		Port:    fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Engine:  engine,
		Service: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("create rest server: %w", err)
	}
	if err := restServer.Start(); err != nil {
		return fmt.Errorf("start rest server: %w", err)
	}

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetRESTPort())

	// Игровой цикл блокирует до сигнала завершения
	if err := engine.Run(ctx); err != nil {
		logging.Error("❌ Игровой цикл: %v", err)
	}

	// === GRACEFUL SHUTDOWN ===
	logging.Info("📡 Получен сигнал завершения, остановка сервисов...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}

	logging.Info("🧱 Итог: %d блоков, %d чанков в памяти рендера", engine.State().Len(), len(batches.Chunks()))
	return nil
}

// newEventBus выбирает JetStream, если задан URL, иначе in-memory шину
func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("🚌 Шина событий: in-memory (ёмкость %d)", cfg.Capacity)
		return eventbus.NewMemoryBus(cfg.Capacity), nil
	}

	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("connect jetstream: %w", err)
	}
	logging.Info("🚌 Шина событий: NATS JetStream %s (stream=%s)", cfg.URL, cfg.Stream)
	return bus, nil
}

// populate размещает здания, затем деревья из каталогов ассетов.
// Отсутствующий каталог одного вида не мешает размещению другого и запуску сервера.
func populate(ctx context.Context, engine *game.Engine, cfg config.StructuresConfig) {
	if cfg.BuildingCount > 0 {
		built, _, err := engine.PopulateStructures(ctx, world.DirSource{Dir: cfg.BuildingDir, Kind: world.KindBuilding}, nil)
		logPlacement("🏠 Здания", built, err)
	}
	if cfg.TreeCount > 0 {
		_, planted, err := engine.PopulateStructures(ctx, nil, world.DirSource{Dir: cfg.TreeDir, Kind: world.KindTree})
		logPlacement("🌳 Деревья", planted, err)
	}
}

func logPlacement(what string, res world.PlacementResult, err error) {
	switch {
	case errors.Is(err, world.ErrNoStructures), errors.Is(err, os.ErrNotExist):
		logging.Warn("⚠️ %s не размещены: %v", what, err)
	case err != nil:
		logging.Error("❌ %s: %v", what, err)
	default:
		logging.Info("%s: %d/%d за %d попыток", what, res.Placed, res.Requested, res.Attempts)
	}
}

// progressLogger пишет прогресс длительных операций не чаще раза в 128 шагов
func progressLogger() world.ProgressSink {
	return world.ProgressFunc(func(done, total int, message string) {
		if done == total || done%128 == 0 {
			logging.Info("⏳ %s", message)
		}
	})
}
