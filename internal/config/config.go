package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalid возвращается, если конфигурация не прошла проверку
var ErrInvalid = errors.New("invalid config")

// Config корневая структура конфигурации приложения.
// Незаданные поля берутся из Default().
type Config struct {
	World      WorldConfig      `yaml:"world"`
	Terrain    TerrainConfig    `yaml:"terrain"`
	Streaming  StreamingConfig  `yaml:"streaming"`
	Structures StructuresConfig `yaml:"structures"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Actor      ActorConfig      `yaml:"actor"`
	Engine     EngineConfig     `yaml:"engine"`
	Server     ServerConfig     `yaml:"server"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// WorldConfig задаёт размеры мира
type WorldConfig struct {
	ChunkSize  int `yaml:"chunk_size"`
	HalfExtent int `yaml:"half_extent"` // колонны в [-half_extent, half_extent)
	MaxHeight  int `yaml:"max_height"`
}

// TerrainConfig параметры генератора ландшафта
type TerrainConfig struct {
	Seed          int64   `yaml:"seed"`
	Amplitude     float64 `yaml:"amplitude"`
	Frequency     float64 `yaml:"frequency"`
	BaseHeight    int     `yaml:"base_height"`
	MaxHeight     int     `yaml:"max_height"`
	SeaLevel      int     `yaml:"sea_level"`
	SnowThreshold int     `yaml:"snow_threshold"`
	DirtDepth     int     `yaml:"dirt_depth"`
}

// StreamingConfig параметры подгрузки чанков
type StreamingConfig struct {
	Enabled    bool `yaml:"enabled"`
	ViewRadius int  `yaml:"view_radius"` // в чанках
	BatchSize  int  `yaml:"batch_size"`  // чанков за тик при полной загрузке карты
}

// StructuresConfig параметры размещения деревьев и зданий
type StructuresConfig struct {
	TreeDir             string `yaml:"tree_dir"`
	BuildingDir         string `yaml:"building_dir"`
	TreeCount           int    `yaml:"tree_count"`
	BuildingCount       int    `yaml:"building_count"`
	AttemptsPerTree     int    `yaml:"attempts_per_tree"`
	AttemptsPerBuilding int    `yaml:"attempts_per_building"`
	BuildingBaseY       int    `yaml:"building_base_y"`
	BuildingPadding     int    `yaml:"building_padding"`
	Seed                int64  `yaml:"seed"`
}

// PhysicsConfig константы движения
type PhysicsConfig struct {
	Gravity       float64 `yaml:"gravity"`
	JumpSpeed     float64 `yaml:"jump_speed"`
	Speed         float64 `yaml:"speed"`
	RunMultiplier float64 `yaml:"run_multiplier"`
	Damping       float64 `yaml:"damping"`
	SearchRadius  int     `yaml:"search_radius"`
}

// ActorConfig размеры и точка появления актёра
type ActorConfig struct {
	Width  float64 `yaml:"width"`
	Depth  float64 `yaml:"depth"`
	Height float64 `yaml:"height"`
	SpawnX float64 `yaml:"spawn_x"`
	SpawnZ float64 `yaml:"spawn_z"`
}

// EngineConfig параметры игрового цикла
type EngineConfig struct {
	TickRate int `yaml:"tick_rate"` // тиков в секунду
}

type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто — in-memory шина
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Capacity  int    `yaml:"capacity"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`     // host:port OTLP/HTTP; пусто — из OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure    bool    `yaml:"insecure"`     // без TLS, для локального коллектора
	SampleRatio float64 `yaml:"sample_ratio"` // доля корневых трейсов, 0..1
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// Default возвращает конфигурацию по умолчанию: карта 250x250, чанк 6
func Default() *Config {
	return &Config{
		World: WorldConfig{ChunkSize: 6, HalfExtent: 125, MaxHeight: 256},
		Terrain: TerrainConfig{
			Seed:          1,
			Amplitude:     30,
			Frequency:     0.04,
			BaseHeight:    1,
			MaxHeight:     30,
			SeaLevel:      10,
			SnowThreshold: 25,
			DirtDepth:     3,
		},
		Streaming: StreamingConfig{Enabled: true, ViewRadius: 5, BatchSize: 128},
		Structures: StructuresConfig{
			TreeDir:             "assets/trees",
			BuildingDir:         "assets/buildings",
			TreeCount:           50,
			BuildingCount:       3,
			AttemptsPerTree:     5,
			AttemptsPerBuilding: 2000,
			BuildingBaseY:       19,
			BuildingPadding:     2,
			Seed:                1,
		},
		Physics: PhysicsConfig{
			Gravity:       25,
			JumpSpeed:     10,
			Speed:         3,
			RunMultiplier: 2,
			Damping:       0.8,
			SearchRadius:  3,
		},
		Actor:     ActorConfig{Width: 0.6, Depth: 0.6, Height: 1.6},
		Engine:    EngineConfig{TickRate: 60},
		Server:    ServerConfig{RESTPort: 8088},
		EventBus:  EventBusConfig{Stream: "WORLD", Retention: 24, Capacity: 1024},
		Telemetry: TelemetryConfig{ServiceName: "voxel-world", SampleRatio: 1},
		Logging:   LoggingConfig{Dir: "logs", ConsoleLevel: "info", FileLevel: "debug"},
	}
}

// GetRESTPort возвращает REST порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEL_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	switch {
	case c.World.ChunkSize <= 0:
		return fmt.Errorf("%w: world.chunk_size must be positive", ErrInvalid)
	case c.World.HalfExtent <= 0:
		return fmt.Errorf("%w: world.half_extent must be positive", ErrInvalid)
	case c.World.MaxHeight <= c.Terrain.MaxHeight:
		return fmt.Errorf("%w: world.max_height must exceed terrain.max_height", ErrInvalid)
	case c.Terrain.Frequency <= 0:
		return fmt.Errorf("%w: terrain.frequency must be positive", ErrInvalid)
	case c.Terrain.SeaLevel < 1:
		return fmt.Errorf("%w: terrain.sea_level must be at least 1", ErrInvalid)
	case c.Streaming.ViewRadius < 0:
		return fmt.Errorf("%w: streaming.view_radius must not be negative", ErrInvalid)
	case c.Streaming.BatchSize <= 0:
		return fmt.Errorf("%w: streaming.batch_size must be positive", ErrInvalid)
	case c.Physics.SearchRadius < 1:
		return fmt.Errorf("%w: physics.search_radius must be at least 1", ErrInvalid)
	case float64(c.Physics.SearchRadius) < c.Actor.Height:
		return fmt.Errorf("%w: physics.search_radius must cover actor.height", ErrInvalid)
	case c.Actor.Width <= 0 || c.Actor.Depth <= 0 || c.Actor.Height <= 0:
		return fmt.Errorf("%w: actor dimensions must be positive", ErrInvalid)
	case c.Engine.TickRate <= 0:
		return fmt.Errorf("%w: engine.tick_rate must be positive", ErrInvalid)
	case c.Structures.BuildingBaseY < 1 || c.Structures.BuildingBaseY >= c.World.MaxHeight:
		return fmt.Errorf("%w: structures.building_base_y out of world height", ErrInvalid)
	case c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1:
		return fmt.Errorf("%w: telemetry.sample_ratio must be within [0, 1]", ErrInvalid)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG или возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
