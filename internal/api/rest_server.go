package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxel-world/internal/game"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/middleware"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// submitTimeout — сколько запрос ждёт очереди игрового цикла
const submitTimeout = 2 * time.Second

// Engine — часть движка, которую использует API: все обращения к миру
// идут через очередь команд игрового цикла
type Engine interface {
	Submit(ctx context.Context, fn func(*game.Engine)) error
}

// RestServer представляет REST API сервер
type RestServer struct {
	router     *gin.Engine
	engine     Engine
	port       string
	sampler    *processSampler
	httpServer *http.Server
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string                // адрес для запуска сервера, например ":8088"
	Engine     Engine                // игровой движок
	Registerer prometheus.Registerer // реестр HTTP-метрик (по умолчанию глобальный)
	Gatherer   prometheus.Gatherer   // источник для /metrics (по умолчанию глобальный)
	Service    string                // имя сервиса в трейсах и метриках
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.Engine == nil {
		return nil, errors.New("rest server: engine is required")
	}
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Service == "" {
		config.Service = "rest_api"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.Service))

	logger := logging.GetAPILogger()
	router.Use(middleware.NewRequestLogger(logger).Handler())

	promMw, err := middleware.NewPrometheusMiddleware("rest_api", config.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	server := &RestServer{
		router:  router,
		engine:  config.Engine,
		port:    config.Port,
		sampler: newProcessSampler(),
		logger:  logger,
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/blocks/:x/:y/:z", rs.handleGetBlock)
		api.POST("/blocks", rs.handleAddBlock)
		api.DELETE("/blocks/:x/:y/:z", rs.handleRemoveBlock)
		api.GET("/columns/:x/:z", rs.handleGetColumn)
		api.GET("/chunks", rs.handleGetChunks)
		api.GET("/actor", rs.handleGetActor)
		api.POST("/streaming", rs.handleSetStreaming)
		api.GET("/stats", rs.handleStats)
	}
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BlockResponse описывает содержимое позиции
type BlockResponse struct {
	Position [3]int        `json:"position"`
	Occupied bool          `json:"occupied"`
	Type     block.BlockID `json:"type"`
}

// AddBlockRequest запрос на установку блока; type — имя или числовой ID
type AddBlockRequest struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Z    int    `json:"z"`
	Type string `json:"type" binding:"required"`
}

// ColumnResponse высота колонны
type ColumnResponse struct {
	X         int  `json:"x"`
	Z         int  `json:"z"`
	TopHeight int  `json:"top_height"`
	Generated bool `json:"generated"`
}

// ChunksResponse список загруженных чанков
type ChunksResponse struct {
	ChunkSize int      `json:"chunk_size"`
	Chunks    [][2]int `json:"chunks"`
}

// ActorResponse состояние актёра
type ActorResponse struct {
	Position      [3]float64 `json:"position"`
	Velocity      [3]float64 `json:"velocity"`
	Grounded      bool       `json:"grounded"`
	Chunk         [2]int     `json:"chunk"`
	Streaming     bool       `json:"streaming"`
	Materializing bool       `json:"materializing"`
}

// StreamingRequest переключает режим подгрузки чанков
type StreamingRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// StatsResponse статистика мира и процесса
type StatsResponse struct {
	Blocks       int          `json:"blocks"`
	LoadedChunks int          `json:"loaded_chunks"`
	Tick         uint64       `json:"tick"`
	Process      ProcessStats `json:"process"`
	ServerTime   int64        `json:"server_time"`
}

// submit выполняет fn в игровом цикле и пишет ошибку очереди в ответ.
// Возвращает false, если ответ уже отправлен.
func (rs *RestServer) submit(c *gin.Context, fn func(*game.Engine)) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout)
	defer cancel()

	err := rs.engine.Submit(ctx, fn)
	switch {
	case err == nil:
		return true
	case errors.Is(err, game.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "Игровой цикл остановлен"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, GenericResponse{Success: false, Message: "Игровой цикл не ответил вовремя"})
	default:
		rs.logger.Warn("⚠️ Ошибка очереди движка: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Внутренняя ошибка сервера"})
	}
	return false
}

// intParams разбирает целочисленные параметры пути
func intParams(c *gin.Context, names ...string) ([]int, bool) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: fmt.Sprintf("Параметр %s должен быть целым числом", name),
			})
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleGetBlock возвращает тип блока в позиции
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	p, ok := intParams(c, "x", "y", "z")
	if !ok {
		return
	}
	pos := vec.Vec3{X: p[0], Y: p[1], Z: p[2]}

	resp := BlockResponse{Position: [3]int{pos.X, pos.Y, pos.Z}, Type: block.AirBlockID}
	if !rs.submit(c, func(e *game.Engine) {
		resp.Type, resp.Occupied = e.State().BlockType(pos)
	}) {
		return
	}
	if !resp.Occupied {
		resp.Type = block.AirBlockID
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок получен", Data: resp})
}

// handleAddBlock ставит блок; отказ редактора — 409
func (rs *RestServer) handleAddBlock(c *gin.Context) {
	var req AddBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}
	id, err := block.Parse(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}

	var res world.EditResult
	if !rs.submit(c, func(e *game.Engine) { res = e.AddBlock(pos, id) }) {
		return
	}
	rs.writeEdit(c, res, http.StatusCreated, "Блок установлен")
}

// handleRemoveBlock удаляет блок; отказ редактора — 409
func (rs *RestServer) handleRemoveBlock(c *gin.Context) {
	p, ok := intParams(c, "x", "y", "z")
	if !ok {
		return
	}
	pos := vec.Vec3{X: p[0], Y: p[1], Z: p[2]}

	var res world.EditResult
	if !rs.submit(c, func(e *game.Engine) { res = e.RemoveBlock(pos) }) {
		return
	}
	rs.writeEdit(c, res, http.StatusOK, "Блок удалён")
}

func (rs *RestServer) writeEdit(c *gin.Context, res world.EditResult, okStatus int, okMessage string) {
	if !res.OK {
		c.JSON(http.StatusConflict, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Правка отклонена: %s", res.Reason),
			Data:    res,
		})
		return
	}
	c.JSON(okStatus, GenericResponse{Success: true, Message: okMessage, Data: res})
}

// handleGetColumn возвращает высоту колонны
func (rs *RestServer) handleGetColumn(c *gin.Context) {
	p, ok := intParams(c, "x", "z")
	if !ok {
		return
	}

	resp := ColumnResponse{X: p[0], Z: p[1]}
	if !rs.submit(c, func(e *game.Engine) {
		col := e.State().Column(resp.X, resp.Z)
		resp.TopHeight = col.TopHeight
		resp.Generated = col.Generated
	}) {
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Колонна получена", Data: resp})
}

// handleGetChunks возвращает загруженные чанки
func (rs *RestServer) handleGetChunks(c *gin.Context) {
	var resp ChunksResponse
	if !rs.submit(c, func(e *game.Engine) {
		resp.ChunkSize = e.Streamer().ChunkSize()
		keys := e.Streamer().LoadedChunks()
		resp.Chunks = make([][2]int, len(keys))
		for i, key := range keys {
			resp.Chunks[i] = [2]int{key.X, key.Y}
		}
	}) {
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Список чанков получен", Data: resp})
}

// handleGetActor возвращает состояние актёра
func (rs *RestServer) handleGetActor(c *gin.Context) {
	var resp ActorResponse
	if !rs.submit(c, func(e *game.Engine) {
		a := e.Actor()
		resp.Position = [3]float64(a.Position)
		resp.Velocity = [3]float64(a.Velocity)
		resp.Grounded = a.Grounded
		key := world.ChunkAt(a.Position.X(), a.Position.Z(), e.Streamer().ChunkSize())
		resp.Chunk = [2]int{key.X, key.Y}
		resp.Streaming = e.Streaming()
		resp.Materializing = e.Materializing()
	}) {
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Состояние актёра получено", Data: resp})
}

// handleSetStreaming включает или выключает стриминг чанков
func (rs *RestServer) handleSetStreaming(c *gin.Context) {
	var req StreamingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}

	var err error
	if !rs.submit(c, func(e *game.Engine) { err = e.SetStreaming(*req.Enabled) }) {
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Режим стриминга изменён"})
}

// handleStats возвращает статистику мира и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	var resp StatsResponse
	var uptime time.Duration
	if !rs.submit(c, func(e *game.Engine) {
		resp.Blocks = e.State().Len()
		resp.LoadedChunks = e.Streamer().LoadedCount()
		resp.Tick = e.TickCount()
		uptime = e.Uptime()
	}) {
		return
	}

	// gopsutil опрашивается вне игрового цикла
	resp.Process = rs.sampler.Sample(uptime)
	resp.ServerTime = time.Now().Unix()

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статистика получена", Data: resp})
}

// Start запускает HTTP сервер в отдельной горутине
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.logger.Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	rs.logger.Info("✅ REST API сервер запущен на http://localhost%s", rs.port)
	rs.logger.Info("📋 Эндпоинты: /health, /metrics, /api/blocks, /api/columns, /api/chunks, /api/actor, /api/streaming, /api/stats")
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (rs *RestServer) Shutdown(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	rs.logger.Info("🛑 Остановка REST API сервера...")
	if err := rs.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown rest server: %w", err)
	}
	rs.logger.Info("✅ REST API сервер остановлен")
	return nil
}
