package physics

import (
	"math"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
)

// maxStepDistance — наибольшее смещение за один подшаг; меньше половины блока,
// поэтому быстрое падение не проскакивает сквозь тонкий пол
const maxStepDistance = 0.45

// MaxDelta — наибольший шаг времени, который Step обрабатывает за вызов
const MaxDelta = 0.1

// maxSubSteps ограничивает число подшагов за вызов Step
const maxSubSteps = 256

// maxAxisSpeed — предельная скорость по оси, при которой подшаги ещё не длиннее maxStepDistance
const maxAxisSpeed = maxStepDistance * maxSubSteps / MaxDelta

// Config константы движения
type Config struct {
	Gravity       float64
	JumpSpeed     float64
	Speed         float64
	RunMultiplier float64
	Damping       float64 // множитель горизонтальной скорости без ввода
	SearchRadius  int     // радиус окрестности проверяемых блоков
}

// DefaultConfig возвращает стандартные константы движения
func DefaultConfig() Config {
	return Config{
		Gravity:       25,
		JumpSpeed:     10,
		Speed:         3,
		RunMultiplier: 2,
		Damping:       0.8,
		SearchRadius:  3,
	}
}

// Input — ввод игрока за тик
type Input struct {
	Direction mgl64.Vec2 // направление по X и Z
	Run       bool
	Jump      bool
}

// StepResult сообщает, по каким осям движение было остановлено
type StepResult struct {
	Blocked [3]bool
}

// Actor — динамическое тело игрока
type Actor struct {
	BoxCollider
	Position mgl64.Vec3 // точка ступней
	Velocity mgl64.Vec3
	Grounded bool
}

// NewActor создаёт актёра в точке pos
func NewActor(collider BoxCollider, pos mgl64.Vec3) *Actor {
	return &Actor{BoxCollider: collider, Position: pos}
}

// Box возвращает текущий объём актёра
func (a *Actor) Box() world.Box {
	return a.BoxAt(a.Position)
}

// Resolver двигает актёра по осям X, Y, Z по отдельности, отклоняя
// перемещения в непроходимые блоки, за границу мира и в незагруженные чанки
type Resolver struct {
	blocks BlockReader
	loaded LoadedChecker
	bounds world.Bounds
	cfg    Config
	logger *logging.Logger
}

// NewResolver создаёт решатель столкновений. loaded может быть nil — тогда все чанки считаются загруженными.
func NewResolver(blocks BlockReader, loaded LoadedChecker, bounds world.Bounds, cfg Config) *Resolver {
	return &Resolver{
		blocks: blocks,
		loaded: loaded,
		bounds: bounds,
		cfg:    cfg,
		logger: logging.GetPhysicsLogger(),
	}
}

// Config возвращает константы движения
func (r *Resolver) Config() Config {
	return r.cfg
}

// passable проверяет, можно ли пройти сквозь позицию
func (r *Resolver) passable(pos vec.Vec3) bool {
	id, ok := r.blocks.Get(pos)
	return !ok || block.IsPassable(id)
}

// CanOccupy проверяет, может ли актёр стоять в точке pos
func (r *Resolver) CanOccupy(a *Actor, pos mgl64.Vec3) bool {
	box := a.BoxAt(pos)
	if !r.bounds.ContainsBox(box) {
		return false
	}
	if r.loaded != nil && !r.loaded.IsLoadedAt(pos.X(), pos.Z()) {
		return false
	}
	return CanMoveToPosition(box, r.cfg.SearchRadius, roundVec3(pos), r.passable)
}

// Step продвигает актёра на delta секунд
// Неположительный или не конечный delta ничего не меняет, больший MaxDelta урезается.
func (r *Resolver) Step(a *Actor, in Input, delta float64) StepResult {
	var result StepResult
	if !(delta > 0) || math.IsInf(delta, 1) {
		r.logger.Warn("⚠️ Шаг физики пропущен: delta=%v", delta)
		return result
	}
	delta = math.Min(delta, MaxDelta)

	if in.Direction.Len() > 0 {
		dir := in.Direction.Normalize()
		speed := r.cfg.Speed
		if in.Run {
			speed *= r.cfg.RunMultiplier
		}
		a.Velocity[0] = dir.X() * speed
		a.Velocity[2] = dir.Y() * speed
	} else {
		a.Velocity[0] *= r.cfg.Damping
		a.Velocity[2] *= r.cfg.Damping
	}

	if in.Jump && a.Grounded {
		a.Velocity[1] = r.cfg.JumpSpeed
		a.Grounded = false
	}
	a.Velocity[1] -= r.cfg.Gravity * delta
	clampVelocity(&a.Velocity)

	move := a.Velocity.Mul(delta)
	steps := int(math.Ceil(math.Max(math.Abs(move.X()), math.Max(math.Abs(move.Y()), math.Abs(move.Z()))) / maxStepDistance))
	steps = min(max(steps, 1), maxSubSteps)
	sub := delta / float64(steps)

	for i := 0; i < steps; i++ {
		for axis := 0; axis < 3; axis++ {
			if result.Blocked[axis] {
				continue
			}
			r.moveAxis(a, axis, sub, &result)
		}
	}
	return result
}

// clampVelocity обнуляет не конечные компоненты и ограничивает остальные maxAxisSpeed
func clampVelocity(v *mgl64.Vec3) {
	for i := range v {
		switch {
		case math.IsNaN(v[i]) || math.IsInf(v[i], 0):
			v[i] = 0
		case v[i] > maxAxisSpeed:
			v[i] = maxAxisSpeed
		case v[i] < -maxAxisSpeed:
			v[i] = -maxAxisSpeed
		}
	}
}

func (r *Resolver) moveAxis(a *Actor, axis int, delta float64, result *StepResult) {
	shift := a.Velocity[axis] * delta
	if shift == 0 {
		return
	}

	candidate := a.Position
	candidate[axis] += shift
	if r.CanOccupy(a, candidate) {
		a.Position = candidate
		if axis == 1 {
			a.Grounded = false
		}
		return
	}

	if axis == 1 && a.Velocity[1] < 0 {
		a.Grounded = true
	}
	a.Velocity[axis] = 0
	result.Blocked[axis] = true
}
