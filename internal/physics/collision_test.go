package physics

import (
	"math"
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 1.0 / 60

type loadedFunc func(x, z float64) bool

func (f loadedFunc) IsLoadedAt(x, z float64) bool { return f(x, z) }

// floorWorld создаёт каменный пол на y=0 в квадрате [-n, n]
func floorWorld(n int) *world.State {
	s := world.NewState()
	for x := -n; x <= n; x++ {
		for z := -n; z <= n; z++ {
			s.Set(vec.Vec3{X: x, Y: 0, Z: z}, block.StoneBlockID)
		}
	}
	return s
}

func newTestActor(x, y, z float64) *Actor {
	return NewActor(NewBoxCollider(0.6, 0.6, 1.6), mgl64.Vec3{x, y, z})
}

func run(r *Resolver, a *Actor, in Input, ticks int) StepResult {
	var last StepResult
	for i := 0; i < ticks; i++ {
		last = r.Step(a, in, tick)
	}
	return last
}

func TestResolver_FallsAndLands(t *testing.T) {
	r := NewResolver(floorWorld(4), nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(0, 3, 0)

	res := run(r, a, Input{}, 90)

	assert.True(t, a.Grounded, "Актёр должен стоять на полу")
	assert.True(t, res.Blocked[1])
	assert.InDelta(t, 1.0, a.Position.Y(), 0.05, "Ступни на верхней грани камня")
	assert.Equal(t, 0.0, a.Velocity.Y())
}

func TestResolver_WaterIsPassable(t *testing.T) {
	s := floorWorld(4)
	s.Set(vec.Vec3{X: 0, Y: 1, Z: 0}, block.WaterBlockID)
	s.Set(vec.Vec3{X: 0, Y: 2, Z: 0}, block.WaterBlockID)
	r := NewResolver(s, nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(0, 4, 0)

	run(r, a, Input{}, 120)
	assert.InDelta(t, 1.0, a.Position.Y(), 0.05, "Актёр проходит сквозь воду до камня")
}

func TestResolver_StoneWallBlocksX(t *testing.T) {
	s := floorWorld(6)
	for _, z := range []int{-1, 0, 1} {
		for y := 1; y <= 2; y++ {
			s.Set(vec.Vec3{X: 2, Y: y, Z: z}, block.StoneBlockID)
		}
	}
	r := NewResolver(s, nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(0, 1, 0)

	blocked := false
	for i := 0; i < 120; i++ {
		res := r.Step(a, Input{Direction: mgl64.Vec2{1, 0}}, tick)
		blocked = blocked || res.Blocked[0]
	}

	assert.True(t, blocked, "Стена должна остановить движение по X")
	assert.LessOrEqual(t, a.Position.X(), 1.2+1e-9, "Коробка актёра не заходит в стену")
	assert.Greater(t, a.Position.X(), 1.0)
	assert.Equal(t, 0.0, a.Position.Z(), "Движение по Z не затронуто")
}

func TestResolver_TorchIsPassable(t *testing.T) {
	s := floorWorld(6)
	s.Set(vec.Vec3{X: 2, Y: 1, Z: 0}, block.TorchBlockID)
	r := NewResolver(s, nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(0, 1, 0)

	run(r, a, Input{Direction: mgl64.Vec2{1, 0}}, 90)
	assert.Greater(t, a.Position.X(), 3.0, "Факел не мешает проходу")
}

func TestResolver_WorldBounds(t *testing.T) {
	r := NewResolver(floorWorld(6), nil, world.Bounds{HalfExtent: 5, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(-4, 1, 0)

	run(r, a, Input{Direction: mgl64.Vec2{-1, 0}, Run: true}, 120)
	assert.GreaterOrEqual(t, a.Position.X(), -5.2-1e-9, "Актёр не выходит за край мира")
}

func TestResolver_UnloadedChunkCollides(t *testing.T) {
	loaded := loadedFunc(func(x, _ float64) bool { return x < 2 })
	r := NewResolver(floorWorld(6), loaded, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(0, 1, 0)

	run(r, a, Input{Direction: mgl64.Vec2{1, 0}}, 120)
	assert.Less(t, a.Position.X(), 2.0, "Незагруженный чанк непроходим")
}

func TestResolver_Jump(t *testing.T) {
	r := NewResolver(floorWorld(4), nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(0, 1, 0)
	run(r, a, Input{}, 2)
	require.True(t, a.Grounded)

	r.Step(a, Input{Jump: true}, tick)
	assert.False(t, a.Grounded)
	assert.Greater(t, a.Position.Y(), 1.0)

	r.Step(a, Input{Jump: true}, tick)
	assert.Less(t, a.Velocity.Y(), 10.0, "В воздухе прыжок не повторяется")
}

func TestResolver_DampingWithoutInput(t *testing.T) {
	r := NewResolver(floorWorld(8), nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(0, 1, 0)
	r.Step(a, Input{Direction: mgl64.Vec2{0, 1}, Run: true}, tick)
	assert.InDelta(t, 6.0, a.Velocity.Z(), 1e-9, "Бег удваивает скорость")

	r.Step(a, Input{}, tick)
	assert.InDelta(t, 4.8, a.Velocity.Z(), 1e-9)
}

func TestResolver_NoTunnelingAtHighSpeed(t *testing.T) {
	r := NewResolver(floorWorld(4), nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())
	a := newTestActor(0, 3, 0)
	a.Velocity[1] = -300

	r.Step(a, Input{}, tick)
	assert.GreaterOrEqual(t, a.Position.Y(), 1.0, "Быстрое падение не проходит сквозь пол")
	assert.True(t, a.Grounded)
}

func TestResolver_RejectsBadDelta(t *testing.T) {
	r := NewResolver(floorWorld(4), nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())

	for _, delta := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		a := newTestActor(0, 3, 0)
		res := r.Step(a, Input{Direction: mgl64.Vec2{1, 0}}, delta)
		assert.Equal(t, StepResult{}, res)
		assert.Equal(t, mgl64.Vec3{0, 3, 0}, a.Position, "delta=%v не должен двигать актёра", delta)
	}
}

func TestResolver_HugeDeltaAndSpeedAreBounded(t *testing.T) {
	r := NewResolver(floorWorld(4), nil, world.Bounds{HalfExtent: 10, MaxHeight: 64}, DefaultConfig())

	a := newTestActor(0, 3, 0)
	a.Velocity[1] = math.Inf(-1)
	a.Velocity[0] = math.NaN()
	r.Step(a, Input{}, 1e9)
	assert.False(t, math.IsNaN(a.Position.X()), "Не конечная скорость обнуляется")
	assert.InDelta(t, 0.0, a.Position.X(), 1e-9)
	assert.GreaterOrEqual(t, a.Position.Y(), 1.0, "Шаг урезан, пол не пробит")

	b := newTestActor(0, 3, 0)
	b.Velocity[1] = -1e300
	r.Step(b, Input{}, MaxDelta)
	assert.GreaterOrEqual(t, b.Position.Y(), 1.0)
	assert.True(t, b.Grounded)
	assert.LessOrEqual(t, math.Abs(b.Velocity.Y()), maxAxisSpeed)
}

func TestIntersects(t *testing.T) {
	a := newTestActor(0, 1, 0)
	assert.True(t, Intersects(a.Box(), vec.Vec3{X: 0, Y: 1, Z: 0}))
	assert.False(t, Intersects(a.Box(), vec.Vec3{X: 0, Y: 0, Z: 0}), "Пол под ногами не пересекает актёра")
	assert.False(t, Intersects(a.Box(), vec.Vec3{X: 1, Y: 1, Z: 0}))
}
