package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerlinNoise_Deterministic(t *testing.T) {
	a := NewPerlinNoise(42)
	b := NewPerlinNoise(42)

	for i := 0; i < 50; i++ {
		x := float64(i) * 0.37
		y := float64(i) * -0.21
		va := a.Noise2D(x, y)
		assert.Equal(t, va, b.Noise2D(x, y), "одинаковый сид должен давать одинаковый шум")
		assert.GreaterOrEqual(t, va, -1.0)
		assert.LessOrEqual(t, va, 1.0)
		assert.InDelta(t, (va+1)/2, a.Noise01(x, y), 1e-12)
	}
	assert.Equal(t, int64(42), a.Seed())
}

func TestConstantNoise(t *testing.T) {
	assert.Equal(t, 0.5, ConstantNoise(0.5).Noise2D(10, -3))
	assert.Equal(t, 1.0, ConstantNoise(3).Noise2D(0, 0), "значение ограничивается диапазоном")
	assert.Equal(t, 0.25, NoiseFunc(func(x, y float64) float64 { return 0.25 }).Noise2D(1, 1))
}
