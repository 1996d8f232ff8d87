package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// Noise2D — источник когерентного шума.
// Реализация обязана быть чистой: одинаковые аргументы дают одинаковый результат.
type Noise2D interface {
	// Noise2D возвращает значение в диапазоне [-1, 1]
	Noise2D(x, y float64) float64
}

// PerlinNoise оборачивает perlin.Perlin с фиксированным сидом
type PerlinNoise struct {
	seed int64
	p    *perlin.Perlin
}

// NewPerlinNoise создаёт генератор шума Перлина с указанным сидом
func NewPerlinNoise(seed int64) *PerlinNoise {
	return &PerlinNoise{
		seed: seed,
		p:    perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *PerlinNoise) Seed() int64 {
	return n.seed
}

// Noise2D возвращает значение шума Перлина, ограниченное диапазоном [-1, 1]
func (n *PerlinNoise) Noise2D(x, y float64) float64 {
	return Clamp(n.p.Noise2D(x, y), -1, 1)
}

// Noise01 возвращает значение шума в диапазоне от 0 до 1
func (n *PerlinNoise) Noise01(x, y float64) float64 {
	return (n.Noise2D(x, y) + 1.0) / 2.0
}

// ConstantNoise возвращает одно и то же значение для любых координат.
// Удобен для плоских миров и тестов.
type ConstantNoise float64

// Noise2D возвращает постоянное значение
func (c ConstantNoise) Noise2D(x, y float64) float64 {
	return Clamp(float64(c), -1, 1)
}

// NoiseFunc адаптирует функцию к интерфейсу Noise2D
type NoiseFunc func(x, y float64) float64

// Noise2D вызывает функцию
func (f NoiseFunc) Noise2D(x, y float64) float64 {
	return f(x, y)
}

// Clamp ограничивает значение отрезком [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
