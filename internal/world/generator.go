package world

import (
	"math"

	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/world/block"
)

// TerrainConfig параметры процедурного ландшафта
type TerrainConfig struct {
	Amplitude     float64
	Frequency     float64
	BaseHeight    int
	MaxHeight     int // верхняя граница высоты ландшафта
	SeaLevel      int
	SnowThreshold int
	DirtDepth     int
}

// DefaultTerrainConfig возвращает параметры стандартной карты
func DefaultTerrainConfig() TerrainConfig {
	return TerrainConfig{
		Amplitude:     30,
		Frequency:     0.04,
		BaseHeight:    1,
		MaxHeight:     30,
		SeaLevel:      10,
		SnowThreshold: 25,
		DirtDepth:     3,
	}
}

// ColumnBlock — один блок сгенерированной колонны
type ColumnBlock struct {
	Y    int
	Type block.BlockID
}

// ColumnGenerator производит блоки колонны по мировым координатам
type ColumnGenerator interface {
	GenerateColumn(worldX, worldZ int) []ColumnBlock
}

// TerrainGenerator генерирует колонны ландшафта по карте высот из шума.
// Чистая функция координат: ничего не знает о чанках и мире.
type TerrainGenerator struct {
	cfg   TerrainConfig
	noise util.Noise2D
}

// NewTerrainGenerator создаёт генератор
func NewTerrainGenerator(cfg TerrainConfig, noise util.Noise2D) *TerrainGenerator {
	return &TerrainGenerator{cfg: cfg, noise: noise}
}

// Config возвращает параметры генератора
func (g *TerrainGenerator) Config() TerrainConfig {
	return g.cfg
}

// SurfaceHeight возвращает высоту ландшафта в колонне
func (g *TerrainGenerator) SurfaceHeight(worldX, worldZ int) int {
	n := g.noise.Noise2D(float64(worldX)*g.cfg.Frequency, float64(worldZ)*g.cfg.Frequency)
	height := int(math.Floor(n*g.cfg.Amplitude)) + g.cfg.BaseHeight
	if height > g.cfg.MaxHeight {
		height = g.cfg.MaxHeight
	}
	return height
}

// GenerateColumn возвращает блоки колонны, упорядоченные по y
func (g *TerrainGenerator) GenerateColumn(worldX, worldZ int) []ColumnBlock {
	height := g.SurfaceHeight(worldX, worldZ)
	sea := g.cfg.SeaLevel

	out := make([]ColumnBlock, 0, max(height, sea)+1)
	out = append(out, ColumnBlock{Y: 0, Type: block.BedrockBlockID})

	// Низина: земля под водой до уровня моря
	if height < sea {
		for y := 1; y < height; y++ {
			out = append(out, ColumnBlock{Y: y, Type: block.DirtBlockID})
		}
		for y := max(height, 1); y < sea; y++ {
			out = append(out, ColumnBlock{Y: y, Type: block.WaterBlockID})
		}
		return out
	}

	surface := g.surfaceBlock(height)
	for y := 1; y < height; y++ {
		switch {
		case y == height-1:
			out = append(out, ColumnBlock{Y: y, Type: surface})
		case y >= height-1-g.cfg.DirtDepth:
			out = append(out, ColumnBlock{Y: y, Type: block.DirtBlockID})
		default:
			out = append(out, ColumnBlock{Y: y, Type: block.StoneBlockID})
		}
	}
	return out
}

func (g *TerrainGenerator) surfaceBlock(height int) block.BlockID {
	switch {
	case height <= g.cfg.SeaLevel:
		return block.GrassBlockID
	case height == g.cfg.SeaLevel+1:
		return block.SandBlockID
	case height >= g.cfg.SnowThreshold:
		return block.SnowBlockID
	default:
		return block.GrassBlockID
	}
}
