package vec

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorDiv(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{0, 6, 0},
		{5, 6, 0},
		{6, 6, 1},
		{-1, 6, -1},
		{-6, 6, -1},
		{-7, 6, -2},
		{-125, 6, -21},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FloorDiv(c.a, c.b), "FloorDiv(%d, %d)", c.a, c.b)
		assert.True(t, FloorMod(c.a, c.b) >= 0 && FloorMod(c.a, c.b) < c.b, "остаток вне диапазона")
	}
}

func TestVec3_ChunkAndColumn(t *testing.T) {
	p := Vec3{X: -1, Y: 12, Z: 13}
	assert.Equal(t, Vec2{X: -1, Y: 2}, p.Chunk(6))
	assert.Equal(t, Vec2{X: -1, Y: 13}, p.Column())
	assert.Equal(t, Vec2{X: 5, Y: 1}, p.Column().LocalInChunk(6))
}

func TestVec3_Ordering(t *testing.T) {
	positions := []Vec3{{1, 0, 0}, {0, 2, 0}, {0, 1, 5}, {0, 1, 1}}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })
	assert.Equal(t, []Vec3{{0, 1, 1}, {0, 1, 5}, {0, 2, 0}, {1, 0, 0}}, positions)

	// Позиции пригодны как ключи карты
	set := map[Vec3]struct{}{{1, 2, 3}: {}}
	_, ok := set[Vec3{X: 1, Y: 2, Z: 3}]
	assert.True(t, ok)
}
