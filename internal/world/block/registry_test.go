package block

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRegistry_AllRegistered(t *testing.T) {
	for id := BedrockBlockID; id < maxBlockID; id++ {
		assert.True(t, IsValidBlockID(id), "блок %d должен быть зарегистрирован", id)
	}
	assert.Len(t, All(), int(maxBlockID)-1, "All не должен возвращать воздух")
}

func TestRegistry_Flags(t *testing.T) {
	assert.True(t, IsIndestructible(BedrockBlockID))
	assert.False(t, IsIndestructible(StoneBlockID))
	assert.True(t, IsPassable(WaterBlockID))
	assert.True(t, IsPassable(AirBlockID))
	assert.False(t, IsPassable(StoneBlockID))
}

func TestParse(t *testing.T) {
	id, err := Parse("trunk")
	require.NoError(t, err)
	assert.Equal(t, TrunkBlockID, id)

	id, err = Parse(" PurpleLeaves ")
	require.NoError(t, err)
	assert.Equal(t, PurpleLeavesBlockID, id)

	id, err = Parse("2")
	require.NoError(t, err)
	assert.Equal(t, StoneBlockID, id)

	_, err = Parse("obsidian")
	assert.Error(t, err)
	_, err = Parse("999")
	assert.Error(t, err)
}

func TestBlockID_Encoding(t *testing.T) {
	data, err := json.Marshal(map[string]BlockID{"type": GlassBlockID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"glass"}`, string(data))

	var v struct {
		Type BlockID `yaml:"type"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("type: brick"), &v))
	assert.Equal(t, BrickBlockID, v.Type)
	require.NoError(t, yaml.Unmarshal([]byte("type: 3"), &v))
	assert.Equal(t, DirtBlockID, v.Type)
	assert.Error(t, yaml.Unmarshal([]byte("type: [1]"), &v))
}
