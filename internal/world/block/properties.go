package block

// Properties описывает статические свойства типа блока
type Properties struct {
	ID             BlockID
	Name           string
	Passable       bool // сквозь блок можно проходить (коллизии игнорируют его)
	Liquid         bool
	Indestructible bool // игрок не может удалить блок
	Terrain        bool // блок создаётся генератором ландшафта
}

// IsPassable возвращает true для блоков, не участвующих в коллизиях.
// Воздух тоже проходим.
func IsPassable(id BlockID) bool {
	if id == AirBlockID {
		return true
	}
	props, ok := registry[id]
	return ok && props.Passable
}

// IsIndestructible возвращает true, если блок нельзя удалить
func IsIndestructible(id BlockID) bool {
	props, ok := registry[id]
	return ok && props.Indestructible
}

func init() {
	Register(AirBlockID, Properties{Name: "Air", Passable: true})
	Register(BedrockBlockID, Properties{Name: "Bedrock", Indestructible: true, Terrain: true})
	Register(StoneBlockID, Properties{Name: "Stone", Terrain: true})
	Register(DirtBlockID, Properties{Name: "Dirt", Terrain: true})
	Register(GrassBlockID, Properties{Name: "Grass", Terrain: true})
	Register(SandBlockID, Properties{Name: "Sand", Terrain: true})
	Register(SnowBlockID, Properties{Name: "Snow", Terrain: true})
	Register(WaterBlockID, Properties{Name: "Water", Passable: true, Liquid: true, Terrain: true})
	Register(TrunkBlockID, Properties{Name: "Trunk"})
	Register(LeavesBlockID, Properties{Name: "Leaves"})
	Register(PurpleLeavesBlockID, Properties{Name: "PurpleLeaves"})
	Register(TorchBlockID, Properties{Name: "Torch", Passable: true})
	Register(GlassBlockID, Properties{Name: "Glass"})
	Register(WhiteWoodBlockID, Properties{Name: "WhiteWood"})
	Register(BrickBlockID, Properties{Name: "Brick"})
}
