package block

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BlockID представляет идентификатор типа блока.
// Множество типов замкнуто: новые ID добавляются только здесь.
type BlockID uint16

// Константы ID блоков
const (
	// AirBlockID означает отсутствие блока и никогда не хранится в мире
	AirBlockID BlockID = iota // 0
	BedrockBlockID
	StoneBlockID
	DirtBlockID
	GrassBlockID
	SandBlockID
	SnowBlockID
	WaterBlockID
	TrunkBlockID
	LeavesBlockID
	PurpleLeavesBlockID
	TorchBlockID
	GlassBlockID
	WhiteWoodBlockID
	BrickBlockID

	maxBlockID // всегда последний
)

var (
	registry = make(map[BlockID]Properties)
	byName   = make(map[string]BlockID)
)

// Register добавляет свойства блока в регистр
func Register(id BlockID, props Properties) {
	props.ID = id
	registry[id] = props
	byName[strings.ToLower(props.Name)] = id
}

// Get возвращает свойства для указанного ID
func Get(id BlockID) (Properties, bool) {
	props, exists := registry[id]
	return props, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func IsValidBlockID(id BlockID) bool {
	_, exists := registry[id]
	return exists
}

// All возвращает все зарегистрированные ID, кроме воздуха, по возрастанию
func All() []BlockID {
	ids := make([]BlockID, 0, len(registry))
	for id := range registry {
		if id != AirBlockID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Parse разбирает имя блока (без учёта регистра) или его числовой ID
func Parse(s string) (BlockID, error) {
	s = strings.TrimSpace(s)
	if id, ok := byName[strings.ToLower(s)]; ok {
		return id, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		id := BlockID(n)
		if n >= 0 && IsValidBlockID(id) {
			return id, nil
		}
	}
	return AirBlockID, fmt.Errorf("неизвестный тип блока %q", s)
}

// String возвращает имя блока
func (id BlockID) String() string {
	if props, ok := registry[id]; ok {
		return props.Name
	}
	return fmt.Sprintf("Block(%d)", uint16(id))
}

// MarshalText кодирует ID как имя блока (JSON, ключи карт)
func (id BlockID) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(id.String())), nil
}

// UnmarshalText принимает имя или число
func (id *BlockID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UnmarshalYAML принимает скаляр с именем или числом
func (id *BlockID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("строка %d: тип блока должен быть скаляром", node.Line)
	}
	return id.UnmarshalText([]byte(node.Value))
}
