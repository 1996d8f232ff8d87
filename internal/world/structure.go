package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoStructures — источник не вернул ни одного определения
	ErrNoStructures = errors.New("no structure definitions")
	// ErrMalformedStructure — определение нельзя разместить
	ErrMalformedStructure = errors.New("malformed structure")
)

// StructureKind вид структуры
type StructureKind uint8

const (
	KindTree StructureKind = iota
	KindBuilding
)

func (k StructureKind) String() string {
	if k == KindBuilding {
		return "building"
	}
	return "tree"
}

// Voxel — блок структуры в локальных координатах определения
type Voxel struct {
	X    int           `yaml:"x" json:"x"`
	Y    int           `yaml:"y" json:"y"`
	Z    int           `yaml:"z" json:"z"`
	Type block.BlockID `yaml:"type" json:"type"`
}

// Pos возвращает локальную позицию вокселя
func (v Voxel) Pos() vec.Vec3 {
	return vec.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// Structure — определение дерева или здания
type Structure struct {
	Name   string        `yaml:"name"`
	Kind   StructureKind `yaml:"-"`
	Voxels []Voxel       `yaml:"voxels"`
}

// Anchor возвращает опорную точку определения: для деревьев — самый нижний
// воксель ствола, для зданий — минимальный угол
func (s *Structure) Anchor() (vec.Vec3, error) {
	if len(s.Voxels) == 0 {
		return vec.Vec3{}, fmt.Errorf("%w: %s has no voxels", ErrMalformedStructure, s.Name)
	}

	if s.Kind == KindBuilding {
		lo, _ := s.extent()
		return lo, nil
	}

	found := false
	var anchor vec.Vec3
	for _, v := range s.Voxels {
		if v.Type != block.TrunkBlockID {
			continue
		}
		if !found || v.Y < anchor.Y {
			anchor = v.Pos()
			found = true
		}
	}
	if !found {
		return vec.Vec3{}, fmt.Errorf("%w: tree %s has no trunk", ErrMalformedStructure, s.Name)
	}
	return anchor, nil
}

// Validate проверяет, что определение можно разместить
func (s *Structure) Validate() error {
	if _, err := s.Anchor(); err != nil {
		return err
	}
	for _, v := range s.Voxels {
		if v.Type == block.AirBlockID || !block.IsValidBlockID(v.Type) {
			return fmt.Errorf("%w: %s has invalid block type %d", ErrMalformedStructure, s.Name, v.Type)
		}
	}
	return nil
}

// Size возвращает размеры ограничивающего параллелепипеда (по X, Y, Z)
func (s *Structure) Size() vec.Vec3 {
	if len(s.Voxels) == 0 {
		return vec.Vec3{}
	}
	lo, hi := s.extent()
	return vec.Vec3{X: hi.X - lo.X + 1, Y: hi.Y - lo.Y + 1, Z: hi.Z - lo.Z + 1}
}

func (s *Structure) extent() (lo, hi vec.Vec3) {
	lo, hi = s.Voxels[0].Pos(), s.Voxels[0].Pos()
	for _, v := range s.Voxels[1:] {
		lo = vec.Vec3{X: min(lo.X, v.X), Y: min(lo.Y, v.Y), Z: min(lo.Z, v.Z)}
		hi = vec.Vec3{X: max(hi.X, v.X), Y: max(hi.Y, v.Y), Z: max(hi.Z, v.Z)}
	}
	return lo, hi
}

// Place переносит воксели в мир так, что опорная точка совпадает с origin
func (s *Structure) Place(anchor, origin vec.Vec3) []Voxel {
	out := make([]Voxel, len(s.Voxels))
	for i, v := range s.Voxels {
		out[i] = Voxel{
			X:    origin.X + v.X - anchor.X,
			Y:    origin.Y + v.Y - anchor.Y,
			Z:    origin.Z + v.Z - anchor.Z,
			Type: v.Type,
		}
	}
	return out
}

// StructureSource поставляет определения структур
type StructureSource interface {
	Load() ([]*Structure, error)
}

// StaticSource — набор определений в памяти
type StaticSource []*Structure

func (s StaticSource) Load() ([]*Structure, error) {
	if len(s) == 0 {
		return nil, ErrNoStructures
	}
	return s, nil
}

// DirSource читает все *.json / *.yaml / *.yml файлы каталога
type DirSource struct {
	Dir  string
	Kind StructureKind
}

func (d DirSource) Load() ([]*Structure, error) {
	return LoadStructureDir(d.Dir, d.Kind)
}

// LoadStructureFile читает определение из JSON или YAML файла.
// Файл — либо список вокселей, либо объект {name, voxels}.
func LoadStructureFile(path string, kind StructureKind) (*Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read structure %s: %w", path, err)
	}

	s, err := ParseStructure(data, kind)
	if err != nil {
		return nil, fmt.Errorf("parse structure %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// ParseStructure разбирает определение структуры (JSON — подмножество YAML)
func ParseStructure(data []byte, kind StructureKind) (*Structure, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedStructure)
	}

	s := &Structure{Kind: kind}
	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&s.Voxels); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		if err := doc.Decode(s); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: expected list or mapping", ErrMalformedStructure)
	}
	return s, nil
}

// LoadStructureDir читает все определения каталога в порядке имён файлов
func LoadStructureDir(dir string, kind StructureKind) ([]*Structure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read structure dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]*Structure, 0, len(names))
	for _, name := range names {
		s, err := LoadStructureFile(filepath.Join(dir, name), kind)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoStructures)
	}
	return out, nil
}
