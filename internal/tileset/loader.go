package tileset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TilesetConfig represents the structure of a tileset YAML file.
type TilesetConfig struct {
	Name  string           `yaml:"name"`
	Tiles []TileConfigYAML `yaml:"tiles"`
}

// TileConfigYAML represents a single authored tile in the YAML config.
// Layers are listed bottom to top; each layer holds GridSize rows (z
// order), each row GridSize characters (x order): '.' empty, '#' solid,
// '^' stair marker.
type TileConfigYAML struct {
	Name               string       `yaml:"name"`
	ID                 int          `yaml:"id"`
	Weight             float64      `yaml:"weight"`
	Rotations          []int        `yaml:"rotations"`
	ExpandRotations    bool         `yaml:"expand_rotations"`
	Role               string       `yaml:"role"`
	StairRole          string       `yaml:"stair_role"`
	TravelAxis         string       `yaml:"travel_axis"`
	TravelDir          int          `yaml:"travel_dir"`
	RequireSolidBelow  bool         `yaml:"require_solid_below"`
	RequiredAboveEmpty []VoxelCoord `yaml:"required_above_empty"`
	Layers             [][]string   `yaml:"layers"`
}

// LoadFromYAML loads a tileset registry from a YAML file.
func LoadFromYAML(filename string) (*Registry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read tileset file: %w", err)
	}

	var config TilesetConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse tileset YAML: %w", err)
	}

	return CreateRegistry(&config)
}

// CreateRegistry creates a registry from a parsed tileset configuration.
func CreateRegistry(config *TilesetConfig) (*Registry, error) {
	if config == nil || len(config.Tiles) == 0 {
		return nil, fmt.Errorf("tileset configuration is empty")
	}

	var protos []*Prototype
	for i, def := range config.Tiles {
		proto, err := tileFromConfig(&def, i)
		if err != nil {
			return nil, fmt.Errorf("tile %q: %w", def.Name, err)
		}

		if def.ExpandRotations {
			for turns := 0; turns < 4; turns++ {
				protos = append(protos, rotateVariant(proto, turns))
			}
		} else {
			protos = append(protos, proto)
		}
	}

	reg, err := NewRegistry(protos)
	if err != nil {
		return nil, err
	}
	reg.name = config.Name
	return reg, nil
}

// tileFromConfig builds the unrotated prototype for a tile definition.
func tileFromConfig(def *TileConfigYAML, position int) (*Prototype, error) {
	voxels, err := parseLayers(def.Layers)
	if err != nil {
		return nil, err
	}

	tileID := def.ID
	if tileID == 0 {
		tileID = position + 1
	}

	meta := Meta{
		Role:               parseRole(def.Role),
		StairRole:          parseStairRole(def.StairRole),
		Axis:               parseTravelAxis(def.TravelAxis),
		Dir:                def.TravelDir,
		Weight:             def.Weight,
		RequiredAboveEmpty: def.RequiredAboveEmpty,
		RequireSolidBelow:  def.RequireSolidBelow,
	}

	if meta.Role == RoleStair && meta.Dir == 0 {
		meta.Dir = 1
	}

	return &Prototype{
		TileID:    tileID,
		Name:      def.Name,
		Voxels:    voxels,
		Rotations: def.Rotations,
		Meta:      meta,
	}, nil
}

// rotateVariant derives the rotation variant of a prototype: voxels,
// stair travel direction, and headroom coordinates all turn together.
func rotateVariant(p *Prototype, turns int) *Prototype {
	if turns == 0 {
		clone := *p
		return &clone
	}

	v := *p
	v.Voxels = p.Voxels.RotateY(turns)
	v.Rotation = turns

	axis, dir := p.Meta.Axis, p.Meta.Dir
	above := make([]VoxelCoord, len(p.Meta.RequiredAboveEmpty))
	copy(above, p.Meta.RequiredAboveEmpty)

	for t := 0; t < turns; t++ {
		// One clockwise quarter turn maps +x to +z and +z to -x.
		if axis == TravelX {
			axis = TravelZ
		} else {
			axis = TravelX
			dir = -dir
		}
		for i, c := range above {
			above[i] = VoxelCoord{X: GridSize - 1 - c.Z, Y: c.Y, Z: c.X}
		}
	}

	v.Meta.Axis = axis
	v.Meta.Dir = dir
	v.Meta.RequiredAboveEmpty = above
	return &v
}

// parseLayers converts the YAML layer strings into a voxel grid.
func parseLayers(layers [][]string) (VoxelGrid, error) {
	var g VoxelGrid
	if len(layers) != GridSize {
		return g, fmt.Errorf("expected %d layers, got %d", GridSize, len(layers))
	}
	for y, layer := range layers {
		if len(layer) != GridSize {
			return g, fmt.Errorf("layer %d: expected %d rows, got %d", y, GridSize, len(layer))
		}
		for z, row := range layer {
			if len(row) != GridSize {
				return g, fmt.Errorf("layer %d row %d: expected %d cells, got %d", y, z, GridSize, len(row))
			}
			for x := 0; x < GridSize; x++ {
				switch row[x] {
				case '.':
					g.Set(x, y, z, VoxelEmpty)
				case '#':
					g.Set(x, y, z, VoxelSolid)
				case '^':
					g.Set(x, y, z, VoxelStair)
				default:
					return g, fmt.Errorf("layer %d row %d: unknown voxel character %q", y, z, string(row[x]))
				}
			}
		}
	}
	return g, nil
}

// parseRole converts a string to the appropriate prototype role.
func parseRole(s string) Role {
	switch s {
	case "stair":
		return RoleStair
	default:
		return RoleNone
	}
}

// parseStairRole converts a string to the appropriate stair role.
func parseStairRole(s string) StairRole {
	switch s {
	case "lower":
		return StairLower
	case "upper":
		return StairUpper
	default:
		return StairNone
	}
}

// parseTravelAxis converts a string to the appropriate travel axis.
func parseTravelAxis(s string) TravelAxis {
	switch s {
	case "z":
		return TravelZ
	default:
		return TravelX
	}
}
