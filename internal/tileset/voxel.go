// Package tileset defines tile prototypes for the wave function collapse
// generator: fixed-size voxel grids, rotation variants, and stair metadata.
package tileset

// GridSize is the edge length of a prototype voxel grid.
const GridSize = 3

// Voxel values inside a prototype grid.
const (
	VoxelEmpty uint8 = 0
	VoxelSolid uint8 = 1
	VoxelStair uint8 = 2 // stair marker, treated as solid for face matching
)

// VoxelGrid is a prototype's voxel volume, indexed [y][z][x] so that a
// YAML layer (bottom to top) maps directly onto rows of the grid.
type VoxelGrid [GridSize][GridSize][GridSize]uint8

// At returns the voxel at the given coordinates.
func (g VoxelGrid) At(x, y, z int) uint8 {
	return g[y][z][x]
}

// Set sets the voxel at the given coordinates.
func (g *VoxelGrid) Set(x, y, z int, v uint8) {
	g[y][z][x] = v
}

// RotateY returns the grid rotated the given number of quarter turns
// clockwise about the vertical axis (viewed from above). Negative turn
// counts rotate counter-clockwise.
func (g VoxelGrid) RotateY(turns int) VoxelGrid {
	turns = ((turns % 4) + 4) % 4
	out := g
	for ; turns > 0; turns-- {
		var r VoxelGrid
		for y := 0; y < GridSize; y++ {
			for z := 0; z < GridSize; z++ {
				for x := 0; x < GridSize; x++ {
					// One quarter turn maps (x, z) -> (z, GridSize-1-x).
					r.Set(x, y, z, out.At(z, y, GridSize-1-x))
				}
			}
		}
		out = r
	}
	return out
}

// IsEmpty returns true if every voxel in the grid is empty.
func (g VoxelGrid) IsEmpty() bool {
	for y := 0; y < GridSize; y++ {
		for z := 0; z < GridSize; z++ {
			for x := 0; x < GridSize; x++ {
				if g[y][z][x] != VoxelEmpty {
					return false
				}
			}
		}
	}
	return true
}

// VoxelCoord addresses a single voxel inside a prototype grid.
type VoxelCoord struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// InBounds returns true if the coordinate is inside a prototype grid.
func (c VoxelCoord) InBounds() bool {
	return c.X >= 0 && c.X < GridSize &&
		c.Y >= 0 && c.Y < GridSize &&
		c.Z >= 0 && c.Z < GridSize
}
