// Package wfc implements wave function collapse over a 3D grid of tile
// slots: adjacency rule derivation from voxel prototypes, the
// constraint-propagation solver, and the budgeted generation driver.
package wfc

import "github.com/lawnchairsociety/tileforge/internal/tileset"

// Axis identifies one of the three grid axes a rule applies along.
// Rules are directed toward the positive end of their axis; the solver
// derives the reverse relation from the same table.
type Axis int

const (
	AxisX Axis = iota
	AxisZ
	AxisUp
)

// axisCount is the number of rule axes.
const axisCount = 3

// String returns the string representation of an Axis.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisZ:
		return "z"
	case AxisUp:
		return "up"
	default:
		return "unknown"
	}
}

// AllAxes returns the three rule axes.
func AllAxes() []Axis {
	return []Axis{AxisX, AxisZ, AxisUp}
}

// Horizontal returns true for the two ground-plane axes.
func (a Axis) Horizontal() bool {
	return a == AxisX || a == AxisZ
}

// travelAxis converts a stair's travel axis to the matching rule axis.
func travelAxis(a tileset.TravelAxis) Axis {
	if a == tileset.TravelZ {
		return AxisZ
	}
	return AxisX
}

// Coord is a cell position in the wave grid.
type Coord struct {
	X, Y, Z int
}

// Add returns the coordinate offset by the given deltas.
func (c Coord) Add(dx, dy, dz int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Neighbor returns the adjacent coordinate along the axis: the positive
// neighbor when positive is true, otherwise the negative one.
func (c Coord) Neighbor(axis Axis, positive bool) Coord {
	d := 1
	if !positive {
		d = -1
	}
	switch axis {
	case AxisX:
		return c.Add(d, 0, 0)
	case AxisZ:
		return c.Add(0, 0, d)
	default:
		return c.Add(0, d, 0)
	}
}
