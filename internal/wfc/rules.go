package wfc

import (
	"fmt"

	"github.com/lawnchairsociety/tileforge/internal/tileset"
)

// Rule asserts that prototype From may be placed with To as its
// neighbor in the positive direction of Axis.
type Rule struct {
	Axis Axis
	From int
	To   int
}

// RuleOptions controls rule derivation.
type RuleOptions struct {
	// IsolateStairs forbids horizontal adjacency between two stair
	// prototypes regardless of raw face compatibility.
	IsolateStairs bool
}

// Diagnostics summarizes a rule derivation pass.
type Diagnostics struct {
	// TotalPairs is the number of directed rules emitted.
	TotalPairs int

	// Isolated lists non-stair prototypes that ended up with no
	// compatible neighbor on some axis/direction. A tileset containing
	// one is misconfigured, but the builder leaves the decision to the
	// caller.
	Isolated []int
}

// RuleSet is the derived adjacency table plus per-prototype sampling
// weights, indexed identically to the prototype list it was built from.
type RuleSet struct {
	Rules       []Rule
	Weights     []float64
	Diagnostics Diagnostics

	n     int
	allow []bool // axisCount * n * n adjacency table
}

func newRuleSet(n int) *RuleSet {
	return &RuleSet{
		Weights: make([]float64, n),
		n:       n,
		allow:   make([]bool, axisCount*n*n),
	}
}

// Size returns the number of prototypes the rule set covers.
func (rs *RuleSet) Size() int {
	return rs.n
}

// Allows reports whether prototype from may have prototype to as its
// neighbor in the positive direction of axis.
func (rs *RuleSet) Allows(axis Axis, from, to int) bool {
	return rs.allow[(int(axis)*rs.n+from)*rs.n+to]
}

func (rs *RuleSet) add(axis Axis, from, to int) {
	idx := (int(axis)*rs.n + from) * rs.n
	if !rs.allow[idx+to] {
		rs.allow[idx+to] = true
		rs.Rules = append(rs.Rules, Rule{Axis: axis, From: from, To: to})
	}
}

// BuildRules derives the directed adjacency rules and weights for the
// given prototypes. An empty result is not an error here; the generator
// treats it as a precondition failure. Stair misconfiguration (no open
// landing or no non-stair neighbor) is surfaced as ErrStairMisconfigured.
func BuildRules(protos []*tileset.Prototype, opts RuleOptions) (*RuleSet, error) {
	rs := newRuleSet(len(protos))
	for i, p := range protos {
		rs.Weights[i] = p.WeightOrDefault()
	}

	for _, axis := range AllAxes() {
		for i, a := range protos {
			for j, b := range protos {
				if axis.Horizontal() && opts.IsolateStairs && a.IsStair() && b.IsStair() {
					continue
				}
				if axis == AxisUp && !stairPairingOK(a, b) {
					continue
				}
				if facesCompatible(a, b, axis) {
					rs.add(axis, i, j)
				}
			}
		}
	}

	rs.Diagnostics.TotalPairs = len(rs.Rules)
	rs.Diagnostics.Isolated = isolatedPrototypes(rs, protos)

	for _, p := range protos {
		if !p.IsStair() {
			continue
		}
		if err := checkStair(rs, protos, p); err != nil {
			return nil, err
		}
	}

	return rs, nil
}

// stairPairingOK gates vertical adjacency around stair halves: a lower
// half accepts only a matching upper half above it (with the declared
// headroom voxels empty), and an upper half accepts only a lower half
// below it.
func stairPairingOK(below, above *tileset.Prototype) bool {
	lower := below.Meta.StairRole == tileset.StairLower
	upper := above.Meta.StairRole == tileset.StairUpper

	if !lower && !upper {
		return true
	}
	if !lower || !upper {
		return false
	}
	for _, c := range below.Meta.RequiredAboveEmpty {
		if above.Voxels.At(c.X, c.Y, c.Z) != tileset.VoxelEmpty {
			return false
		}
	}
	return true
}

// facesCompatible reports whether some rotated form of each prototype
// produces matching or open touching geometry along the axis.
func facesCompatible(a, b *tileset.Prototype, axis Axis) bool {
	requireSolid := axis == AxisUp && b.Meta.RequireSolidBelow
	for _, ra := range a.RotationList() {
		fa := faceOf(a.Voxels.RotateY(ra), axis, true)
		for _, rb := range b.RotationList() {
			fb := faceOf(b.Voxels.RotateY(rb), axis, false)
			if facesMatch(fa, fb, requireSolid) {
				return true
			}
		}
	}
	return false
}

// face is a prototype boundary layer reduced to solid/empty occupancy.
type face [tileset.GridSize][tileset.GridSize]uint8

// faceOf extracts the boundary layer touching the positive (or
// negative) end of the axis. Cells are oriented so that the positive
// face of one prototype lines up index-for-index with the negative face
// of its neighbor.
func faceOf(v tileset.VoxelGrid, axis Axis, positive bool) face {
	edge := 0
	if positive {
		edge = tileset.GridSize - 1
	}

	var f face
	for i := 0; i < tileset.GridSize; i++ {
		for j := 0; j < tileset.GridSize; j++ {
			var voxel uint8
			switch axis {
			case AxisX:
				voxel = v.At(edge, i, j) // f[y][z]
			case AxisZ:
				voxel = v.At(j, i, edge) // f[y][x]
			default:
				voxel = v.At(j, edge, i) // f[z][x]
			}
			if voxel != tileset.VoxelEmpty {
				f[i][j] = 1
			}
		}
	}
	return f
}

// facesMatch reports whether two touching faces are compatible: equal
// geometry, or one side fully open. A prototype that requires a solid
// face beneath it rejects the open shortcut.
func facesMatch(fa, fb face, requireSolid bool) bool {
	if requireSolid && !faceAllSolid(fa) {
		return false
	}
	if fa == fb {
		return true
	}
	return faceAllEmpty(fa) || faceAllEmpty(fb)
}

func faceAllEmpty(f face) bool {
	for i := range f {
		for j := range f[i] {
			if f[i][j] != 0 {
				return false
			}
		}
	}
	return true
}

func faceAllSolid(f face) bool {
	for i := range f {
		for j := range f[i] {
			if f[i][j] == 0 {
				return false
			}
		}
	}
	return true
}

func faceAnyEmpty(f face) bool {
	return !faceAllSolid(f)
}

// checkStair validates a stair prototype: its landing side must expose
// an open boundary cell, and at least one non-stair prototype must be
// compatible with it in both the forward and backward sense.
func checkStair(rs *RuleSet, protos []*tileset.Prototype, p *tileset.Prototype) error {
	axis := travelAxis(p.Meta.Axis)
	forward := p.Meta.Dir > 0

	landing := faceOf(p.Voxels, axis, forward)
	if !faceAnyEmpty(landing) {
		return fmt.Errorf("%w: %s has a sealed landing face", ErrStairMisconfigured, p.Name)
	}

	var fwdOK, backOK bool
	for j, q := range protos {
		if q.IsStair() {
			continue
		}
		toPositive := rs.Allows(axis, p.Index, j)  // q on p's positive side
		toNegative := rs.Allows(axis, j, p.Index)  // q on p's negative side
		if forward {
			fwdOK = fwdOK || toPositive
			backOK = backOK || toNegative
		} else {
			fwdOK = fwdOK || toNegative
			backOK = backOK || toPositive
		}
	}
	if !fwdOK || !backOK {
		return fmt.Errorf("%w: %s has no compatible non-stair neighbor", ErrStairMisconfigured, p.Name)
	}
	return nil
}

// isolatedPrototypes returns non-stair prototypes that have no
// compatible neighbor for some axis and direction.
func isolatedPrototypes(rs *RuleSet, protos []*tileset.Prototype) []int {
	var isolated []int
	for i, p := range protos {
		if p.IsStair() {
			continue
		}
		ok := true
		for _, axis := range AllAxes() {
			var out, in bool
			for j := 0; j < rs.n; j++ {
				out = out || rs.Allows(axis, i, j)
				in = in || rs.Allows(axis, j, i)
			}
			if !out || !in {
				ok = false
				break
			}
		}
		if !ok {
			isolated = append(isolated, i)
		}
	}
	return isolated
}
