package wfc

import (
	"math"
	"math/rand"
)

// CellState tracks a cell through the collapse lifecycle.
type CellState int

const (
	// Unobserved cells still hold every prototype in their domain.
	Unobserved CellState = iota
	// Constrained cells have lost candidates to propagation.
	Constrained
	// Collapsed cells hold exactly one prototype.
	Collapsed
)

// String returns the string representation of a CellState.
func (s CellState) String() string {
	switch s {
	case Unobserved:
		return "unobserved"
	case Constrained:
		return "constrained"
	case Collapsed:
		return "collapsed"
	default:
		return "unknown"
	}
}

// Cell is a single slot in the wave grid: the set of prototype indices
// still possible at its position.
type Cell struct {
	Pos Coord

	domain []bool
	count  int
	chosen int // collapsed prototype index, -1 while open

	// Weighted entropy terms, maintained incrementally as candidates
	// are removed.
	sumW     float64
	sumWLogW float64
}

// State returns the cell's position in the collapse lifecycle.
func (c *Cell) State() CellState {
	switch {
	case c.chosen >= 0:
		return Collapsed
	case c.count < len(c.domain):
		return Constrained
	default:
		return Unobserved
	}
}

// Entropy returns the weighted Shannon entropy of the cell's domain.
// Lower entropy collapses first.
func (c *Cell) Entropy() float64 {
	if c.sumW <= 0 {
		return 0
	}
	return math.Log(c.sumW) - c.sumWLogW/c.sumW
}

// Chosen returns the collapsed prototype index, or -1 while open.
func (c *Cell) Chosen() int {
	return c.chosen
}

// entropyEpsilon bounds the float comparison when collecting
// minimum-entropy candidates, so ties break by the seeded rng instead
// of rounding noise.
const entropyEpsilon = 1e-9

// WaveSolver is the incremental wave function collapse engine. Each
// solver owns an independent grid; nothing is shared between runs.
type WaveSolver struct {
	rules *RuleSet
	cells map[Coord]*Cell
	order []Coord // deterministic cell visit order
	rng   *rand.Rand

	remaining int // cells not yet collapsed
	failed    bool
}

// NewWaveSolver creates a solver over the given rule set. The seed
// drives candidate tie-breaking and collapse sampling; a fixed seed
// reproduces the same grid.
func NewWaveSolver(rules *RuleSet, seed int64) *WaveSolver {
	return &WaveSolver{
		rules: rules,
		cells: make(map[Coord]*Cell),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Expand initializes the wave over the bounding box at origin with full
// candidate domains for every new cell. Growing an existing wave
// preserves already-collapsed cells and propagates their constraints
// into the newly added region.
func (s *WaveSolver) Expand(origin, size Coord) error {
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return ErrInvalidSize
	}

	var boundary []Coord
	for y := 0; y < size.Y; y++ {
		for z := 0; z < size.Z; z++ {
			for x := 0; x < size.X; x++ {
				pos := origin.Add(x, y, z)
				if _, ok := s.cells[pos]; ok {
					continue
				}
				s.cells[pos] = s.newCell(pos)
				s.order = append(s.order, pos)
				s.remaining++
			}
		}
	}

	// Re-propagate from every cell that already carries constraints so
	// the new region starts arc-consistent.
	for _, pos := range s.order {
		if s.cells[pos].State() != Unobserved {
			boundary = append(boundary, pos)
		}
	}
	if len(boundary) > 0 {
		if err := s.propagate(boundary); err != nil {
			s.failed = true
			return err
		}
	}
	return nil
}

func (s *WaveSolver) newCell(pos Coord) *Cell {
	n := s.rules.Size()
	c := &Cell{
		Pos:    pos,
		domain: make([]bool, n),
		count:  n,
		chosen: -1,
	}
	for i := 0; i < n; i++ {
		c.domain[i] = true
		w := s.rules.Weights[i]
		c.sumW += w
		c.sumWLogW += w * math.Log(w)
	}
	return c
}

// Step performs one bounded unit of work: select the open cell with
// minimum entropy, collapse it to a weighted sample of its domain, and
// propagate the consequences. Returns true once every cell is
// collapsed, and ErrContradiction if propagation empties a domain.
func (s *WaveSolver) Step() (bool, error) {
	if s.failed {
		return false, ErrContradiction
	}
	if s.remaining == 0 {
		return true, nil
	}

	cell := s.pickCell()
	s.collapse(cell, s.sample(cell))

	if err := s.propagate([]Coord{cell.Pos}); err != nil {
		s.failed = true
		return false, err
	}
	return s.remaining == 0, nil
}

// Readout returns the resolved prototype index per cell. It is valid
// only once Step has returned true.
func (s *WaveSolver) Readout() (map[Coord]int, error) {
	if s.failed || s.remaining > 0 {
		return nil, ErrNotCollapsed
	}
	out := make(map[Coord]int, len(s.cells))
	for pos, c := range s.cells {
		out[pos] = c.chosen
	}
	return out, nil
}

// Remaining returns the number of cells not yet collapsed.
func (s *WaveSolver) Remaining() int {
	return s.remaining
}

// Cell returns the cell at the given position, or nil if outside the
// expanded wave.
func (s *WaveSolver) Cell(pos Coord) *Cell {
	return s.cells[pos]
}

// pickCell selects the open cell with minimum entropy, breaking ties
// with the seeded rng over the deterministic cell order.
func (s *WaveSolver) pickCell() *Cell {
	minH := math.MaxFloat64
	var candidates []*Cell

	for _, pos := range s.order {
		c := s.cells[pos]
		if c.chosen >= 0 {
			continue
		}
		h := c.Entropy()
		switch {
		case h < minH-entropyEpsilon:
			minH = h
			candidates = candidates[:0]
			candidates = append(candidates, c)
		case h <= minH+entropyEpsilon:
			candidates = append(candidates, c)
		}
	}
	return candidates[s.rng.Intn(len(candidates))]
}

// sample draws a prototype from the cell's domain with probability
// proportional to its weight. This is the only place randomness enters
// the collapse itself.
func (s *WaveSolver) sample(c *Cell) int {
	target := s.rng.Float64() * c.sumW
	last := -1
	for i, ok := range c.domain {
		if !ok {
			continue
		}
		last = i
		target -= s.rules.Weights[i]
		if target <= 0 {
			return i
		}
	}
	// Float accumulation can leave a sliver; fall back to the final
	// candidate.
	return last
}

func (s *WaveSolver) collapse(c *Cell, proto int) {
	for i := range c.domain {
		c.domain[i] = i == proto
	}
	c.count = 1
	c.chosen = proto
	w := s.rules.Weights[proto]
	c.sumW = w
	c.sumWLogW = w * math.Log(w)
	s.remaining--
}

// propagate restores arc consistency starting from the given cells:
// any neighbor candidate with no compatible partner left in the source
// domain is removed, cascading until no domain changes.
func (s *WaveSolver) propagate(seed []Coord) error {
	queue := append([]Coord(nil), seed...)

	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		cur := s.cells[pos]
		if cur == nil {
			continue
		}

		for _, axis := range AllAxes() {
			for _, positive := range []bool{true, false} {
				nbPos := pos.Neighbor(axis, positive)
				nb := s.cells[nbPos]
				if nb == nil {
					continue
				}
				changed, err := s.constrain(cur, nb, axis, positive)
				if err != nil {
					return err
				}
				if changed {
					queue = append(queue, nbPos)
				}
			}
		}
	}
	return nil
}

// constrain removes from the neighbor's domain every candidate without
// support in the source cell's domain. positive indicates the neighbor
// sits on the source's positive side of the axis.
func (s *WaveSolver) constrain(src, nb *Cell, axis Axis, positive bool) (bool, error) {
	changed := false
	for t, ok := range nb.domain {
		if !ok {
			continue
		}
		if s.supported(src, axis, positive, t) {
			continue
		}
		nb.domain[t] = false
		nb.count--
		w := s.rules.Weights[t]
		nb.sumW -= w
		nb.sumWLogW -= w * math.Log(w)
		changed = true

		if nb.count == 0 {
			return true, ErrContradiction
		}
	}

	// A domain reduced to one candidate is collapsed by definition; no
	// sampling step is needed for it.
	if changed && nb.count == 1 && nb.chosen < 0 {
		for i, ok := range nb.domain {
			if ok {
				nb.chosen = i
				break
			}
		}
		s.remaining--
	}
	return changed, nil
}

// supported reports whether candidate t in the neighbor has at least
// one compatible partner left in the source domain.
func (s *WaveSolver) supported(src *Cell, axis Axis, positive bool, t int) bool {
	for f, ok := range src.domain {
		if !ok {
			continue
		}
		if positive {
			if s.rules.Allows(axis, f, t) {
				return true
			}
		} else {
			if s.rules.Allows(axis, t, f) {
				return true
			}
		}
	}
	return false
}
