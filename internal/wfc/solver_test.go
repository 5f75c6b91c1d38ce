package wfc

import (
	"errors"
	"testing"

	"github.com/lawnchairsociety/tileforge/internal/tileset"
)

func basicRuleSet(t *testing.T) *RuleSet {
	t.Helper()
	rules, err := BuildRules(tileset.BasicTileset().All(), RuleOptions{})
	if err != nil {
		t.Fatalf("BuildRules failed: %v", err)
	}
	return rules
}

// lonelyRuleSet builds rules over a single tile that cannot neighbor
// itself along x, so any wave wider than one cell contradicts.
func lonelyRuleSet(t *testing.T) *RuleSet {
	t.Helper()
	reg, err := tileset.CreateRegistry(&tileset.TilesetConfig{
		Name: "lonely",
		Tiles: []tileset.TileConfigYAML{
			{
				Name:   "skew",
				Weight: 1,
				Layers: [][]string{
					{"#..", "#..", "#.."},
					{"..#", "..#", "..#"},
					{"...", "...", "..."},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("CreateRegistry failed: %v", err)
	}
	rules, err := BuildRules(reg.All(), RuleOptions{})
	if err != nil {
		t.Fatalf("BuildRules failed: %v", err)
	}
	return rules
}

// solve drives a solver to completion, bounded so a broken solver
// cannot hang the test.
func solve(t *testing.T, s *WaveSolver) map[Coord]int {
	t.Helper()
	for i := 0; i < 10000; i++ {
		done, err := s.Step()
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if done {
			out, err := s.Readout()
			if err != nil {
				t.Fatalf("Readout failed: %v", err)
			}
			return out
		}
	}
	t.Fatal("solver did not terminate")
	return nil
}

func TestWaveSolver_ExpandInvalidSize(t *testing.T) {
	s := NewWaveSolver(basicRuleSet(t), 1)

	for _, size := range []Coord{{}, {X: 3, Y: 0, Z: 3}, {X: -1, Y: 1, Z: 1}} {
		if err := s.Expand(Coord{}, size); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("Expand(%v): expected ErrInvalidSize, got %v", size, err)
		}
	}
}

func TestWaveSolver_CompletesSmallGrid(t *testing.T) {
	rules := basicRuleSet(t)
	s := NewWaveSolver(rules, 42)
	if err := s.Expand(Coord{}, Coord{X: 3, Y: 2, Z: 3}); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	out := solve(t, s)

	if len(out) != 18 {
		t.Fatalf("readout has %d cells, want 18", len(out))
	}
	for pos, proto := range out {
		if proto < 0 || proto >= rules.Size() {
			t.Errorf("cell %v resolved to out-of-range prototype %d", pos, proto)
		}
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining() = %d after completion", s.Remaining())
	}
}

func TestWaveSolver_Deterministic(t *testing.T) {
	rules := basicRuleSet(t)
	size := Coord{X: 4, Y: 2, Z: 4}

	runOnce := func(seed int64) map[Coord]int {
		s := NewWaveSolver(rules, seed)
		if err := s.Expand(Coord{}, size); err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		return solve(t, s)
	}

	first := runOnce(7)
	second := runOnce(7)

	if len(first) != len(second) {
		t.Fatalf("runs produced different cell counts: %d vs %d", len(first), len(second))
	}
	for pos, proto := range first {
		if second[pos] != proto {
			t.Errorf("cell %v differs between identically seeded runs: %d vs %d",
				pos, proto, second[pos])
		}
	}
}

func TestWaveSolver_ReadoutBeforeCompletion(t *testing.T) {
	s := NewWaveSolver(basicRuleSet(t), 1)
	if err := s.Expand(Coord{}, Coord{X: 2, Y: 2, Z: 2}); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if _, err := s.Readout(); !errors.Is(err, ErrNotCollapsed) {
		t.Errorf("expected ErrNotCollapsed before completion, got %v", err)
	}
}

func TestWaveSolver_Contradiction(t *testing.T) {
	s := NewWaveSolver(lonelyRuleSet(t), 3)
	if err := s.Expand(Coord{}, Coord{X: 2, Y: 1, Z: 1}); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	var stepErr error
	for i := 0; i < 10 && stepErr == nil; i++ {
		_, stepErr = s.Step()
	}
	if !errors.Is(stepErr, ErrContradiction) {
		t.Fatalf("expected ErrContradiction, got %v", stepErr)
	}

	// A failed wave stays failed.
	if _, err := s.Step(); !errors.Is(err, ErrContradiction) {
		t.Errorf("Step after failure: expected ErrContradiction, got %v", err)
	}
	if _, err := s.Readout(); !errors.Is(err, ErrNotCollapsed) {
		t.Errorf("Readout after failure: expected ErrNotCollapsed, got %v", err)
	}
}

func TestWaveSolver_ExpandPreservesCollapsed(t *testing.T) {
	rules := basicRuleSet(t)
	s := NewWaveSolver(rules, 11)
	if err := s.Expand(Coord{}, Coord{X: 2, Y: 2, Z: 2}); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	before := solve(t, s)

	// Grow the wave along x: the original 8 cells stay collapsed and
	// only the 4 new cells remain open.
	if err := s.Expand(Coord{}, Coord{X: 3, Y: 2, Z: 2}); err != nil {
		t.Fatalf("second Expand failed: %v", err)
	}
	if got := s.Remaining(); got > 4 {
		t.Errorf("Remaining() = %d after growth, want at most 4", got)
	}
	for pos, proto := range before {
		if got := s.Cell(pos).Chosen(); got != proto {
			t.Errorf("cell %v changed from %d to %d across Expand", pos, proto, got)
		}
	}

	after := solve(t, s)
	if len(after) != 12 {
		t.Fatalf("grown readout has %d cells, want 12", len(after))
	}
	for pos, proto := range before {
		if after[pos] != proto {
			t.Errorf("cell %v changed from %d to %d after completing growth", pos, proto, after[pos])
		}
	}
}

func TestWaveSolver_CellLifecycle(t *testing.T) {
	s := NewWaveSolver(basicRuleSet(t), 1)
	if err := s.Expand(Coord{}, Coord{X: 1, Y: 1, Z: 1}); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	cell := s.Cell(Coord{})
	if cell == nil {
		t.Fatal("expected a cell at the origin")
	}
	if cell.State() != Unobserved {
		t.Errorf("fresh cell state = %v, want %v", cell.State(), Unobserved)
	}
	if cell.Chosen() != -1 {
		t.Errorf("fresh cell Chosen() = %d, want -1", cell.Chosen())
	}
	if cell.Entropy() <= 0 {
		t.Error("a full domain over mixed weights should have positive entropy")
	}

	done, err := s.Step()
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if !done {
		t.Error("a single-cell wave should finish in one step")
	}
	if cell.State() != Collapsed {
		t.Errorf("cell state = %v after collapse, want %v", cell.State(), Collapsed)
	}

	if s.Cell(Coord{X: 5}) != nil {
		t.Error("positions outside the wave should return nil")
	}
}

func TestCellState_String(t *testing.T) {
	tests := []struct {
		state CellState
		want  string
	}{
		{Unobserved, "unobserved"},
		{Constrained, "constrained"},
		{Collapsed, "collapsed"},
		{CellState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
