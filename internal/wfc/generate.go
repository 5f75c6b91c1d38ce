package wfc

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/lawnchairsociety/tileforge/internal/logger"
	"github.com/lawnchairsociety/tileforge/internal/tileset"
)

// DefaultYieldEvery is the number of solver steps run between
// cooperative yields when the caller does not set one.
const DefaultYieldEvery = 500

// Solver is the minimal surface Generate needs from a solving engine.
type Solver interface {
	// Readout returns the resolved prototype index per cell once the
	// wave has fully collapsed.
	Readout() (map[Coord]int, error)
}

// IncrementalSolver is a solver that supports budgeted stepping.
// Generate requires this interface; a Solver without it is rejected
// with ErrUnsupportedSolver rather than run blocking.
type IncrementalSolver interface {
	Solver

	// Expand initializes the wave over the bounding box.
	Expand(origin, size Coord) error

	// Step performs one bounded unit of work and reports completion.
	Step() (bool, error)
}

// Progress is a snapshot handed to the progress callback at every
// cooperative yield.
type Progress struct {
	Steps   int
	Yields  int
	Elapsed time.Duration
}

// Options configures a generation run.
type Options struct {
	// Seed drives the solver's tie-breaking and sampling. The same seed
	// over the same tileset and dims reproduces the same grid.
	Seed int64

	// YieldEvery is the number of steps per chunk between cooperative
	// yields. Defaults to DefaultYieldEvery.
	YieldEvery int

	// MaxSteps caps the total solver steps. Zero means unlimited.
	MaxSteps int

	// StallTimeout bounds wall-clock time measured from the first
	// yield. Zero means unlimited.
	StallTimeout time.Duration

	// MaxYields caps the number of cooperative yields. Zero means
	// unlimited.
	MaxYields int

	// IsolateStairs forbids horizontal stair-stair adjacency during
	// rule derivation.
	IsolateStairs bool

	// Solver overrides the default wave solver. It must implement
	// IncrementalSolver.
	Solver Solver

	// Progress, when set, is invoked at every yield boundary.
	Progress func(Progress)

	// Debugf, when set, receives milestone messages. Defaults to the
	// logger package's debug output.
	Debugf func(format string, args ...any)
}

// PlacedTile is one resolved grid cell: which prototype landed where,
// and the yaw the renderer should apply.
type PlacedTile struct {
	PrototypeIndex int
	RotationY      int
	Position       Coord
}

// Stats summarizes the work a completed run performed.
type Stats struct {
	Steps   int
	Yields  int
	Elapsed time.Duration
}

// Result is the output of a completed generation run.
type Result struct {
	// Grid is the flat readout, indexed (y*dims.Z+z)*dims.X + x.
	Grid []int

	// Grid3D is the same readout shaped [y][z][x].
	Grid3D [][][]int

	// Tiles holds one placed tile per cell.
	Tiles []PlacedTile

	// Rules is the derived rule set, including the weights array.
	Rules *RuleSet

	// Stats records the steps, yields, and wall-clock time consumed.
	Stats Stats
}

// Generate runs a full wave function collapse over a dims-sized grid.
// It derives rules from the registry, drives the solver in chunks of
// YieldEvery steps, and enforces the step, yield, and wall-clock
// budgets at every step and chunk boundary. Cancellation is observed
// cooperatively through ctx; a single expensive step is never
// interrupted mid-call. Each call owns its grid, so failed or aborted
// runs leave nothing behind for later calls to trip over.
func Generate(ctx context.Context, reg *tileset.Registry, dims Coord, opts Options) (*Result, error) {
	debugf := opts.Debugf
	if debugf == nil {
		debugf = logger.Debugf
	}

	if reg == nil || reg.Len() == 0 {
		return nil, ErrEmptyTileset
	}
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		return nil, ErrInvalidSize
	}

	rules, err := BuildRules(reg.All(), RuleOptions{IsolateStairs: opts.IsolateStairs})
	if err != nil {
		return nil, err
	}
	if len(rules.Rules) == 0 {
		return nil, ErrNoRules
	}

	solver := opts.Solver
	if solver == nil {
		solver = NewWaveSolver(rules, opts.Seed)
	}
	inc, ok := solver.(IncrementalSolver)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedSolver, solver)
	}

	debugf("wfc: init dims=%dx%dx%d seed=%d prototypes=%d rules=%d",
		dims.X, dims.Y, dims.Z, opts.Seed, reg.Len(), len(rules.Rules))

	if err := inc.Expand(Coord{}, dims); err != nil {
		return nil, err
	}
	debugf("wfc: expanded %d cells", dims.X*dims.Y*dims.Z)

	yieldEvery := opts.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = DefaultYieldEvery
	}

	start := time.Now()
	var firstYield time.Time
	steps, yields := 0, 0

stepping:
	for {
		for i := 0; i < yieldEvery; i++ {
			if ctxErr := ctx.Err(); ctxErr != nil {
				debugf("wfc: aborted after %d steps", steps)
				return nil, fmt.Errorf("%w: %v", ErrCancelled, ctxErr)
			}
			if opts.MaxSteps > 0 && steps >= opts.MaxSteps {
				return nil, fmt.Errorf("%w (%d)", ErrMaxSteps, opts.MaxSteps)
			}
			if opts.StallTimeout > 0 && !firstYield.IsZero() && time.Since(firstYield) > opts.StallTimeout {
				return nil, fmt.Errorf("%w (%s)", ErrStallTimeout, opts.StallTimeout)
			}

			steps++
			done, stepErr := inc.Step()
			if stepErr != nil {
				return nil, stepErr
			}
			if done {
				break stepping
			}
		}

		// Chunk boundary: the cooperative suspension point.
		yields++
		if firstYield.IsZero() {
			firstYield = time.Now()
		}
		if opts.MaxYields > 0 && yields > opts.MaxYields {
			return nil, fmt.Errorf("%w (%d)", ErrMaxYields, opts.MaxYields)
		}
		if opts.StallTimeout > 0 && time.Since(firstYield) > opts.StallTimeout {
			return nil, fmt.Errorf("%w (%s)", ErrStallTimeout, opts.StallTimeout)
		}
		if opts.Progress != nil {
			opts.Progress(Progress{Steps: steps, Yields: yields, Elapsed: time.Since(start)})
		}
		debugf("wfc: yield %d after %d steps", yields, steps)
		runtime.Gosched()
	}

	cells, err := inc.Readout()
	if err != nil {
		return nil, err
	}

	result := materialize(cells, reg, dims, rules)
	result.Stats = Stats{Steps: steps, Yields: yields, Elapsed: time.Since(start)}
	debugf("wfc: done steps=%d yields=%d elapsed=%s", steps, yields, time.Since(start))
	return result, nil
}

// materialize converts the solver readout into the flat grid, the
// nested 3D grid, and the placed tile list.
func materialize(cells map[Coord]int, reg *tileset.Registry, dims Coord, rules *RuleSet) *Result {
	result := &Result{
		Grid:   make([]int, dims.X*dims.Y*dims.Z),
		Grid3D: make([][][]int, dims.Y),
		Tiles:  make([]PlacedTile, 0, dims.X*dims.Y*dims.Z),
		Rules:  rules,
	}

	for y := 0; y < dims.Y; y++ {
		result.Grid3D[y] = make([][]int, dims.Z)
		for z := 0; z < dims.Z; z++ {
			result.Grid3D[y][z] = make([]int, dims.X)
			for x := 0; x < dims.X; x++ {
				proto := cells[Coord{X: x, Y: y, Z: z}]
				result.Grid[(y*dims.Z+z)*dims.X+x] = proto
				result.Grid3D[y][z][x] = proto

				rotation := 0
				if p := reg.Get(proto); p != nil {
					rotation = p.Rotation
				}
				result.Tiles = append(result.Tiles, PlacedTile{
					PrototypeIndex: proto,
					RotationY:      rotation,
					Position:       Coord{X: x, Y: y, Z: z},
				})
			}
		}
	}
	return result
}
