package wfc

import "errors"

var (
	// ErrEmptyTileset is returned when generation is attempted with no
	// prototypes. The tileset configuration must be fixed; retrying with
	// the same input cannot succeed.
	ErrEmptyTileset = errors.New("wfc: tileset has no prototypes")

	// ErrNoRules is returned when rule derivation produced no compatible
	// prototype pairs at all.
	ErrNoRules = errors.New("wfc: rule set is empty - no compatible prototype pairs")

	// ErrStairMisconfigured is returned by BuildRules when a stair
	// prototype has no open landing face or no non-stair neighbor in the
	// forward and backward sense.
	ErrStairMisconfigured = errors.New("wfc: stair prototype has no open landing or non-stair neighbor")

	// ErrContradiction is returned when propagation empties a cell's
	// domain. The solver fails fast; callers may retry with a new seed.
	ErrContradiction = errors.New("wfc: contradiction - no valid prototypes left for cell")

	// ErrInvalidSize is returned for non-positive grid dimensions.
	ErrInvalidSize = errors.New("wfc: invalid grid size")

	// ErrNotCollapsed is returned by Readout before the wave has fully
	// collapsed.
	ErrNotCollapsed = errors.New("wfc: wave is not fully collapsed")

	// ErrMaxSteps is returned when the step budget is exhausted before
	// the wave collapsed.
	ErrMaxSteps = errors.New("wfc: exceeded maximum step budget")

	// ErrMaxYields is returned when the cooperative yield budget is
	// exhausted before the wave collapsed.
	ErrMaxYields = errors.New("wfc: exceeded maximum yield budget")

	// ErrStallTimeout is returned when the wall-clock budget, measured
	// from the first yield, is exhausted.
	ErrStallTimeout = errors.New("wfc: stalled - wall-clock budget exceeded")

	// ErrCancelled is returned when the context is cancelled during
	// generation.
	ErrCancelled = errors.New("wfc: generation cancelled")

	// ErrUnsupportedSolver is returned when the injected solver does not
	// implement incremental expand/step operations.
	ErrUnsupportedSolver = errors.New("wfc: solver does not support incremental stepping")
)
