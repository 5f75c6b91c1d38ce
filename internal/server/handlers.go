package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lawnchairsociety/tileforge/internal/logger"
	"github.com/lawnchairsociety/tileforge/internal/runstore"
	"github.com/lawnchairsociety/tileforge/internal/wfc"
)

// GenerateRequest is the JSON body accepted by POST /generate and the
// opening message of the WebSocket stream.
type GenerateRequest struct {
	Seed    *int64 `json:"seed,omitempty"`
	Tileset string `json:"tileset,omitempty"`
	Dims    struct {
		X int `json:"x"`
		Y int `json:"y"`
		Z int `json:"z"`
	} `json:"dims"`
	IsolateStairs bool `json:"isolate_stairs,omitempty"`

	// Budget overrides. Zero values fall back to the server defaults.
	YieldEvery          int `json:"yield_every,omitempty"`
	MaxSteps            int `json:"max_steps,omitempty"`
	MaxYields           int `json:"max_yields,omitempty"`
	StallTimeoutSeconds int `json:"stall_timeout_seconds,omitempty"`
}

// RunSummary is the JSON shape of a stored run without its grid.
type RunSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Seed       int64     `json:"seed"`
	Dims       [3]int    `json:"dims"`
	Tileset    string    `json:"tileset"`
	Status     string    `json:"status"`
	Steps      int       `json:"steps"`
	Yields     int       `json:"yields"`
	DurationMS int64     `json:"duration_ms"`
	TileCount  int       `json:"tile_count"`
}

// RunDetail is a RunSummary plus the resolved grid.
type RunDetail struct {
	RunSummary
	Grid []int `json:"grid,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func summarize(run *runstore.Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt,
		Seed:       run.Seed,
		Dims:       [3]int{run.DimX, run.DimY, run.DimZ},
		Tileset:    run.Tileset,
		Status:     run.Status,
		Steps:      run.Steps,
		Yields:     run.Yields,
		DurationMS: run.DurationMS,
		TileCount:  run.TileCount,
	}
}

// options merges a request's budget overrides with the configured
// defaults.
func (s *Server) options(req *GenerateRequest) wfc.Options {
	gen := s.cfg.Generation

	opts := wfc.Options{
		IsolateStairs: req.IsolateStairs,
		YieldEvery:    req.YieldEvery,
		MaxSteps:      req.MaxSteps,
		MaxYields:     req.MaxYields,
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	} else {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.YieldEvery <= 0 {
		opts.YieldEvery = gen.YieldEvery
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = gen.MaxSteps
	}
	if opts.MaxYields <= 0 {
		opts.MaxYields = gen.MaxYields
	}
	if req.StallTimeoutSeconds > 0 {
		opts.StallTimeout = time.Duration(req.StallTimeoutSeconds) * time.Second
	} else {
		opts.StallTimeout = gen.StallTimeout()
	}
	return opts
}

// validateDims rejects non-positive or over-budget grid sizes.
func (s *Server) validateDims(req *GenerateRequest) string {
	d := req.Dims
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return "dims must be positive"
	}
	if max := s.cfg.Generation.MaxCells; max > 0 && d.X*d.Y*d.Z > max {
		return "grid exceeds the configured cell limit"
	}
	return ""
}

// runGeneration executes a generation request and persists the outcome.
// Failed runs are recorded without a grid; budget and contradiction
// errors are returned alongside the stored run.
func (s *Server) runGeneration(ctx context.Context, req *GenerateRequest, opts wfc.Options) (*runstore.Run, error) {
	reg, ok := s.registry(req.Tileset)
	if !ok {
		return nil, errUnknownTileset
	}

	tilesetName := req.Tileset
	if tilesetName == "" {
		tilesetName = "basic"
	}

	dims := wfc.Coord{X: req.Dims.X, Y: req.Dims.Y, Z: req.Dims.Z}
	start := time.Now()
	result, err := wfc.Generate(ctx, reg, dims, opts)

	run := &runstore.Run{
		Seed:       opts.Seed,
		DimX:       dims.X,
		DimY:       dims.Y,
		DimZ:       dims.Z,
		Tileset:    tilesetName,
		DurationMS: time.Since(start).Milliseconds(),
	}

	if err != nil {
		run.Status = runstore.StatusFailed
		if saveErr := s.store.SaveRun(run); saveErr != nil {
			logger.Error("failed to record failed run", "error", saveErr)
		}
		return run, err
	}

	run.Status = runstore.StatusCompleted
	run.Steps = result.Stats.Steps
	run.Yields = result.Stats.Yields
	run.TileCount = len(result.Tiles)
	run.Grid = result.Grid

	if err := s.store.SaveRun(run); err != nil {
		return nil, err
	}
	return run, nil
}

var errUnknownTileset = errors.New("unknown tileset")

// handleGenerate runs a generation synchronously and returns the full
// run, grid included.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := s.validateDims(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	opts := s.options(&req)
	run, err := s.runGeneration(r.Context(), &req, opts)
	if err != nil {
		switch {
		case errors.Is(err, errUnknownTileset):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, wfc.ErrContradiction),
			errors.Is(err, wfc.ErrMaxSteps),
			errors.Is(err, wfc.ErrMaxYields),
			errors.Is(err, wfc.ErrStallTimeout):
			writeJSON(w, http.StatusUnprocessableEntity, RunDetail{RunSummary: summarize(run)})
		case errors.Is(err, wfc.ErrCancelled):
			// Client went away; nothing useful to write.
			logger.Debug("generation cancelled by client", "run_id", run.ID)
		default:
			logger.Error("generation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "generation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, RunDetail{RunSummary: summarize(run), Grid: run.Grid})
}

// handleListRuns returns stored run summaries, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(100)
	if err != nil {
		logger.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarize(run))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleGetRun returns one stored run with its grid.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, runstore.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		logger.Error("failed to get run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, RunDetail{RunSummary: summarize(run), Grid: run.Grid})
}

// handleDeleteRun removes a stored run. Requires the admin token.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeAdmin(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.store.DeleteRun(r.PathValue("id")); err != nil {
		if errors.Is(err, runstore.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		logger.Error("failed to delete run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete run")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
