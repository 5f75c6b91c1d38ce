package runstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB creates a temporary SQLite run store for a test.
func openTestDB(t *testing.T) *Database {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveRun_AssignsDefaults(t *testing.T) {
	db := openTestDB(t)

	run := &Run{
		Seed:      42,
		DimX:      3,
		DimY:      3,
		DimZ:      3,
		Tileset:   "basic",
		Steps:     27,
		TileCount: 27,
		Grid:      make([]int, 27),
	}

	if err := db.SaveRun(run); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	if run.ID == "" {
		t.Error("expected SaveRun to assign an ID")
	}
	if run.CreatedAt.IsZero() {
		t.Error("expected SaveRun to assign CreatedAt")
	}
	if run.Status != StatusCompleted {
		t.Errorf("expected default status %q, got %q", StatusCompleted, run.Status)
	}
}

func TestSaveAndGetRun_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	grid := []int{0, 1, 2, 1, 0, 2, 2, 1, 0}
	run := &Run{
		ID:         "test-run-1",
		Seed:       7,
		DimX:       3,
		DimY:       1,
		DimZ:       3,
		Tileset:    "basic",
		Steps:      9,
		Yields:     1,
		DurationMS: 12,
		TileCount:  9,
		Grid:       grid,
	}

	if err := db.SaveRun(run); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	got, err := db.GetRun("test-run-1")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}

	if got.Seed != 7 {
		t.Errorf("Seed = %d, want 7", got.Seed)
	}
	if got.DimX != 3 || got.DimY != 1 || got.DimZ != 3 {
		t.Errorf("dims = %dx%dx%d, want 3x1x3", got.DimX, got.DimY, got.DimZ)
	}
	if got.Tileset != "basic" {
		t.Errorf("Tileset = %q, want %q", got.Tileset, "basic")
	}
	if got.Steps != 9 || got.Yields != 1 {
		t.Errorf("Steps/Yields = %d/%d, want 9/1", got.Steps, got.Yields)
	}
	if len(got.Grid) != len(grid) {
		t.Fatalf("Grid length = %d, want %d", len(got.Grid), len(grid))
	}
	for i, v := range grid {
		if got.Grid[i] != v {
			t.Errorf("Grid[%d] = %d, want %d", i, got.Grid[i], v)
		}
	}
}

func TestSaveRun_DuplicateID(t *testing.T) {
	db := openTestDB(t)

	run := &Run{ID: "dup", Seed: 1, DimX: 1, DimY: 1, DimZ: 1}
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("first SaveRun() failed: %v", err)
	}

	err := db.SaveRun(&Run{ID: "dup", Seed: 2, DimX: 1, DimY: 1, DimZ: 1})
	if !errors.Is(err, ErrRunExists) {
		t.Errorf("expected ErrRunExists, got %v", err)
	}
}

func TestSaveRun_FailedRunWithoutGrid(t *testing.T) {
	db := openTestDB(t)

	run := &Run{
		ID:     "failed-run",
		Seed:   3,
		DimX:   4,
		DimY:   4,
		DimZ:   4,
		Status: StatusFailed,
		Steps:  100,
	}

	if err := db.SaveRun(run); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	got, err := db.GetRun("failed-run")
	if err != nil {
		t.Fatalf("GetRun() failed: %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, StatusFailed)
	}
	if got.Grid != nil {
		t.Errorf("expected nil grid for failed run, got %d entries", len(got.Grid))
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetRun("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"oldest", "middle", "newest"} {
		run := &Run{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Seed:      int64(i),
			DimX:      2, DimY: 2, DimZ: 2,
			Grid: make([]int, 8),
		}
		if err := db.SaveRun(run); err != nil {
			t.Fatalf("SaveRun(%s) failed: %v", id, err)
		}
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "newest" || runs[2].ID != "oldest" {
		t.Errorf("expected newest-first ordering, got %s..%s", runs[0].ID, runs[2].ID)
	}

	// List queries never load grids
	for _, run := range runs {
		if run.Grid != nil {
			t.Errorf("run %s: expected nil grid in list result", run.ID)
		}
	}
}

func TestListRuns_Limit(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := &Run{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Seed:      int64(i),
			DimX:      1, DimY: 1, DimZ: 1,
		}
		if err := db.SaveRun(run); err != nil {
			t.Fatalf("SaveRun() failed: %v", err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns(2) failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestDeleteRun(t *testing.T) {
	db := openTestDB(t)

	run := &Run{ID: "doomed", Seed: 1, DimX: 1, DimY: 1, DimZ: 1}
	if err := db.SaveRun(run); err != nil {
		t.Fatalf("SaveRun() failed: %v", err)
	}

	if err := db.DeleteRun("doomed"); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}

	if _, err := db.GetRun("doomed"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound after delete, got %v", err)
	}
}

func TestDeleteRun_NotFound(t *testing.T) {
	db := openTestDB(t)

	err := db.DeleteRun("missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestCompressGrid_RoundTrip(t *testing.T) {
	grid := make([]int, 1000)
	for i := range grid {
		grid[i] = i % 5
	}

	blob, err := compressGrid(grid)
	if err != nil {
		t.Fatalf("compressGrid() failed: %v", err)
	}
	if len(blob) == 0 {
		t.Fatal("expected non-empty blob")
	}

	got, err := decompressGrid(blob)
	if err != nil {
		t.Fatalf("decompressGrid() failed: %v", err)
	}
	if len(got) != len(grid) {
		t.Fatalf("length = %d, want %d", len(got), len(grid))
	}
	for i := range grid {
		if got[i] != grid[i] {
			t.Fatalf("grid[%d] = %d, want %d", i, got[i], grid[i])
		}
	}
}

func TestCompressGrid_Nil(t *testing.T) {
	blob, err := compressGrid(nil)
	if err != nil {
		t.Fatalf("compressGrid(nil) failed: %v", err)
	}
	if blob != nil {
		t.Errorf("expected nil blob for nil grid, got %d bytes", len(blob))
	}

	grid, err := decompressGrid(nil)
	if err != nil {
		t.Fatalf("decompressGrid(nil) failed: %v", err)
	}
	if grid != nil {
		t.Errorf("expected nil grid for nil blob")
	}
}
