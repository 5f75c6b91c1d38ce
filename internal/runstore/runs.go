package runstore

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// ErrRunNotFound is returned when a run lookup fails.
var ErrRunNotFound = errors.New("run not found")

// ErrRunExists is returned when saving a run with a duplicate ID.
var ErrRunExists = errors.New("run already exists")

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one persisted generation run. Grid holds the resolved
// prototype index per cell in flat row order; it is nil for failed
// runs and for list queries.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Seed       int64
	DimX       int
	DimY       int
	DimZ       int
	Tileset    string
	Status     string
	Steps      int
	Yields     int
	DurationMS int64
	TileCount  int
	Grid       []int
}

// SaveRun persists a run. A missing ID is assigned a fresh UUID and a
// missing CreatedAt is set to now. The grid is stored gzip-compressed.
func (d *Database) SaveRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusCompleted
	}

	blob, err := compressGrid(run.Grid)
	if err != nil {
		return fmt.Errorf("failed to encode grid: %w", err)
	}

	query := d.qb.Build(`INSERT INTO runs
		(id, created_at, seed, dim_x, dim_y, dim_z, tileset, status, steps, yields, duration_ms, tile_count, grid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = d.db.Exec(query,
		run.ID, run.CreatedAt, run.Seed,
		run.DimX, run.DimY, run.DimZ,
		run.Tileset, run.Status,
		run.Steps, run.Yields, run.DurationMS, run.TileCount,
		blob,
	)
	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			return ErrRunExists
		}
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID, including its decompressed grid.
func (d *Database) GetRun(id string) (*Run, error) {
	query := d.qb.Build(`SELECT id, created_at, seed, dim_x, dim_y, dim_z, tileset, status, steps, yields, duration_ms, tile_count, grid
		FROM runs WHERE id = ?`)

	var run Run
	var blob []byte
	err := d.db.QueryRow(query, id).Scan(
		&run.ID, &run.CreatedAt, &run.Seed,
		&run.DimX, &run.DimY, &run.DimZ,
		&run.Tileset, &run.Status,
		&run.Steps, &run.Yields, &run.DurationMS, &run.TileCount,
		&blob,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Grid, err = decompressGrid(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode grid: %w", err)
	}

	return &run, nil
}

// ListRuns returns the newest runs first, without their grids. A
// non-positive limit returns all runs.
func (d *Database) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT id, created_at, seed, dim_x, dim_y, dim_z, tileset, status, steps, yields, duration_ms, tile_count
		FROM runs ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT " + d.qb.Build("?")
		args = append(args, limit)
	}

	rows, err := d.db.Query(d.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.CreatedAt, &run.Seed,
			&run.DimX, &run.DimY, &run.DimZ,
			&run.Tileset, &run.Status,
			&run.Steps, &run.Yields, &run.DurationMS, &run.TileCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run by ID. Returns ErrRunNotFound if no run had
// that ID.
func (d *Database) DeleteRun(id string) error {
	query := d.qb.Build("DELETE FROM runs WHERE id = ?")
	result, err := d.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// compressGrid encodes the grid as gzip-compressed JSON. A nil grid
// produces a nil blob.
func compressGrid(grid []int) ([]byte, error) {
	if grid == nil {
		return nil, nil
	}

	data, err := json.Marshal(grid)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressGrid reverses compressGrid. A nil or empty blob yields a
// nil grid.
func decompressGrid(blob []byte) ([]int, error) {
	if len(blob) == 0 {
		return nil, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}

	var grid []int
	if err := json.Unmarshal(data, &grid); err != nil {
		return nil, err
	}
	return grid, nil
}
