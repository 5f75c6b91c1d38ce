package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/lawnchairsociety/tileforge/internal/config"
	"github.com/lawnchairsociety/tileforge/internal/runstore"
	"github.com/lawnchairsociety/tileforge/internal/tileset"
)

const testAdminToken = "test-admin-token"

// newTestServer builds a server over the basic tileset and a temporary
// SQLite store.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash admin token: %v", err)
	}
	cfg.Admin.TokenHash = string(hash)

	store, err := runstore.Open(runstore.DefaultConfig(filepath.Join(t.TempDir(), "runs.db")))
	if err != nil {
		t.Fatalf("failed to open run store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tilesets := map[string]*tileset.Registry{
		"basic": tileset.BasicTileset(),
	}
	return NewServer(cfg, tilesets, store)
}

func postGenerate(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleGenerate_Success(t *testing.T) {
	s := newTestServer(t)

	rec := postGenerate(t, s, `{"seed": 7, "dims": {"x": 3, "y": 2, "z": 3}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	var detail RunDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if detail.ID == "" {
		t.Error("expected a run ID")
	}
	if detail.Status != runstore.StatusCompleted {
		t.Errorf("Status = %q, want %q", detail.Status, runstore.StatusCompleted)
	}
	if detail.Seed != 7 {
		t.Errorf("Seed = %d, want 7", detail.Seed)
	}
	if len(detail.Grid) != 18 {
		t.Errorf("grid length = %d, want 18", len(detail.Grid))
	}
	if detail.TileCount != 18 {
		t.Errorf("TileCount = %d, want 18", detail.TileCount)
	}
}

func TestHandleGenerate_InvalidDims(t *testing.T) {
	s := newTestServer(t)

	rec := postGenerate(t, s, `{"dims": {"x": 0, "y": 3, "z": 3}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGenerate_ExceedsCellLimit(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Generation.MaxCells = 10

	rec := postGenerate(t, s, `{"dims": {"x": 3, "y": 3, "z": 3}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGenerate_UnknownTileset(t *testing.T) {
	s := newTestServer(t)

	rec := postGenerate(t, s, `{"tileset": "missing", "dims": {"x": 2, "y": 2, "z": 2}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGenerate_BadBody(t *testing.T) {
	s := newTestServer(t)

	rec := postGenerate(t, s, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGetRun(t *testing.T) {
	s := newTestServer(t)

	rec := postGenerate(t, s, `{"seed": 3, "dims": {"x": 2, "y": 2, "z": 2}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d, want 200", rec.Code)
	}
	var created RunDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/runs/"+created.ID, nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got RunDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
	if len(got.Grid) != 8 {
		t.Errorf("grid length = %d, want 8", len(got.Grid))
	}
}

func TestHandleGetRun_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/missing", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleListRuns(t *testing.T) {
	s := newTestServer(t)

	for _, seed := range []string{"1", "2"} {
		rec := postGenerate(t, s, `{"seed": `+seed+`, "dims": {"x": 2, "y": 2, "z": 2}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("generate status = %d, want 200", rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var runs []RunSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestHandleDeleteRun_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := postGenerate(t, s, `{"seed": 1, "dims": {"x": 2, "y": 2, "z": 2}}`)
	var created RunDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	// No token
	req := httptest.NewRequest(http.MethodDelete, "/runs/"+created.ID, nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", rec.Code)
	}

	// Wrong token
	req = httptest.NewRequest(http.MethodDelete, "/runs/"+created.ID, nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with wrong token = %d, want 401", rec.Code)
	}

	// Correct token
	req = httptest.NewRequest(http.MethodDelete, "/runs/"+created.ID, nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status with correct token = %d, want 204", rec.Code)
	}

	// Run is gone
	req = httptest.NewRequest(http.MethodGet, "/runs/"+created.ID, nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rec.Code)
	}
}

func TestAuthorizeAdmin_DisabledWithoutHash(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Admin.TokenHash = ""

	req := httptest.NewRequest(http.MethodDelete, "/runs/any", nil)
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 when admin is disabled", rec.Code)
	}
}

func TestGenerate_SameSeedSameGrid(t *testing.T) {
	s := newTestServer(t)

	var grids [2][]int
	for i := range grids {
		rec := postGenerate(t, s, `{"seed": 99, "dims": {"x": 3, "y": 2, "z": 3}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("generate status = %d, want 200", rec.Code)
		}
		var detail RunDetail
		if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
			t.Fatal(err)
		}
		grids[i] = detail.Grid
	}

	if len(grids[0]) != len(grids[1]) {
		t.Fatalf("grid lengths differ: %d vs %d", len(grids[0]), len(grids[1]))
	}
	for i := range grids[0] {
		if grids[0][i] != grids[1][i] {
			t.Fatalf("grids diverge at %d: %d vs %d", i, grids[0][i], grids[1][i])
		}
	}
}
