// Package server exposes tile generation over HTTP and WebSocket:
// synchronous generation, run history queries, and live progress
// streaming with client-driven cancellation.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lawnchairsociety/tileforge/internal/config"
	"github.com/lawnchairsociety/tileforge/internal/logger"
	"github.com/lawnchairsociety/tileforge/internal/runstore"
	"github.com/lawnchairsociety/tileforge/internal/tileset"
)

// Server is the tileforge HTTP server.
type Server struct {
	cfg         *config.ServerConfig
	tilesets    map[string]*tileset.Registry
	store       *runstore.Database
	connLimiter *ConnLimiter
	httpServer  *http.Server
}

// NewServer creates a server over the given tileset registries and run
// store. The registries map tileset names to prototypes; requests name
// the tileset they want.
func NewServer(cfg *config.ServerConfig, tilesets map[string]*tileset.Registry, store *runstore.Database) *Server {
	s := &Server{
		cfg:         cfg,
		tilesets:    tilesets,
		store:       store,
		connLimiter: NewConnLimiter(cfg.Connections),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("DELETE /runs/{id}", s.handleDeleteRun)
	mux.HandleFunc("GET /ws/generate", s.handleWebSocketGenerate)

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // Streaming responses manage their own deadlines
	}

	return s
}

// Start runs the HTTP server until Shutdown is called. It blocks.
func (s *Server) Start() error {
	logger.Info("server listening", "address", s.cfg.Listen)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// registry resolves a tileset name to its registry. An empty name
// selects "basic".
func (s *Server) registry(name string) (*tileset.Registry, bool) {
	if name == "" {
		name = "basic"
	}
	reg, ok := s.tilesets[name]
	return reg, ok
}

// getRealIP extracts the real client IP from an HTTP request.
// It checks X-Forwarded-For header first (for reverse proxy setups),
// then falls back to the direct remote address.
func getRealIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by reverse proxies like nginx)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
		// The first one is the original client
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			clientIP := strings.TrimSpace(ips[0])
			if clientIP != "" {
				return clientIP
			}
		}
	}

	// Check X-Real-IP header (alternative header used by some proxies)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return extractIP(r.RemoteAddr)
}
