package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/tileforge/internal/logger"
	"github.com/lawnchairsociety/tileforge/internal/wfc"
)

// wsProgress is streamed to the client at every cooperative yield.
type wsProgress struct {
	Type      string `json:"type"` // "progress"
	Steps     int    `json:"steps"`
	Yields    int    `json:"yields"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// wsResult is the final frame of a successful stream.
type wsResult struct {
	Type string    `json:"type"` // "result"
	Run  RunDetail `json:"run"`
}

// wsError is the final frame of a failed stream.
type wsError struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}

// handleWebSocketGenerate upgrades the connection, reads one
// GenerateRequest, and streams progress frames while the run executes.
// A client disconnect cancels the run at its next suspension point.
func (s *Server) handleWebSocketGenerate(w http.ResponseWriter, r *http.Request) {
	// Get the real client IP (supports X-Forwarded-For from reverse proxies)
	clientIP := getRealIP(r)

	// Check connection limits before upgrading
	if s.connLimiter != nil && !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	// Create upgrader with origin check based on server config
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		// Release the connection slot since upgrade failed
		if s.connLimiter != nil {
			s.connLimiter.Release(clientIP)
		}
		return
	}

	defer func() {
		if s.connLimiter != nil {
			s.connLimiter.Release(clientIP)
		}
		conn.Close()
	}()

	if s.cfg.WebSocket.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.WebSocket.MaxMessageSize)
	}

	s.streamGeneration(r.Context(), conn)
}

// streamGeneration runs the request read from the socket and writes
// progress frames at every yield. Only this goroutine writes to the
// connection; the read pump exists solely to observe disconnects.
func (s *Server) streamGeneration(parent context.Context, conn *websocket.Conn) {
	var req GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		logger.Debug("WebSocket request read failed", "error", err)
		return
	}

	if msg := s.validateDims(&req); msg != "" {
		conn.WriteJSON(wsError{Type: "error", Error: msg})
		return
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Read pump: any further read (including a close frame) ends the
	// run cooperatively.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	opts := s.options(&req)
	opts.Progress = func(p wfc.Progress) {
		frame := wsProgress{
			Type:      "progress",
			Steps:     p.Steps,
			Yields:    p.Yields,
			ElapsedMS: p.Elapsed.Milliseconds(),
		}
		if err := conn.WriteJSON(frame); err != nil {
			// Write failure means the client is gone; the read pump
			// will cancel shortly.
			logger.Debug("WebSocket progress write failed", "error", err)
		}
	}

	run, err := s.runGeneration(ctx, &req, opts)
	if err != nil {
		if errors.Is(err, wfc.ErrCancelled) {
			logger.Debug("WebSocket generation cancelled", "run_id", run.ID)
			return
		}
		conn.WriteJSON(wsError{Type: "error", Error: err.Error()})
		return
	}

	conn.WriteJSON(wsResult{
		Type: "result",
		Run:  RunDetail{RunSummary: summarize(run), Grid: run.Grid},
	})
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
