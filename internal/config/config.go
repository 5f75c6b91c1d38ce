package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-wide configuration settings.
type ServerConfig struct {
	// Listen is the host:port the HTTP server binds to.
	Listen string `yaml:"listen"`

	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	Generation  GenerationConfig  `yaml:"generation"`
	Store       StoreConfig       `yaml:"store"`
	Admin       AdminConfig       `yaml:"admin"`
}

// GenerationConfig holds the default budgets applied to generation
// requests that don't set their own.
type GenerationConfig struct {
	// YieldEvery is the number of solver steps between cooperative yields.
	YieldEvery int `yaml:"yield_every"`

	// MaxSteps caps the total solver steps per run. 0 means unlimited.
	MaxSteps int `yaml:"max_steps"`

	// MaxYields caps the cooperative yields per run. 0 means unlimited.
	MaxYields int `yaml:"max_yields"`

	// StallTimeoutSeconds bounds wall-clock time per run, measured from
	// the first yield. 0 means unlimited.
	StallTimeoutSeconds int `yaml:"stall_timeout_seconds"`

	// MaxCells is the largest grid (X*Y*Z) a request may ask for.
	// 0 means unlimited.
	MaxCells int `yaml:"max_cells"`
}

// StallTimeout returns the configured stall timeout as a duration.
func (c *GenerationConfig) StallTimeout() time.Duration {
	return time.Duration(c.StallTimeoutSeconds) * time.Second
}

// StoreConfig holds run persistence settings.
type StoreConfig struct {
	// Dialect selects the database backend: "sqlite" or "postgres".
	Dialect string `yaml:"dialect"`

	// Path is the SQLite database file path. Ignored for postgres.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string. Ignored for sqlite.
	DSN string `yaml:"dsn"`
}

// AdminConfig holds settings for the privileged endpoints.
type AdminConfig struct {
	// TokenHash is the bcrypt hash of the admin token. Empty disables
	// the privileged endpoints entirely.
	TokenHash string `yaml:"token_hash"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns a ServerConfig with secure defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Listen: "127.0.0.1:8373",
		WebSocket: WebSocketConfig{
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 4,  // Default: 4 connections per IP
			MaxTotal: 64, // Default: 64 total connections
		},
		Generation: GenerationConfig{
			YieldEvery:          500,
			MaxSteps:            500000,
			MaxYields:           2000,
			StallTimeoutSeconds: 60,
			MaxCells:            262144, // 64x64x64
		},
		Store: StoreConfig{
			Dialect: "sqlite",
			Path:    "data/tileforge.db",
		},
		Admin: AdminConfig{
			TokenHash: "", // Privileged endpoints disabled by default
		},
	}
}

// LoadConfig loads server configuration from a YAML file.
// If the file doesn't exist or can't be parsed, returns default config.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Use defaults if file doesn't exist
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	// If no origins configured, enforce same-origin policy
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		// Wildcard allows all origins
		if allowed == "*" {
			return true
		}
		// Exact match
		if allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// Extract host from origin URL (e.g., "http://localhost:3000" -> "localhost:3000")
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	// Remove trailing slash if present
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
