package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/tileforge/internal/config"
	"github.com/lawnchairsociety/tileforge/internal/logger"
	"github.com/lawnchairsociety/tileforge/internal/runstore"
	"github.com/lawnchairsociety/tileforge/internal/server"
	"github.com/lawnchairsociety/tileforge/internal/tileset"
)

func main() {
	serverConfigFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	tilesetFiles := flag.String("tilesets", "", "Comma-separated tileset YAML files to load alongside the built-in basic tileset")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	logger.Info("Starting tileforge daemon")

	// Load and set server config
	cfg, err := config.LoadConfig(*serverConfigFile)
	if err != nil {
		logger.Warning("Failed to load server config, using defaults", "path", *serverConfigFile, "error", err)
		cfg = config.DefaultConfig()
	}

	if len(cfg.WebSocket.AllowedOrigins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(cfg.WebSocket.AllowedOrigins) == 1 && cfg.WebSocket.AllowedOrigins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", cfg.WebSocket.AllowedOrigins)
	}
	if cfg.Admin.TokenHash == "" {
		logger.Info("Admin endpoints disabled (no token hash configured)")
	}

	// Load tilesets
	tilesets, err := loadTilesets(*tilesetFiles)
	if err != nil {
		log.Fatalf("Failed to load tilesets: %v", err)
	}
	logger.Info("Tilesets loaded", "count", len(tilesets))

	// Open the run store
	store, err := runstore.Open(runstore.Config{
		Dialect: cfg.Store.Dialect,
		Path:    cfg.Store.Path,
		DSN:     cfg.Store.DSN,
	})
	if err != nil {
		log.Fatalf("Failed to open run store: %v", err)
	}
	defer store.Close()
	logger.Info("Run store initialized", "dialect", cfg.Store.Dialect)

	srv := server.NewServer(cfg, tilesets, store)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	logger.Info("Daemon running", "address", cfg.Listen)
	logger.Info("Press Ctrl+C to shutdown")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Daemon stopped")
}

// loadTilesets builds the registry map: the built-in basic tileset plus
// any YAML files named on the command line, keyed by tileset name.
func loadTilesets(files string) (map[string]*tileset.Registry, error) {
	tilesets := map[string]*tileset.Registry{
		"basic": tileset.BasicTileset(),
	}

	if files == "" {
		return tilesets, nil
	}

	for _, path := range strings.Split(files, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		reg, err := tileset.LoadFromYAML(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		name := reg.Name()
		if name == "" {
			return nil, fmt.Errorf("tileset %s has no name", path)
		}
		if _, exists := tilesets[name]; exists {
			return nil, fmt.Errorf("duplicate tileset name %q from %s", name, path)
		}
		tilesets[name] = reg
	}
	return tilesets, nil
}
