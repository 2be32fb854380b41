package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nsls2-sst/ucal-export/internal/config"
)

// readyContents is the block probed by the deployment once the trigger
// server listens.
func readyContents(conf *config.ServiceConfig, port int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version: %s\n", conf.Version)
	fmt.Fprintf(&b, "Build: %s\n", conf.Build)
	fmt.Fprintf(&b, "BuildDate: %s\n", conf.BuildDate)
	fmt.Fprintf(&b, "Port: %d\n", port)
	return b.String()
}

// SetReady writes the ready file of conf for a server listening on port.
func SetReady(conf *config.ServiceConfig, port int, logger *slog.Logger) error {
	filename := filepath.Clean(conf.ReadyFile)
	if err := os.WriteFile(filename, []byte(readyContents(conf, port)), 0o644); err != nil {
		logger.Error("Failed to write the ready file", "file", filename, "error", err.Error())
		return fmt.Errorf("failed to write the ready file %s: %w", filename, err)
	}
	logger.Info("Server ready", "file", filename, "port", port)
	return nil
}

// ClearReady removes the ready file, a missing file is not an error.
func ClearReady(conf *config.ServiceConfig, logger *slog.Logger) {
	if conf.ReadyFile == "" {
		return
	}
	if err := os.Remove(filepath.Clean(conf.ReadyFile)); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove the ready file", "file", conf.ReadyFile, "error", err.Error())
	}
}
