package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/marcelocantos/auditsum/internal/config"
	"github.com/marcelocantos/auditsum/internal/logging"
	"github.com/marcelocantos/auditsum/internal/runlog"
)

// loadConfig reads the config at path, or the standard location when path
// is empty. An explicit path must exist.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return config.LoadFrom(path)
}

func newLogger(stderr io.Writer, level string) (*zap.SugaredLogger, error) {
	return logging.New(stderr, level)
}

// openHistory returns nil when history is disabled or unavailable. Run
// history is best-effort and never fails a run.
func openHistory(cfg *config.Config, log *zap.SugaredLogger) *runlog.Logger {
	if !cfg.History.On() || cfg.History.Path == "" {
		return nil
	}
	h, err := runlog.NewLogger(cfg.History.Path)
	if err != nil {
		log.Warnw("run history unavailable", "path", cfg.History.Path, "error", err)
		return nil
	}
	return h
}
