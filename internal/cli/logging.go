package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/prts-dev/pipesync/internal/config"
)

// newLogger builds the process logger from config. When log.file is set,
// output goes there instead of w; the returned func closes it.
func newLogger(cfg config.Config, w io.Writer) (*log.Logger, func() error, error) {
	level, err := log.ParseLevel(cfg.LogLevelOrDefault())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevelOrDefault(), err)
	}

	closeFn := func() error { return nil }
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0700); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	return logger, closeFn, nil
}
