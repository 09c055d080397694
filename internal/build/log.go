package build

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LogConfig describes where and how verbosely the daemon logs.
type LogConfig struct {
	// Dir is the directory for the rotating log file. Empty disables file
	// logging.
	Dir string

	// Level is the log level name (trace, debug, info, warn, error,
	// critical).
	Level string

	// MaxFiles and MaxFileSizeMB override the rotator defaults when
	// positive.
	MaxFiles      int
	MaxFileSizeMB int
}

// InitLogging builds the daemon's root handler set: a console handler on
// stdout plus, when a log directory is configured, a rotating gzip'd log
// file. It returns the set and a cleanup function closing the rotator.
func InitLogging(cfg LogConfig) (*HandlerSet, func(), error) {
	handlers := []btclogv2.Handler{
		btclogv2.NewDefaultHandler(os.Stdout),
	}
	cleanup := func() {}

	if cfg.Dir != "" {
		rotCfg := DefaultLogRotatorConfig(cfg.Dir)
		if cfg.MaxFiles > 0 {
			rotCfg.MaxLogFiles = cfg.MaxFiles
		}
		if cfg.MaxFileSizeMB > 0 {
			rotCfg.MaxLogFileSize = cfg.MaxFileSizeMB
		}

		writer := NewRotatingLogWriter()
		if err := writer.InitLogRotator(rotCfg); err != nil {
			return nil, nil, fmt.Errorf("init log rotator: %w", err)
		}

		handlers = append(handlers, btclogv2.NewDefaultHandler(writer))
		cleanup = func() {
			_ = writer.Close()
		}
	}

	set := NewHandlerSet(handlers...)

	if cfg.Level != "" {
		level, ok := btclog.LevelFromString(cfg.Level)
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf(
				"unknown log level %q", cfg.Level,
			)
		}
		set.SetLevel(level)
	}

	return set, cleanup, nil
}
