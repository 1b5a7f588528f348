package logging

import (
	"log/slog"
)

// SetupShellMode initializes logging for the interactive shell. The shell
// owns the terminal, so records go to the log file only and stderr stays
// clean for prompts and results.
func SetupShellMode(cfg Config) (func(), error) {
	cfg.WriteToStderr = false
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultLogPath()
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSON
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Debug("shell logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
