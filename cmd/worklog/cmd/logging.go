package cmd

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/brianly1003/worklog-ingest/internal/config"
)

// setupLogging configures the global zerolog logger from cfg.Logging,
// following the teacher's start.go: a console writer for terminal use or
// raw JSON, with an optional lumberjack-backed rotating file sink layered
// on top for the per-run processing log.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if cfg.Logging.Format == "json" && !verbose {
		writers = append(writers, os.Stderr)
	} else {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if cfg.Logging.Rotation.Enabled {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.Logging.Rotation.Path,
			MaxSize:    cfg.Logging.Rotation.MaxSizeMB,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			MaxAge:     cfg.Logging.Rotation.MaxAgeDays,
			Compress:   cfg.Logging.Rotation.Compress,
		})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

// consoleLogger returns a tint-colorized slog.Logger for the handful of
// human-facing startup/shutdown lines the CLI itself prints, the way
// workspace_manager.go keeps a separate slog logger alongside the
// package-wide zerolog logger.
func consoleLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
