package main

import (
	"log/slog"
	"os"

	"github.com/framescope/framescope/cmd"
	"github.com/framescope/framescope/internal/buildinfo"
	"github.com/framescope/framescope/internal/conf"
	"github.com/framescope/framescope/internal/logging"
)

func main() {
	logging.Init()

	settings := conf.Load()

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
		logging.SetLevel(level)
	}

	if settings.Main.Log.Enabled {
		fileLogger, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, "main", level)
		if err != nil {
			logging.Warn("failed to open log file, logging to console only",
				"path", settings.Main.Log.Path,
				"error", err)
		} else {
			defer func() { _ = closeLog() }()
			fileLogger.Info("starting", "version", buildinfo.GetVersion())
		}
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Error("command failed", "error", err)
		os.Exit(1)
	}
}
