// Package logging configures the process-wide logrus logger: colored console
// output plus an optional rotating file.
package logging

import (
	"fmt"
	"io"

	"FirepowerKit/internal/config"

	"github.com/mattn/go-colorable"
	"github.com/orandin/lumberjackrus"
	"github.com/sirupsen/logrus"
)

// Setup applies cfg to the standard logrus logger, which every package reaches
// through the "log" import alias.
func Setup(cfg config.LogConfig) error {
	return Configure(logrus.StandardLogger(), cfg, colorable.NewColorableStderr())
}

// Configure applies cfg to logger and writes console output to out.
func Configure(logger *logrus.Logger, cfg config.LogConfig, out io.Writer) error {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})

	if cfg.File == "" {
		return nil
	}

	var fileFormatter logrus.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	if cfg.JSON {
		fileFormatter = &logrus.JSONFormatter{}
	}
	hook, err := lumberjackrus.NewHook(
		&lumberjackrus.LogFile{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		},
		level,
		fileFormatter,
		&lumberjackrus.LogFileOpts{},
	)
	if err != nil {
		return fmt.Errorf("failed to create log file hook: %w", err)
	}
	logger.AddHook(hook)
	return nil
}
