package logging

import (
	"io"
	"os"
	"strings"

	"pinyinpal/internal/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Configure sets up logrus writing to the rotated log file. Interactive
// commands print their own output, so the log only reaches the terminal
// when logging.stdout is set.
func Configure(cfg *config.Config) (*logrus.Logger, error) {
	if err := config.MustStatePaths(cfg); err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetFormatter(formatter(cfg.Logging.Format))
	if lvl, err := logrus.ParseLevel(strings.ToLower(cfg.Logging.Level)); err == nil {
		logger.SetLevel(lvl)
	}
	logger.SetOutput(output(cfg))
	return logger, nil
}

func formatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "json") {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{FullTimestamp: true, DisableColors: true}
}

func output(cfg *config.Config) io.Writer {
	if cfg.Paths.LogPath == "" {
		return os.Stderr
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Paths.LogPath,
		MaxSize:    orDefault(cfg.Logging.MaxSizeMB, 20), // megabytes
		MaxBackups: orDefault(cfg.Logging.MaxBackups, 3),
		MaxAge:     orDefault(cfg.Logging.MaxAgeDays, 30),
	}
	if cfg.Logging.Stdout {
		return io.MultiWriter(os.Stdout, rotator)
	}
	return rotator
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}
