package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pinyinpal/internal/config"

	"github.com/sirupsen/logrus"
)

func TestConfigureWritesToLogPath(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "logs", "pinyinpal.log")
	cfg.Paths.RecordingsDir = filepath.Join(dir, "recordings")
	cfg.Store.Path = filepath.Join(dir, "pinyinpal.db")
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"

	logger, err := Configure(cfg)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level = %s", logger.GetLevel())
	}
	logger.Info("hidden")
	logger.Warn("visible")

	data, err := os.ReadFile(cfg.Paths.LogPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	got := string(data)
	if strings.Contains(got, "hidden") || !strings.Contains(got, `"msg":"visible"`) {
		t.Fatalf("log = %q", got)
	}
}

func TestFormatterSelection(t *testing.T) {
	if _, ok := formatter("JSON").(*logrus.JSONFormatter); !ok {
		t.Fatalf("json format should select JSONFormatter")
	}
	if _, ok := formatter("").(*logrus.TextFormatter); !ok {
		t.Fatalf("default should be TextFormatter")
	}
}

func TestOutputFallsBackToStderr(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Paths.LogPath = ""
	if output(cfg) != os.Stderr {
		t.Fatalf("empty log path should log to stderr")
	}
}
