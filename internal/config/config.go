package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultSlotName      = "savedWords"
	defaultSpeechRate    = 0.9
	defaultSampleRate    = 16000
	defaultStateDirLinux = ".local/state/pinyinpal"
	defaultConfigDir     = ".config/pinyinpal"
)

// DefaultFormats is the recording format preference list, best first.
var DefaultFormats = []string{
	"audio/mp4",
	"audio/webm;codecs=opus",
	"audio/ogg;codecs=opus",
	"audio/wav",
}

// Config holds user configuration loaded from TOML.
type Config struct {
	Store struct {
		Backend string `toml:"backend"` // sqlite, file
		Path    string `toml:"path"`
		Slot    string `toml:"slot"`
	} `toml:"store"`

	Speech struct {
		Command    string  `toml:"command"`
		Args       string  `toml:"args"` // shell-style, supports ${voice} ${wpm} ${lang}
		Voice      string  `toml:"voice"`
		Language   string  `toml:"language"`
		Rate       float64 `toml:"rate"` // 1.0 = engine default
		TimeoutSec float64 `toml:"timeout_sec"`
	} `toml:"speech"`

	Audio struct {
		DeviceName string   `toml:"device_name"`
		SampleRate int      `toml:"sample_rate"`
		Channels   int      `toml:"channels"`
		FrameMS    int      `toml:"frame_ms"`
		Formats    []string `toml:"formats"`
		VAD        bool     `toml:"vad"`
		VADMode    int      `toml:"vad_mode"`
		MaxSeconds int      `toml:"max_seconds"`
	} `toml:"audio"`

	ASR struct {
		ModelPath string `toml:"model_path"`
		Language  string `toml:"language"`
	} `toml:"asr"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
		// rotation of paths.log_path
		MaxSizeMB  int `toml:"max_size_mb"`
		MaxBackups int `toml:"max_backups"`
		MaxAgeDays int `toml:"max_age_days"`
	} `toml:"logging"`

	Paths struct {
		StateDir      string `toml:"state_dir"`
		LogPath       string `toml:"log_path"`
		RecordingsDir string `toml:"recordings_dir"`
		ModelsDir     string `toml:"models_dir"`
		ConfigPath    string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "pinyinpal")
	}

	cfg := &Config{}

	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = filepath.Join(stateDir, "pinyinpal.db")
	cfg.Store.Slot = DefaultSlotName

	cfg.Speech.Command = "espeak-ng"
	cfg.Speech.Args = "-v ${voice} -s ${wpm}"
	cfg.Speech.Voice = "cmn"
	if isMac() {
		cfg.Speech.Command = "say"
		cfg.Speech.Args = "-v ${voice} -r ${wpm}"
		cfg.Speech.Voice = "Tingting"
	}
	cfg.Speech.Language = "zh-CN"
	cfg.Speech.Rate = defaultSpeechRate
	cfg.Speech.TimeoutSec = 60

	cfg.Audio.SampleRate = defaultSampleRate
	cfg.Audio.Channels = 1
	cfg.Audio.FrameMS = 20
	cfg.Audio.Formats = append([]string(nil), DefaultFormats...)
	cfg.Audio.VAD = true
	cfg.Audio.VADMode = 2
	cfg.Audio.MaxSeconds = 30

	cfg.ASR.ModelPath = filepath.Join(stateDir, "models", "ggml-small-q5_1.bin")
	cfg.ASR.Language = "zh"

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.MaxSizeMB = 20
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 30

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "pinyinpal.log")
	cfg.Paths.RecordingsDir = filepath.Join(stateDir, "recordings")
	cfg.Paths.ModelsDir = filepath.Join(stateDir, "models")

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{
		cfg.Paths.StateDir,
		filepath.Dir(cfg.Paths.LogPath),
		cfg.Paths.RecordingsDir,
		filepath.Dir(cfg.Store.Path),
	} {
		if p == "" || p == "." {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PINYINPAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PINYINPAL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PINYINPAL_LOG_STDOUT"); v != "" {
		cfg.Logging.Stdout = v != "0" && strings.ToLower(v) != "false"
	}
	if v := os.Getenv("PINYINPAL_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("PINYINPAL_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PINYINPAL_SPEECH_COMMAND"); v != "" {
		cfg.Speech.Command = v
	}
	if v := os.Getenv("PINYINPAL_AUDIO_DEVICE"); v != "" {
		cfg.Audio.DeviceName = v
	}
}
