package doctor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"pinyinpal/internal/annotate"
	"pinyinpal/internal/capture"
	"pinyinpal/internal/config"
	"pinyinpal/internal/phrases"
	"pinyinpal/internal/speech"

	"github.com/sirupsen/logrus"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail"`
}

// Run executes doctor checks.
func Run(cfg *config.Config, logger *logrus.Logger) []Result {
	return []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkStore(cfg),
		checkPinyin(annotate.NewPinyin()),
		checkSpeech(speech.NewSpeaker(cfg, logger), cfg.Speech.Command),
		checkFormats(cfg.Audio.Formats),
		checkFile("model file", cfg.ASR.ModelPath),
		checkPortAudioPkgConfig(),
		checkPortAudio(),
	}
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkStore(cfg *config.Config) Result {
	label := "store"
	slot, closeFn, err := phrases.OpenSlot(cfg.Store.Backend, cfg.Store.Path, cfg.Store.Slot)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	defer func() { _ = closeFn() }()
	n, err := phrases.Inspect(slot)
	switch {
	case errors.Is(err, phrases.ErrCorruptSlot):
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("%v; it will load as empty", err)}
	case err != nil:
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: fmt.Sprintf("%s %s (%d phrases)", cfg.Store.Backend, cfg.Store.Path, n)}
}

func checkPinyin(a *annotate.Annotator) Result {
	key, err := a.Key("你好")
	if err != nil {
		return Result{Name: "pinyin", Pass: false, Detail: err.Error()}
	}
	if key != "ni3 hao3" {
		return Result{Name: "pinyin", Pass: false, Detail: fmt.Sprintf("unexpected reading %q", key)}
	}
	return Result{Name: "pinyin", Pass: true, Detail: "你好 -> " + key}
}

func checkFormats(prefs []string) Result {
	enc, err := capture.Negotiate(prefs)
	if err != nil {
		return Result{Name: "rec format", Pass: false, Detail: err.Error()}
	}
	detail := enc.MIMEType()
	var skipped []string
	for _, p := range prefs {
		if !capture.Supported(p) {
			skipped = append(skipped, strings.TrimSpace(p))
		}
	}
	if len(skipped) > 0 {
		detail += " (unsupported: " + strings.Join(skipped, ", ") + ")"
	}
	return Result{Name: "rec format", Pass: true, Detail: detail}
}

func checkSpeech(sp *speech.Speaker, command string) Result {
	label := "speech.command"
	resolved, err := sp.Available()
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error() + speechHint(command)}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func speechHint(cmd string) string {
	if cmd == "espeak-ng" {
		return " (apt install espeak-ng)"
	}
	return ""
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: false, Detail: "pkg-config not found"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio", Pass: false, Detail: "portaudio-2.0 not found (brew install portaudio / apt install portaudio19-dev)"}
	}
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio", Pass: true, Detail: "found via pkg-config"}
}
