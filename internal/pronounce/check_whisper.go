//go:build whisper

package pronounce

import (
	"context"
	"fmt"
	"os"
	"strings"

	"pinyinpal/internal/capture"
	"pinyinpal/internal/config"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/sirupsen/logrus"
)

type whisperTranscriber struct {
	modelPath string
	language  string
	logger    *logrus.Logger
}

// NewTranscriber loads nothing up front; the model is opened per clip.
func NewTranscriber(cfg *config.Config, logger *logrus.Logger) (Transcriber, error) {
	path := os.ExpandEnv(cfg.ASR.ModelPath)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("whisper model %s: %w (run 'pinyinpal models download')", path, err)
	}
	return &whisperTranscriber{modelPath: path, language: cfg.ASR.Language, logger: logger}, nil
}

func (w *whisperTranscriber) Transcribe(ctx context.Context, clipPath string) (string, error) {
	clip, pcm, err := capture.Decode(clipPath)
	if err != nil {
		return "", err
	}
	samples := resampleLinear(toMonoFloat(pcm, clip.Channels), clip.SampleRate, whisper.SampleRate)

	model, err := whisper.New(w.modelPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = model.Close() }()
	wctx, err := model.NewContext()
	if err != nil {
		return "", err
	}
	if lang := strings.TrimSpace(w.language); lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			w.logger.Warnf("whisper: language %q: %v", lang, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			break
		}
		b.WriteString(strings.TrimSpace(seg.Text))
	}
	w.logger.Debugf("whisper: %s -> %q", clipPath, b.String())
	return b.String(), nil
}
