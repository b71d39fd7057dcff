//go:build !whisper

package pronounce

import (
	"fmt"

	"pinyinpal/internal/config"

	"github.com/sirupsen/logrus"
)

// NewTranscriber is unavailable without the whisper build.
func NewTranscriber(cfg *config.Config, logger *logrus.Logger) (Transcriber, error) {
	return nil, fmt.Errorf("%w: build with '-tags whisper'", ErrTranscriberUnavailable)
}
