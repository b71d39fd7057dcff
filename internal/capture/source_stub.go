//go:build !portaudio

package capture

import (
	"context"
	"fmt"

	"pinyinpal/internal/config"

	"github.com/sirupsen/logrus"
)

type stubSource struct{}

func (stubSource) Open(context.Context, Format) (Stream, error) {
	return nil, fmt.Errorf("%w: build with '-tags portaudio' to enable recording", ErrDeviceUnavailable)
}

// NewDeviceSource returns a source that always fails without PortAudio.
func NewDeviceSource(cfg *config.Config, logger *logrus.Logger) Source {
	return stubSource{}
}

// NewVADGate is unavailable without the native build.
func NewVADGate(cfg *config.Config) (Gate, error) {
	return nil, fmt.Errorf("build with '-tags portaudio' to enable voice activity detection")
}

type stubPlayer struct{}

func (stubPlayer) Play(context.Context, *Clip) error {
	return fmt.Errorf("%w: build with '-tags portaudio' to enable playback", ErrDeviceUnavailable)
}

// NewDevicePlayer returns a player that always fails without PortAudio.
func NewDevicePlayer(cfg *config.Config, logger *logrus.Logger) Player {
	return stubPlayer{}
}

// Devices lists input devices; unavailable without PortAudio.
func Devices() ([]Device, error) {
	return nil, fmt.Errorf("%w: build with '-tags portaudio' to list microphones", ErrDeviceUnavailable)
}
