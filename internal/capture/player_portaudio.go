//go:build portaudio

package capture

import (
	"context"
	"errors"
	"fmt"

	"pinyinpal/internal/config"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

const playbackFrames = 1024

type devicePlayer struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewDevicePlayer plays clips on the default output device.
func NewDevicePlayer(cfg *config.Config, logger *logrus.Logger) Player {
	return &devicePlayer{cfg: cfg, logger: logger}
}

func (p *devicePlayer) Play(ctx context.Context, clip *Clip) error {
	decoded, pcm, err := Decode(clip.Path)
	if err != nil {
		return err
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: portaudio init: %v", ErrDeviceUnavailable, err)
	}
	defer func() { _ = portaudio.Terminate() }()

	out := make([]int16, playbackFrames*decoded.Channels)
	stream, err := portaudio.OpenDefaultStream(0, decoded.Channels, float64(decoded.SampleRate), playbackFrames, &out)
	if err != nil {
		return fmt.Errorf("%w: open output: %v", ErrDeviceUnavailable, err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("%w: start output: %v", ErrDeviceUnavailable, err)
	}
	defer stream.Stop()

	p.logger.Debugf("playback: %s (%s)", decoded.Path, decoded.Duration)
	for off := 0; off < len(pcm); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, pcm[off:])
		clear(out[n:])
		if err := stream.Write(); err != nil {
			if errors.Is(err, portaudio.OutputUnderflowed) {
				continue
			}
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
