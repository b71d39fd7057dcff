//go:build portaudio

package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"pinyinpal/internal/config"

	"github.com/gordonklaus/portaudio"
	vad "github.com/maxhawkins/go-webrtcvad"
	"github.com/sirupsen/logrus"
)

type deviceSource struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewDeviceSource captures from the configured microphone via PortAudio.
func NewDeviceSource(cfg *config.Config, logger *logrus.Logger) Source {
	return &deviceSource{cfg: cfg, logger: logger}
}

type deviceStream struct {
	stream *portaudio.Stream
	buf    []int16
	logger *logrus.Logger
}

func (s *deviceSource) Open(ctx context.Context, f Format) (Stream, error) {
	if f.Channels < 1 {
		return nil, fmt.Errorf("audio.channels must be >= 1")
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio init: %v", ErrDeviceUnavailable, err)
	}
	dev, err := selectDevice(s.cfg.Audio.DeviceName)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	frameMS := s.cfg.Audio.FrameMS
	if frameMS <= 0 {
		frameMS = 20
	}
	frameSamples := f.SampleRate * frameMS / 1000
	buf := make([]int16, frameSamples*f.Channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: f.Channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: frameSamples,
	}, &buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream: %v", ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream: %v", ErrDeviceUnavailable, err)
	}
	s.logger.Infof("capture: recording from %s @ %d Hz", dev.Name, f.SampleRate)
	return &deviceStream{stream: stream, buf: buf, logger: s.logger}, nil
}

func (s *deviceStream) Read() ([]int16, error) {
	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			s.logger.Warn("capture: input overflow")
			return s.buf, nil
		}
		return nil, fmt.Errorf("stream read: %w", err)
	}
	return s.buf, nil
}

func (s *deviceStream) Close() error {
	stopErr := s.stream.Stop()
	closeErr := s.stream.Close()
	termErr := portaudio.Terminate()
	return errors.Join(stopErr, closeErr, termErr)
}

func selectDevice(preferred string) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if preferred != "" {
		for _, d := range devs {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferred)) {
				return d, nil
			}
		}
	}
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def, nil
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input devices found")
}

// Devices lists input devices.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	def, _ := portaudio.DefaultInputDevice()
	out := []Device{}
	for i, d := range devs {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, Device{
			Index:     i,
			Name:      d.Name,
			Channels:  d.MaxInputChannels,
			LatencyMs: d.DefaultLowInputLatency.Seconds() * 1000,
			Default:   def != nil && d.Name == def.Name,
		})
	}
	return out, nil
}

type vadGate struct {
	vad  *vad.VAD
	rate int
	buf  []byte
}

// NewVADGate returns a webrtc VAD gate for the configured sample rate.
func NewVADGate(cfg *config.Config) (Gate, error) {
	if cfg.Audio.Channels != 1 {
		return nil, fmt.Errorf("voice activity detection needs mono input; set audio.channels = 1")
	}
	switch cfg.Audio.FrameMS {
	case 10, 20, 30:
	default:
		return nil, fmt.Errorf("audio.frame_ms must be 10, 20, or 30 for vad (got %d)", cfg.Audio.FrameMS)
	}
	switch cfg.Audio.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("sample_rate must be 8k/16k/32k/48k for vad (got %d)", cfg.Audio.SampleRate)
	}
	v, err := vad.New()
	if err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}
	if err := v.SetMode(cfg.Audio.VADMode); err != nil {
		return nil, fmt.Errorf("vad mode: %w", err)
	}
	return &vadGate{vad: v, rate: cfg.Audio.SampleRate}, nil
}

func (g *vadGate) Voiced(frame []int16) bool {
	if cap(g.buf) < len(frame)*2 {
		g.buf = make([]byte, len(frame)*2)
	}
	b := g.buf[:len(frame)*2]
	for i, s := range frame {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	voiced, err := g.vad.Process(g.rate, b)
	if err != nil {
		// keep audio we cannot classify
		return true
	}
	return voiced
}
