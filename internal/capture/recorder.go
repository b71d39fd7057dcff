// Package capture records the learner's voice into a replayable clip.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pinyinpal/internal/config"

	"github.com/sirupsen/logrus"
)

var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrNoAudioCaptured   = errors.New("no audio captured")
	ErrAlreadyRecording  = errors.New("already recording")
	ErrNotRecording      = errors.New("not recording")
	ErrCaptureDisabled   = errors.New("recording disabled")
)

// State of a Recorder.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Stream yields frames of interleaved 16-bit PCM. Read may return an empty
// frame when nothing is available yet.
type Stream interface {
	Read() ([]int16, error)
	Close() error
}

// Source opens capture streams.
type Source interface {
	Open(ctx context.Context, f Format) (Stream, error)
}

// Gate decides whether a frame carries speech.
type Gate interface {
	Voiced(frame []int16) bool
}

// Recorder is a two-state machine: Idle --Start--> Recording --Stop--> Idle.
// Once the device or encoder fails, the recorder stays disabled.
type Recorder struct {
	cfg     *config.Config
	logger  *logrus.Logger
	source  Source
	encoder Encoder
	gate    Gate
	format  Format

	mu       sync.Mutex
	state    State
	disabled error
	stream   Stream
	frames   [][]int16
	samples  int
	stopping bool
	stop     chan struct{}
	done     chan struct{}
	readErr  error
	now      func() time.Time
}

// NewRecorder negotiates an encoder from cfg.Audio.Formats. When none is
// supported the recorder is returned disabled.
func NewRecorder(cfg *config.Config, logger *logrus.Logger, source Source) *Recorder {
	r := &Recorder{
		cfg:    cfg,
		logger: logger,
		source: source,
		format: Format{SampleRate: cfg.Audio.SampleRate, Channels: cfg.Audio.Channels},
		now:    time.Now,
	}
	enc, err := Negotiate(cfg.Audio.Formats)
	if err != nil {
		r.disabled = err
		logger.Errorf("capture: %v", err)
		return r
	}
	r.encoder = enc
	logger.Debugf("capture: recording format %s", enc.MIMEType())
	return r
}

// SetGate installs a speech gate; frames it rejects are not kept.
func (r *Recorder) SetGate(g Gate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = g
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Disabled returns the reason recording is unavailable, or nil.
func (r *Recorder) Disabled() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled
}

// MIMEType returns the negotiated format, or "" when disabled.
func (r *Recorder) MIMEType() string {
	if r.encoder == nil {
		return ""
	}
	return r.encoder.MIMEType()
}

// captured returns the number of frames kept so far.
func (r *Recorder) captured() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Start opens the device and begins accumulating frames.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disabled != nil {
		return fmt.Errorf("%w: %w", ErrCaptureDisabled, r.disabled)
	}
	if r.state == Recording {
		return ErrAlreadyRecording
	}
	stream, err := r.source.Open(ctx, r.format)
	if err != nil {
		if !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		r.disabled = err
		r.logger.Errorf("capture: %v", err)
		return err
	}
	r.stream = stream
	r.frames = nil
	r.samples = 0
	r.readErr = nil
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.state = Recording
	go r.loop(stream, r.stop, r.done)
	r.logger.Debugf("capture: recording started")
	return nil
}

func (r *Recorder) loop(stream Stream, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	limit := 0
	if r.cfg.Audio.MaxSeconds > 0 {
		limit = r.cfg.Audio.MaxSeconds * r.format.SampleRate * max(1, r.format.Channels)
	}
	for {
		select {
		case <-stop:
			return
		default:
		}
		frame, err := stream.Read()
		if err != nil {
			r.mu.Lock()
			r.readErr = err
			r.mu.Unlock()
			r.logger.Warnf("capture: stream read: %v", err)
			return
		}
		if len(frame) == 0 {
			continue
		}
		r.mu.Lock()
		gate := r.gate
		r.mu.Unlock()
		if gate != nil && !gate.Voiced(frame) {
			continue
		}
		cp := make([]int16, len(frame))
		copy(cp, frame)
		r.mu.Lock()
		if limit > 0 && r.samples+len(cp) > limit {
			r.mu.Unlock()
			r.logger.Infof("capture: reached %ds limit", r.cfg.Audio.MaxSeconds)
			return
		}
		r.frames = append(r.frames, cp)
		r.samples += len(cp)
		r.mu.Unlock()
	}
}

// Stop finalizes the accumulated frames into a clip file. With nothing
// captured it returns ErrNoAudioCaptured and writes no file.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	if r.state != Recording || r.stopping {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.stopping = true
	stop, done, stream := r.stop, r.done, r.stream
	r.mu.Unlock()

	close(stop)
	<-done
	if err := stream.Close(); err != nil {
		r.logger.Warnf("capture: close stream: %v", err)
	}

	r.mu.Lock()
	frames, samples, readErr := r.frames, r.samples, r.readErr
	r.frames = nil
	r.samples = 0
	r.stream = nil
	r.state = Idle
	r.stopping = false
	r.mu.Unlock()

	if samples == 0 {
		if readErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoAudioCaptured, readErr)
		}
		return nil, ErrNoAudioCaptured
	}
	pcm := make([]int, 0, samples)
	for _, f := range frames {
		for _, s := range f {
			pcm = append(pcm, int(s))
		}
	}
	return r.write(pcm)
}

func (r *Recorder) write(pcm []int) (*Clip, error) {
	dir := r.cfg.Paths.RecordingsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("attempt-%s%s", r.now().Format("20060102-150405.000"), r.encoder.Extension())
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := r.encoder.Encode(f, pcm, r.format); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	clip := &Clip{
		Path:       path,
		MIMEType:   r.encoder.MIMEType(),
		SampleRate: r.format.SampleRate,
		Channels:   r.format.Channels,
		Samples:    len(pcm),
		Duration:   clipDuration(len(pcm), r.format.SampleRate, r.format.Channels),
	}
	r.logger.Infof("capture: wrote %s (%s)", path, clip.Duration)
	return clip, nil
}

// Player plays a finished clip.
type Player interface {
	Play(ctx context.Context, clip *Clip) error
}
