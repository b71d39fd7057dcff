package capture

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"pinyinpal/internal/config"
	"pinyinpal/internal/logging"
)

// fakeSource hands out fakeStreams that replay fixed frames and then report
// nothing available until closed.
type fakeSource struct {
	frames  [][]int16
	openErr error
	opened  int
}

func (s *fakeSource) Open(context.Context, Format) (Stream, error) {
	s.opened++
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &fakeStream{frames: s.frames}, nil
}

type fakeStream struct {
	mu     sync.Mutex
	frames [][]int16
	closed bool
}

func (s *fakeStream) Read() ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type silenceGate struct{}

func (silenceGate) Voiced(frame []int16) bool {
	for _, s := range frame {
		if s != 0 {
			return true
		}
	}
	return false
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.RecordingsDir = t.TempDir()
	cfg.Audio.SampleRate = 8000
	cfg.Audio.Channels = 1
	return cfg
}

func waitCaptured(t *testing.T, r *Recorder, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.captured() < n {
		if time.Now().After(deadline) {
			t.Fatalf("captured %d frames, want %d", r.captured(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRecordAndStopWritesClip(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frames: [][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}}}
	r := NewRecorder(cfg, logging.NewTestLogger(), src)
	if r.MIMEType() != "audio/wav" {
		t.Fatalf("negotiated %q, want audio/wav", r.MIMEType())
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.State() != Recording {
		t.Fatalf("state = %s", r.State())
	}
	waitCaptured(t, r, 2)
	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.State() != Idle {
		t.Fatalf("state after stop = %s", r.State())
	}
	if clip.Samples != 8 || clip.MIMEType != "audio/wav" {
		t.Fatalf("clip = %+v", clip)
	}
	decoded, pcm, err := Decode(clip.Path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.SampleRate != 8000 || decoded.Channels != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
	want := []int16{1, 2, 3, 4, 5, 6, 7, 8}
	if len(pcm) != len(want) {
		t.Fatalf("pcm = %v", pcm)
	}
	for i := range want {
		if pcm[i] != want[i] {
			t.Fatalf("pcm = %v, want %v", pcm, want)
		}
	}
}

func TestStopWithoutAudio(t *testing.T) {
	cfg := testConfig(t)
	r := NewRecorder(cfg, logging.NewTestLogger(), &fakeSource{})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := r.Stop(); !errors.Is(err, ErrNoAudioCaptured) {
		t.Fatalf("expected ErrNoAudioCaptured, got %v", err)
	}
	entries, err := os.ReadDir(cfg.Paths.RecordingsDir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("no clip should be written, found %d files", len(entries))
	}
	// the recorder is reusable afterwards
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	_, _ = r.Stop()
}

func TestGateDropsSilence(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frames: [][]int16{{0, 0}, {0, 0}, {0, 0}}}
	r := NewRecorder(cfg, logging.NewTestLogger(), src)
	r.SetGate(silenceGate{})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := r.Stop(); !errors.Is(err, ErrNoAudioCaptured) {
		t.Fatalf("expected ErrNoAudioCaptured, got %v", err)
	}
}

func TestDeviceFailureDisablesRecorder(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{openErr: errors.New("permission denied")}
	r := NewRecorder(cfg, logging.NewTestLogger(), src)
	err := r.Start(context.Background())
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if r.State() != Idle {
		t.Fatalf("state = %s, want idle", r.State())
	}
	err = r.Start(context.Background())
	if !errors.Is(err, ErrCaptureDisabled) || !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected disabled recorder, got %v", err)
	}
	if src.opened != 1 {
		t.Fatalf("device opened %d times, want 1", src.opened)
	}
}

func TestStateTransitionsAreGuarded(t *testing.T) {
	cfg := testConfig(t)
	r := NewRecorder(cfg, logging.NewTestLogger(), &fakeSource{frames: [][]int16{{1}}})
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("stop while idle: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second start: %v", err)
	}
	waitCaptured(t, r, 1)
	if _, err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestNoSupportedEncodingDisablesRecorder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audio.Formats = []string{"audio/mp4", "audio/webm;codecs=opus"}
	r := NewRecorder(cfg, logging.NewTestLogger(), &fakeSource{})
	if !errors.Is(r.Disabled(), ErrNoSupportedEncoding) {
		t.Fatalf("disabled = %v", r.Disabled())
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrCaptureDisabled) {
		t.Fatalf("start: %v", err)
	}
}

func TestMaxSecondsCapsCapture(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audio.SampleRate = 2
	cfg.Audio.MaxSeconds = 1
	src := &fakeSource{frames: [][]int16{{1}, {2}, {3}, {4}}}
	r := NewRecorder(cfg, logging.NewTestLogger(), src)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCaptured(t, r, 2)
	time.Sleep(10 * time.Millisecond)
	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if clip.Samples != 2 {
		t.Fatalf("samples = %d, want 2", clip.Samples)
	}
}

func TestConcurrentStopFinalizesOnce(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frames: [][]int16{{1, 2, 3, 4}}}
	r := NewRecorder(cfg, logging.NewTestLogger(), src)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitCaptured(t, r, 1)

	const callers = 4
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Stop()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	finalized := 0
	for err := range errs {
		switch {
		case err == nil:
			finalized++
		case errors.Is(err, ErrNotRecording):
		default:
			t.Fatalf("stop: %v", err)
		}
	}
	if finalized != 1 {
		t.Fatalf("%d stops finalized the clip, want 1", finalized)
	}
	if r.State() != Idle {
		t.Fatalf("state = %s", r.State())
	}
}
