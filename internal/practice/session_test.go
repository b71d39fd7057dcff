package practice

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pinyinpal/internal/annotate"
	"pinyinpal/internal/capture"
	"pinyinpal/internal/logging"
	"pinyinpal/internal/phrases"
	"pinyinpal/internal/speech"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type memSlot struct {
	data []byte
	ok   bool
}

func (m *memSlot) Read() ([]byte, bool, error) { return m.data, m.ok, nil }

func (m *memSlot) Write(data []byte) error {
	m.data = append([]byte(nil), data...)
	m.ok = true
	return nil
}

type fakeSpeaker struct{ said []string }

func (f *fakeSpeaker) Speak(_ context.Context, text string) *speech.Utterance {
	f.said = append(f.said, text)
	return nil
}

type fakeRecorder struct {
	startErr error
	stopErr  error
	clip     *capture.Clip
	state    capture.State
}

func (f *fakeRecorder) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.state = capture.Recording
	return nil
}

func (f *fakeRecorder) Stop() (*capture.Clip, error) {
	f.state = capture.Idle
	return f.clip, f.stopErr
}

func (f *fakeRecorder) State() capture.State { return f.state }
func (f *fakeRecorder) Disabled() error      { return nil }

type fakePlayer struct{ played []string }

func (f *fakePlayer) Play(_ context.Context, c *capture.Clip) error {
	f.played = append(f.played, c.Path)
	return nil
}

func newSession(t *testing.T, texts ...string) (*Session, *fakeSpeaker) {
	t.Helper()
	logger := logging.NewTestLogger()
	annot := annotate.NewPinyin()
	store := phrases.Load(&memSlot{}, logger)
	for _, txt := range texts {
		key, err := annot.Key(txt)
		if err != nil {
			t.Fatalf("key %q: %v", txt, err)
		}
		if err := store.Save(txt, key); err != nil {
			t.Fatalf("save %q: %v", txt, err)
		}
	}
	sp := &fakeSpeaker{}
	return NewSession(Deps{Annotator: annot, Store: store, Speaker: sp, Logger: logger}), sp
}

func TestConvertRejectsEmptyInput(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.Convert("   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("no result expected")
	}
	if _, err := s.Convert("你好"); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if _, err := s.Convert(""); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if cur, _ := s.Current(); cur.Text != "你好" {
		t.Fatalf("current result replaced after failed convert: %+v", cur)
	}
}

func TestConvertProducesRubyAndKey(t *testing.T) {
	s, _ := newSession(t)
	res, err := s.Convert(" 你好! ")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Text != "你好!" || res.Key != "ni3 hao3 !" || res.Ruby() != "你(nǐ)好(hǎo)!" {
		t.Fatalf("result = %+v ruby=%q", res, res.Ruby())
	}
}

func TestConvertWithoutEngineLeavesStateAlone(t *testing.T) {
	logger := logging.NewTestLogger()
	s := NewSession(Deps{Annotator: annotate.New(nil), Store: phrases.Load(&memSlot{}, logger), Logger: logger})
	if _, err := s.Convert("你好"); !errors.Is(err, annotate.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("no result expected after failure")
	}
}

func TestSaveCurrentReportsDuplicate(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.SaveCurrent(); !errors.Is(err, ErrNothingToSave) {
		t.Fatalf("expected ErrNothingToSave, got %v", err)
	}
	if _, err := s.Convert("你好"); err != nil {
		t.Fatal(err)
	}
	n, err := s.SaveCurrent()
	if err != nil || !n.Saved || n.Text != NoticeSaved {
		t.Fatalf("first save = %+v, %v", n, err)
	}
	n, err = s.SaveCurrent()
	if err != nil || n.Saved || n.Text != NoticeDuplicate {
		t.Fatalf("second save = %+v, %v", n, err)
	}
	if cur, _ := s.Current(); !cur.Saved {
		t.Fatalf("current not marked saved: %+v", cur)
	}
	res, err := s.Convert("你好")
	if err != nil || !res.Saved {
		t.Fatalf("reconvert = %+v, %v", res, err)
	}
	res, err = s.Convert("农民")
	if err != nil || res.Saved {
		t.Fatalf("unsaved convert = %+v, %v", res, err)
	}
	v, err := s.View()
	if err != nil {
		t.Fatal(err)
	}
	if v.Total != 1 {
		t.Fatalf("total = %d, want 1", v.Total)
	}
}

func TestEmptyStoreFilteredView(t *testing.T) {
	s, _ := newSession(t)
	v, err := s.SelectFilter("ing_in")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Empty || v.EmptyMessage != EmptyListMessage || v.Total != 0 || len(v.Items) != 0 {
		t.Fatalf("view = %+v", v)
	}
}

func TestSelectFilter(t *testing.T) {
	s, _ := newSession(t, "你好", "哈哈", "农民")
	v, err := s.SelectFilter("n_l")
	if err != nil {
		t.Fatal(err)
	}
	if v.Total != 3 || len(v.Items) != 2 {
		t.Fatalf("view = %+v", v)
	}
	if v.Items[0].Text != "你好" || v.Items[1].Text != "农民" || v.Items[1].Pos != 2 {
		t.Fatalf("items = %+v", v.Items)
	}
	if v.Items[0].Ruby != "你(nǐ)好(hǎo)" {
		t.Fatalf("ruby = %q", v.Items[0].Ruby)
	}

	v, err = s.SelectFilter("no_such_pattern")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Items) != 3 {
		t.Fatalf("unknown filter should show everything, got %d", len(v.Items))
	}
}

func TestUnknownFilterIsLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	s := NewSession(Deps{Annotator: annotate.NewPinyin(), Store: phrases.Load(&memSlot{}, logger), Logger: logger})
	if _, err := s.SelectFilter("n_l"); err != nil {
		t.Fatal(err)
	}
	if len(hook.Entries) != 0 {
		t.Fatalf("known filter logged %v", hook.AllEntries())
	}
	if _, err := s.SelectFilter("zh_ch"); err != nil {
		t.Fatal(err)
	}
	last := hook.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %+v", last)
	}
}

func TestDeleteEntryUsesFilteredPosition(t *testing.T) {
	s, _ := newSession(t, "你好", "哈哈", "农民")
	if _, err := s.SelectFilter("n_l"); err != nil {
		t.Fatal(err)
	}
	v, err := s.DeleteEntry(2)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if v.Total != 2 || len(v.Items) != 1 || v.Items[0].Text != "你好" {
		t.Fatalf("view after delete = %+v", v)
	}
	all, err := s.SelectFilter("all")
	if err != nil {
		t.Fatal(err)
	}
	if all.Items[0].Text != "你好" || all.Items[1].Text != "哈哈" {
		t.Fatalf("remaining = %+v", all.Items)
	}
	if _, err := s.DeleteEntry(9); err == nil {
		t.Fatalf("expected error for out of range position")
	}
}

func TestSpeak(t *testing.T) {
	s, sp := newSession(t, "你好")
	if u := s.SpeakCurrent(context.Background()); u != nil {
		t.Fatalf("nothing to speak yet")
	}
	if _, err := s.Convert("谢谢"); err != nil {
		t.Fatal(err)
	}
	s.SpeakCurrent(context.Background())
	if _, err := s.SpeakEntry(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SpeakEntry(context.Background(), 2); err == nil {
		t.Fatalf("expected error for missing entry")
	}
	if fmt.Sprint(sp.said) != "[谢谢 你好]" {
		t.Fatalf("said = %v", sp.said)
	}
}

func TestRecordingStatusTexts(t *testing.T) {
	cases := []struct {
		name      string
		rec       *fakeRecorder
		startText string
		stopText  string
	}{
		{"ok", &fakeRecorder{clip: &capture.Clip{Path: "a.wav"}}, StatusRecording, StatusStopped},
		{"silent", &fakeRecorder{stopErr: capture.ErrNoAudioCaptured}, StatusRecording, StatusNoAudio},
		{"no mic", &fakeRecorder{startErr: capture.ErrDeviceUnavailable, stopErr: capture.ErrNotRecording}, StatusNoMicrophone, StatusIdle},
		{"no format", &fakeRecorder{startErr: fmt.Errorf("%w: %w", capture.ErrCaptureDisabled, capture.ErrNoSupportedEncoding), stopErr: capture.ErrNotRecording}, StatusNoFormat, StatusIdle},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, _ := newSession(t)
			s.d.Recorder = c.rec
			if got, _ := s.StartRecording(context.Background()); got != c.startText {
				t.Fatalf("start status = %q, want %q", got, c.startText)
			}
			if got, _ := s.StopRecording(); got != c.stopText {
				t.Fatalf("stop status = %q, want %q", got, c.stopText)
			}
		})
	}
}

func TestPlayRecording(t *testing.T) {
	s, _ := newSession(t)
	p := &fakePlayer{}
	s.d.Player = p
	s.d.Recorder = &fakeRecorder{clip: &capture.Clip{Path: "attempt.wav"}}
	if err := s.PlayRecording(context.Background()); !errors.Is(err, ErrNoRecording) {
		t.Fatalf("expected ErrNoRecording, got %v", err)
	}
	if _, err := s.StartRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StopRecording(); err != nil {
		t.Fatal(err)
	}
	if err := s.PlayRecording(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}
	if len(p.played) != 1 || p.played[0] != "attempt.wav" {
		t.Fatalf("played = %v", p.played)
	}
}
