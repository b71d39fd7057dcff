// Package practice drives one learner session: convert, listen, save,
// review by confusion pattern, and record attempts.
package practice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pinyinpal/internal/annotate"
	"pinyinpal/internal/capture"
	"pinyinpal/internal/confusion"
	"pinyinpal/internal/phrases"
	"pinyinpal/internal/pronounce"
	"pinyinpal/internal/speech"

	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyInput    = errors.New("enter some Mandarin text first")
	ErrNothingToSave = errors.New("nothing converted yet")
	ErrNoRecording   = errors.New("no recording yet")
)

// User-visible texts.
const (
	NoticeSaved        = "Saved!"
	NoticeDuplicate    = "This phrase is already saved!"
	EmptyListMessage   = "No saved phrases yet."
	StatusRecording    = "Recording... 🔴"
	StatusStopped      = "Recording stopped. Play it back to listen."
	StatusNoAudio      = "Recording failed, no audio detected."
	StatusNoMicrophone = "Error: cannot access the microphone. Check your system audio settings."
	StatusNoFormat     = "Error: no supported recording format."
	StatusIdle         = "Not recording."
)

// Speaker issues preempting speech requests.
type Speaker interface {
	Speak(ctx context.Context, text string) *speech.Utterance
}

// Recorder is the capture state machine.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (*capture.Clip, error)
	State() capture.State
	Disabled() error
}

// Deps are the collaborators a Session is built from. Recorder, Player and
// Checker may be nil.
type Deps struct {
	Annotator *annotate.Annotator
	Store     *phrases.Store
	Speaker   Speaker
	Recorder  Recorder
	Player    capture.Player
	Checker   *pronounce.Checker
	Logger    *logrus.Logger
}

// Result is the last converted phrase.
type Result struct {
	Text     string             `json:"text"`
	Segments []annotate.Segment `json:"segments"`
	Key      string             `json:"key"`
	// Saved is set when the text is already in the store.
	Saved bool `json:"saved"`
}

// Ruby renders the result for a terminal.
func (r Result) Ruby() string { return annotate.Ruby(r.Segments) }

// Notice is a non-fatal message for the learner.
type Notice struct {
	Text  string `json:"text"`
	Saved bool   `json:"saved"`
}

// Item is one row of the review list.
type Item struct {
	Pos      int                `json:"pos"`
	Text     string             `json:"text"`
	Ruby     string             `json:"ruby"`
	Segments []annotate.Segment `json:"-"`
}

// View is the review list under the active filter. Total counts the whole
// store, not just the shown items.
type View struct {
	Filter       string `json:"filter"`
	Items        []Item `json:"items"`
	Total        int    `json:"total"`
	Empty        bool   `json:"empty"`
	EmptyMessage string `json:"empty_message,omitempty"`
}

// Session holds the state of one practice run.
type Session struct {
	d       Deps
	current *Result
	filter  string
	clip    *capture.Clip
}

// NewSession starts with no result and the "all" filter.
func NewSession(d Deps) *Session {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	return &Session{d: d, filter: confusion.All}
}

// Current returns the last converted phrase.
func (s *Session) Current() (Result, bool) {
	if s.current == nil {
		return Result{}, false
	}
	return *s.current, true
}

// Filter returns the active filter name.
func (s *Session) Filter() string { return s.filter }

// Convert annotates text and makes it the current result. On error the
// previous result is kept.
func (s *Session) Convert(text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyInput
	}
	segs, err := s.d.Annotator.Annotate(text)
	if err != nil {
		s.d.Logger.Errorf("practice: annotate: %v", err)
		return Result{}, fmt.Errorf("could not annotate input: %w", err)
	}
	key, err := s.d.Annotator.Key(text)
	if err != nil {
		s.d.Logger.Errorf("practice: phonetic key: %v", err)
		return Result{}, fmt.Errorf("could not annotate input: %w", err)
	}
	s.current = &Result{Text: text, Segments: segs, Key: key, Saved: s.d.Store.Contains(text)}
	return *s.current, nil
}

// SpeakCurrent reads the current result aloud. It returns nil when there is
// nothing to say.
func (s *Session) SpeakCurrent(ctx context.Context) *speech.Utterance {
	if s.current == nil {
		return nil
	}
	return s.Speak(ctx, s.current.Text)
}

// Speak reads text aloud, preempting anything still playing.
func (s *Session) Speak(ctx context.Context, text string) *speech.Utterance {
	if s.d.Speaker == nil {
		return nil
	}
	return s.d.Speaker.Speak(ctx, text)
}

// SaveCurrent stores the current result. A duplicate is reported as a
// notice, not an error.
func (s *Session) SaveCurrent() (Notice, error) {
	if s.current == nil {
		return Notice{}, ErrNothingToSave
	}
	err := s.d.Store.Save(s.current.Text, s.current.Key)
	switch {
	case errors.Is(err, phrases.ErrDuplicateEntry):
		s.current.Saved = true
		return Notice{Text: NoticeDuplicate}, nil
	case err != nil:
		return Notice{}, err
	}
	s.current.Saved = true
	return Notice{Text: NoticeSaved, Saved: true}, nil
}

// SelectFilter makes name the active filter and renders the list.
// Unrecognised names render every entry.
func (s *Session) SelectFilter(name string) (View, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = confusion.All
	}
	if !confusion.Known(name) {
		s.d.Logger.Warnf("practice: unknown filter %q, showing all", name)
	}
	s.filter = name
	return s.View()
}

// View renders the list under the active filter.
func (s *Session) View() (View, error) {
	entries := confusion.Apply(s.d.Store.Entries(), s.filter)
	v := View{Filter: s.filter, Total: s.d.Store.Count(), Items: make([]Item, 0, len(entries))}
	for i, e := range entries {
		segs, err := s.d.Annotator.Annotate(e.Text)
		if err != nil {
			return View{}, err
		}
		v.Items = append(v.Items, Item{Pos: i + 1, Text: e.Text, Ruby: annotate.Ruby(segs), Segments: segs})
	}
	if len(v.Items) == 0 {
		v.Empty = true
		v.EmptyMessage = EmptyListMessage
	}
	return v, nil
}

// DeleteEntry removes the entry shown at 1-based pos in the current view
// and re-renders it.
func (s *Session) DeleteEntry(pos int) (View, error) {
	view := confusion.Apply(s.d.Store.Entries(), s.filter)
	ok, err := s.d.Store.DeleteAt(pos-1, view)
	if err != nil {
		return View{}, err
	}
	if !ok {
		return View{}, fmt.Errorf("no entry at position %d", pos)
	}
	return s.View()
}

// SpeakEntry reads the entry shown at 1-based pos in the current view.
func (s *Session) SpeakEntry(ctx context.Context, pos int) (*speech.Utterance, error) {
	view := confusion.Apply(s.d.Store.Entries(), s.filter)
	if pos < 1 || pos > len(view) {
		return nil, fmt.Errorf("no entry at position %d", pos)
	}
	return s.Speak(ctx, view[pos-1].Text), nil
}

// StartRecording returns the status text to show and the underlying error,
// if any.
func (s *Session) StartRecording(ctx context.Context) (string, error) {
	if s.d.Recorder == nil {
		return StatusNoMicrophone, capture.ErrCaptureDisabled
	}
	err := s.d.Recorder.Start(ctx)
	switch {
	case err == nil, errors.Is(err, capture.ErrAlreadyRecording):
		return StatusRecording, err
	case errors.Is(err, capture.ErrNoSupportedEncoding):
		return StatusNoFormat, err
	default:
		return StatusNoMicrophone, err
	}
}

// StopRecording finalizes the attempt and keeps it for playback.
func (s *Session) StopRecording() (string, error) {
	if s.d.Recorder == nil {
		return StatusIdle, capture.ErrNotRecording
	}
	clip, err := s.d.Recorder.Stop()
	switch {
	case err == nil:
		s.clip = clip
		return StatusStopped, nil
	case errors.Is(err, capture.ErrNoAudioCaptured):
		return StatusNoAudio, err
	case errors.Is(err, capture.ErrNotRecording):
		return StatusIdle, err
	default:
		s.d.Logger.Errorf("practice: stop recording: %v", err)
		return StatusNoAudio, err
	}
}

// Recording returns the last finished clip.
func (s *Session) Recording() (*capture.Clip, bool) {
	return s.clip, s.clip != nil
}

// PlayRecording plays the last finished clip.
func (s *Session) PlayRecording(ctx context.Context) error {
	if s.clip == nil {
		return ErrNoRecording
	}
	if s.d.Player == nil {
		return capture.ErrDeviceUnavailable
	}
	return s.d.Player.Play(ctx, s.clip)
}

// CheckRecording scores the last clip against the current result.
func (s *Session) CheckRecording(ctx context.Context) (pronounce.Result, error) {
	if s.clip == nil {
		return pronounce.Result{}, ErrNoRecording
	}
	if s.current == nil {
		return pronounce.Result{}, ErrNothingToSave
	}
	if s.d.Checker == nil {
		return pronounce.Result{}, pronounce.ErrTranscriberUnavailable
	}
	return s.d.Checker.Check(ctx, s.clip.Path, s.current.Text)
}
