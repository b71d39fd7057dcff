// Package speech reads text aloud through an external TTS command such as
// espeak-ng or macOS say.
package speech

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pinyinpal/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// baseWPM is the words-per-minute both espeak-ng and say use by default.
const baseWPM = 175

// Utterance is one in-flight speech request.
type Utterance struct {
	Text string

	done      chan struct{}
	err       error
	preempted atomic.Bool
	cancel    context.CancelFunc
}

// Done is closed when the TTS process has exited.
func (u *Utterance) Done() <-chan struct{} { return u.done }

// Err returns the process error once Done is closed.
func (u *Utterance) Err() error {
	<-u.done
	return u.err
}

// Preempted reports whether a later request cancelled this one.
func (u *Utterance) Preempted() bool { return u.preempted.Load() }

// Speaker issues speech requests. A new request always cancels the one
// still playing; there is no queue.
type Speaker struct {
	cfg    *config.Config
	logger *logrus.Logger

	mu      sync.Mutex
	current *Utterance
}

func NewSpeaker(cfg *config.Config, logger *logrus.Logger) *Speaker {
	return &Speaker{cfg: cfg, logger: logger}
}

// Available resolves the configured command to an executable path.
func (s *Speaker) Available() (string, error) {
	cmd := os.ExpandEnv(s.cfg.Speech.Command)
	if cmd == "" {
		return "", errors.New("speech command not set")
	}
	if !strings.ContainsAny(cmd, `/\`) {
		return exec.LookPath(cmd)
	}
	info, err := os.Stat(cmd)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory; set speech.command to an executable file", cmd)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%s is not executable; chmod +x or choose another command", cmd)
	}
	return cmd, nil
}

// Speak starts reading text and returns without waiting. Empty text is a
// no-op and returns nil.
func (s *Speaker) Speak(ctx context.Context, text string) *Utterance {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	u := &Utterance{Text: text, done: make(chan struct{})}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.current; prev != nil {
		prev.preempted.Store(true)
		prev.cancel()
	}

	args, err := s.args()
	if err != nil {
		u.cancel = func() {}
		u.err = err
		close(u.done)
		return u
	}
	args = append(args, text)

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if s.cfg.Speech.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*s.cfg.Speech.TimeoutSec))
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	u.cancel = cancel

	cmd := exec.CommandContext(runCtx, os.ExpandEnv(s.cfg.Speech.Command), args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("PINYINPAL_TEXT=%s", text),
		fmt.Sprintf("PINYINPAL_LANG=%s", s.cfg.Speech.Language),
	)
	if err := cmd.Start(); err != nil {
		cancel()
		u.err = fmt.Errorf("speech: %w", err)
		close(u.done)
		s.logger.Errorf("speech start: %v", err)
		return u
	}
	s.current = u
	s.logger.Debugf("speaking %q (pid %d)", text, cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		cancel()
		if err != nil && !u.Preempted() {
			u.err = fmt.Errorf("speech: %w", err)
			s.logger.Warnf("speech %q: %v", text, err)
		} else if err != nil {
			u.err = context.Canceled
		}
		s.mu.Lock()
		if s.current == u {
			s.current = nil
		}
		s.mu.Unlock()
		close(u.done)
	}()
	return u
}

// Stop cancels the utterance still playing, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.preempted.Store(true)
		s.current.cancel()
	}
}

// WPM converts the configured relative rate into words per minute.
func (s *Speaker) WPM() int {
	rate := s.cfg.Speech.Rate
	if rate <= 0 {
		rate = 1
	}
	return int(math.Round(baseWPM * rate))
}

// args splits the configured argument string and fills placeholders. The
// split happens first so a voice name with spaces stays one argument.
func (s *Speaker) args() ([]string, error) {
	if strings.TrimSpace(s.cfg.Speech.Command) == "" {
		return nil, fmt.Errorf("no speech.command configured")
	}
	raw := strings.TrimSpace(s.cfg.Speech.Args)
	if raw == "" {
		return []string{}, nil
	}
	parts, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("parse speech.args: %w", err)
	}
	r := strings.NewReplacer(
		"${voice}", s.cfg.Speech.Voice,
		"${wpm}", strconv.Itoa(s.WPM()),
		"${lang}", s.cfg.Speech.Language,
	)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = r.Replace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
