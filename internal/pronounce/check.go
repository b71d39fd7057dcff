// Package pronounce scores a recorded attempt against the phrase it was
// meant to say.
package pronounce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"pinyinpal/internal/annotate"
	"pinyinpal/internal/confusion"

	"github.com/antzucaro/matchr"
	"github.com/sirupsen/logrus"
)

// ErrTranscriberUnavailable means the binary was built without whisper.
var ErrTranscriberUnavailable = errors.New("speech recognition unavailable")

// DefaultThreshold is the similarity an attempt needs to pass.
const DefaultThreshold = 0.85

// Transcriber turns a clip on disk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clipPath string) (string, error)
}

// Mismatch is one aligned syllable that differs from the target.
type Mismatch struct {
	Pos  int    `json:"pos"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

// Result of comparing an attempt to its target.
type Result struct {
	Transcript  string     `json:"transcript"`
	Heard       string     `json:"heard"`
	Target      string     `json:"target"`
	Similarity  float64    `json:"similarity"`
	ToneMatches int        `json:"tone_matches"`
	Syllables   int        `json:"syllables"`
	Mismatches  []Mismatch `json:"mismatches,omitempty"`
	Pass        bool       `json:"pass"`
}

// Checker transcribes attempts and scores them.
type Checker struct {
	annot     *annotate.Annotator
	tr        Transcriber
	logger    *logrus.Logger
	Threshold float64
}

// NewChecker builds a Checker with DefaultThreshold.
func NewChecker(annot *annotate.Annotator, tr Transcriber, logger *logrus.Logger) *Checker {
	return &Checker{annot: annot, tr: tr, logger: logger, Threshold: DefaultThreshold}
}

// Check transcribes clipPath and scores the transcript against target.
func (c *Checker) Check(ctx context.Context, clipPath, target string) (Result, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Result{}, fmt.Errorf("no target phrase")
	}
	if c.tr == nil {
		return Result{}, ErrTranscriberUnavailable
	}
	want, err := c.annot.Key(target)
	if err != nil {
		return Result{}, err
	}
	txt, err := c.tr.Transcribe(ctx, clipPath)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe %s: %w", clipPath, err)
	}
	txt = strings.TrimSpace(txt)
	got, err := c.annot.Key(txt)
	if err != nil {
		return Result{}, err
	}
	res := Score(want, got, c.Threshold)
	res.Transcript = txt
	c.logger.Debugf("pronounce: target=%q heard=%q similarity=%.3f tones=%d/%d",
		want, got, res.Similarity, res.ToneMatches, res.Syllables)
	return res, nil
}

// Score compares two phonetic keys. Similarity is Jaro-Winkler over the
// tone-stripped syllables; tones are compared per aligned syllable.
func Score(target, heard string, threshold float64) Result {
	res := Result{Target: target, Heard: heard}
	want := syllables(target)
	got := syllables(heard)
	res.Syllables = len(want)
	if len(want) == 0 {
		return res
	}

	if len(got) > 0 {
		res.Similarity = matchr.JaroWinkler(stripAll(want), stripAll(got), false)
	}
	for i, w := range want {
		g := ""
		if i < len(got) {
			g = got[i]
		}
		if g != "" && tone(w) == tone(g) {
			res.ToneMatches++
		}
		if g != w {
			res.Mismatches = append(res.Mismatches, Mismatch{Pos: i + 1, Want: w, Got: g})
		}
	}
	res.Pass = res.Similarity >= threshold && res.ToneMatches == res.Syllables
	return res
}

// syllables splits a key into lowercase tokens, dropping punctuation tokens.
func syllables(key string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(key)) {
		if strings.IndexFunc(f, unicode.IsLetter) >= 0 {
			out = append(out, f)
		}
	}
	return out
}

func stripAll(sy []string) string {
	out := make([]string, len(sy))
	for i, s := range sy {
		out[i] = confusion.StripTones(s)
	}
	return strings.Join(out, " ")
}

// tone returns the trailing tone digit, or "" for the neutral tone.
func tone(syllable string) string {
	if n := len(syllable); n > 0 && syllable[n-1] >= '0' && syllable[n-1] <= '9' {
		return syllable[n-1:]
	}
	return ""
}
