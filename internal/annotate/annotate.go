// Package annotate splits text into scripted (Han) and plain segments and
// attaches pinyin readings to the scripted ones.
package annotate

import (
	"errors"
	"strings"
	"unicode"
)

// ErrDependencyUnavailable is returned when no pinyin engine is loaded.
var ErrDependencyUnavailable = errors.New("pinyin engine unavailable")

// Style selects how tones are written in a reading.
type Style int

const (
	// ToneMarks writes tones as diacritics (nǐ hǎo), used for display.
	ToneMarks Style = iota
	// ToneDigits writes tones as trailing digits with ü as v (ni3 hao3).
	ToneDigits
)

// Segment is one unit of annotated text.
type Segment struct {
	Text     string `json:"text"`
	Reading  string `json:"reading,omitempty"`
	Scripted bool   `json:"scripted"`
}

// Converter reads a run of consecutive Han runes. It returns one reading per
// rune; "" marks a rune without a reading. Reading the whole run lets a
// converter pick the reading a word calls for (银行 is yín háng, not yín xíng).
type Converter interface {
	Readings(run []rune, style Style) []string
}

// Annotator is safe for concurrent use; it holds no mutable state.
type Annotator struct {
	conv Converter
}

// New returns an Annotator over conv. A nil conv yields an Annotator whose
// every call fails with ErrDependencyUnavailable.
func New(conv Converter) *Annotator {
	return &Annotator{conv: conv}
}

// NewPinyin returns an Annotator backed by go-pinyin.
func NewPinyin() *Annotator {
	return New(PinyinConverter{})
}

type options struct {
	style    Style
	readings bool
}

// Option tunes a single Annotate call.
type Option func(*options)

// WithoutReadings leaves Reading empty on scripted segments.
func WithoutReadings() Option {
	return func(o *options) { o.readings = false }
}

// WithStyle selects the tone notation of readings.
func WithStyle(s Style) Option {
	return func(o *options) { o.style = s }
}

// Annotate converts text into ordered segments. Consecutive plain runes are
// merged into one plain segment; every Han rune with a known reading is its
// own scripted segment.
func (a *Annotator) Annotate(text string, opts ...Option) ([]Segment, error) {
	if a == nil || a.conv == nil {
		return nil, ErrDependencyUnavailable
	}
	o := options{style: ToneMarks, readings: true}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		out   []Segment
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() == 0 {
			return
		}
		out = append(out, Segment{Text: plain.String()})
		plain.Reset()
	}
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !isHan(runes[i]) {
			plain.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isHan(runes[j]) {
			j++
		}
		run := runes[i:j]
		readings := a.conv.Readings(run, o.style)
		for k, r := range run {
			reading := ""
			if k < len(readings) {
				reading = readings[k]
			}
			if reading == "" {
				plain.WriteRune(r)
				continue
			}
			flush()
			seg := Segment{Text: string(r), Scripted: true}
			if o.readings {
				seg.Reading = reading
			}
			out = append(out, seg)
		}
		i = j
	}
	flush()
	if len(out) == 0 {
		out = []Segment{{Text: text}}
	}
	return out, nil
}

func isHan(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// Key returns the phonetic key of text: tone-digit syllables separated by
// single spaces. Every other non-space rune is its own token, so "我在Beijing"
// keys as "wo3 zai4 B e i j i n g".
func (a *Annotator) Key(text string) (string, error) {
	segs, err := a.Annotate(text, WithStyle(ToneDigits))
	if err != nil {
		return "", err
	}
	tokens := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Scripted {
			tokens = append(tokens, s.Reading)
			continue
		}
		for _, r := range s.Text {
			if !unicode.IsSpace(r) {
				tokens = append(tokens, string(r))
			}
		}
	}
	return strings.Join(tokens, " "), nil
}

// Ruby renders segments inline as 你(nǐ)好(hǎo) for terminals.
func Ruby(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
		if s.Scripted && s.Reading != "" {
			b.WriteByte('(')
			b.WriteString(s.Reading)
			b.WriteByte(')')
		}
	}
	return b.String()
}

// Readings returns the readings of scripted segments joined by spaces.
func Readings(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Scripted && s.Reading != "" {
			parts = append(parts, s.Reading)
		}
	}
	return strings.Join(parts, " ")
}
