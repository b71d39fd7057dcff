package annotate

import (
	"bufio"
	_ "embed"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mozillazg/go-pinyin"
)

//go:embed words.txt
var wordsFile string

// lexicon maps multi-character words (and a few single characters whose
// common reading differs from go-pinyin's first one) to their syllables.
type lexicon struct {
	words  map[string][]string
	maxLen int
}

var (
	lexOnce sync.Once
	lex     lexicon
)

func loadLexicon() lexicon {
	lexOnce.Do(func() { lex = parseLexicon(wordsFile) })
	return lex
}

// parseLexicon reads "word syl syl ..." lines. Blank lines and # comments are
// skipped, as is any line whose syllable count differs from its rune count.
func parseLexicon(src string) lexicon {
	l := lexicon{words: map[string][]string{}}
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		n := utf8.RuneCountInString(f[0])
		if n != len(f)-1 {
			continue
		}
		l.words[f[0]] = f[1:]
		l.maxLen = max(l.maxLen, n)
	}
	return l
}

// PinyinConverter reads a run by forward maximum matching against the
// embedded word list, falling back to go-pinyin for runes no word covers.
type PinyinConverter struct{}

func (PinyinConverter) Readings(run []rune, style Style) []string {
	lx := loadLexicon()
	out := make([]string, len(run))
	for i := 0; i < len(run); {
		n := min(lx.maxLen, len(run)-i)
		for ; n > 0; n-- {
			if syl, ok := lx.words[string(run[i:i+n])]; ok {
				for k, s := range syl {
					out[i+k] = render(s, style)
				}
				break
			}
		}
		if n == 0 {
			out[i] = single(run[i], style)
			n = 1
		}
		i += n
	}
	return out
}

func single(r rune, style Style) string {
	args := pinyin.NewArgs()
	args.Style = pinyin.Tone
	if style == ToneDigits {
		args.Style = pinyin.Tone3
	}
	ps := pinyin.SinglePinyin(r, args)
	if len(ps) == 0 {
		return ""
	}
	if style == ToneDigits {
		return strings.ReplaceAll(ps[0], "ü", "v")
	}
	return ps[0]
}

func render(syl string, style Style) string {
	if style == ToneMarks {
		return syl
	}
	return strings.ReplaceAll(markToDigits(syl), "ü", "v")
}

type toneMark struct {
	base rune
	tone byte
}

var toneMarks = map[rune]toneMark{
	'ā': {'a', 1}, 'á': {'a', 2}, 'ǎ': {'a', 3}, 'à': {'a', 4},
	'ē': {'e', 1}, 'é': {'e', 2}, 'ě': {'e', 3}, 'è': {'e', 4},
	'ī': {'i', 1}, 'í': {'i', 2}, 'ǐ': {'i', 3}, 'ì': {'i', 4},
	'ō': {'o', 1}, 'ó': {'o', 2}, 'ǒ': {'o', 3}, 'ò': {'o', 4},
	'ū': {'u', 1}, 'ú': {'u', 2}, 'ǔ': {'u', 3}, 'ù': {'u', 4},
	'ǖ': {'ü', 1}, 'ǘ': {'ü', 2}, 'ǚ': {'ü', 3}, 'ǜ': {'ü', 4},
	'ń': {'n', 2}, 'ň': {'n', 3}, 'ǹ': {'n', 4},
}

// markToDigits turns "nǚ" into "nü3". Neutral-tone syllables get no digit.
func markToDigits(syl string) string {
	var (
		b    strings.Builder
		tone byte
	)
	for _, r := range syl {
		if m, ok := toneMarks[r]; ok {
			b.WriteRune(m.base)
			tone = m.tone
			continue
		}
		b.WriteRune(r)
	}
	if tone > 0 {
		b.WriteByte('0' + tone)
	}
	return b.String()
}
