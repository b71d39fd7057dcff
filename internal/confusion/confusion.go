// Package confusion filters saved phrases by common Mandarin pronunciation
// pitfalls.
//
// Matching is a plain substring search over the tone-stripped phonetic key,
// so "n" also matches inside "ning" or "zhong". The filter is a practice aid,
// not a phoneme classifier.
package confusion

import (
	"regexp"
	"strings"

	"pinyinpal/internal/phrases"
)

// All selects every entry.
const All = "all"

// Pattern is a named set of substrings.
type Pattern struct {
	Name    string
	Label   string
	Needles []string
}

var patterns = []Pattern{
	{Name: "z_zh", Label: "z / zh", Needles: []string{"z", "zh"}},
	{Name: "c_ch", Label: "c / ch", Needles: []string{"c", "ch"}},
	{Name: "s_sh", Label: "s / sh", Needles: []string{"s", "sh"}},
	{Name: "n_l", Label: "n / l", Needles: []string{"n", "l"}},
	{Name: "ing_in", Label: "ing / in", Needles: []string{"ing", "in"}},
}

// Patterns returns the built-in patterns in display order.
func Patterns() []Pattern {
	out := make([]Pattern, len(patterns))
	for i, p := range patterns {
		p.Needles = append([]string(nil), p.Needles...)
		out[i] = p
	}
	return out
}

// Lookup returns the pattern called name.
func Lookup(name string) (Pattern, bool) {
	for _, p := range patterns {
		if p.Name == name {
			return p, true
		}
	}
	return Pattern{}, false
}

// Known reports whether name is All or a built-in pattern.
func Known(name string) bool {
	if name == All {
		return true
	}
	_, ok := Lookup(name)
	return ok
}

var toneDigits = regexp.MustCompile(`\d`)

// StripTones removes every digit from key.
func StripTones(key string) string {
	return toneDigits.ReplaceAllString(key, "")
}

// Matches reports whether the tone-stripped key contains any needle of p.
func Matches(key string, p Pattern) bool {
	plain := StripTones(key)
	for _, n := range p.Needles {
		if strings.Contains(plain, n) {
			return true
		}
	}
	return false
}

// Apply returns the entries matching the named pattern in their original
// order. All or an unrecognised name returns every entry.
func Apply(entries []phrases.Entry, name string) []phrases.Entry {
	p, ok := Lookup(name)
	if !ok {
		out := make([]phrases.Entry, len(entries))
		copy(out, entries)
		return out
	}
	out := make([]phrases.Entry, 0, len(entries))
	for _, e := range entries {
		if Matches(e.PhoneticKey, p) {
			out = append(out, e)
		}
	}
	return out
}
