package pronounce

import (
	"context"
	"errors"
	"testing"

	"pinyinpal/internal/annotate"
	"pinyinpal/internal/logging"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	return f.text, f.err
}

func TestScore(t *testing.T) {
	cases := []struct {
		name        string
		target      string
		heard       string
		toneMatches int
		mismatches  int
		pass        bool
	}{
		{"exact", "ni3 hao3", "ni3 hao3", 2, 0, true},
		{"wrong tone", "ni3 hao3", "ni2 hao3", 1, 1, false},
		{"nothing heard", "ni3 hao3", "", 0, 2, false},
		{"extra syllable ignored for tones", "ni3", "ni3 hao3", 1, 0, false},
		{"neutral tone", "ma", "ma", 1, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := Score(c.target, c.heard, DefaultThreshold)
			if res.ToneMatches != c.toneMatches {
				t.Fatalf("tone matches = %d, want %d", res.ToneMatches, c.toneMatches)
			}
			if len(res.Mismatches) != c.mismatches {
				t.Fatalf("mismatches = %+v, want %d", res.Mismatches, c.mismatches)
			}
			if res.Pass != c.pass {
				t.Fatalf("pass = %v (similarity %.3f), want %v", res.Pass, res.Similarity, c.pass)
			}
		})
	}
}

func TestScoreIgnoresTonesForSimilarity(t *testing.T) {
	res := Score("zhong1 guo2", "zhong4 guo3", DefaultThreshold)
	if res.Similarity != 1 {
		t.Fatalf("similarity = %f, want 1", res.Similarity)
	}
	if res.Pass {
		t.Fatalf("wrong tones should not pass")
	}
	other := Score("zhong1 guo2", "zong1 guo2", DefaultThreshold)
	if other.Similarity >= 1 || other.Similarity <= 0 {
		t.Fatalf("similarity = %f, want between 0 and 1", other.Similarity)
	}
}

func TestScoreEmptyTarget(t *testing.T) {
	res := Score("", "ni3", DefaultThreshold)
	if res.Pass || res.Syllables != 0 {
		t.Fatalf("empty target = %+v", res)
	}
}

func TestScoreIgnoresPunctuation(t *testing.T) {
	res := Score("ni3 hao3", "ni3 hao3 。", DefaultThreshold)
	if !res.Pass || len(res.Mismatches) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestCheckerUsesTranscript(t *testing.T) {
	c := NewChecker(annotate.NewPinyin(), fakeTranscriber{text: " 你好 "}, logging.NewTestLogger())
	res, err := c.Check(context.Background(), "attempt.wav", "你好")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.Pass || res.Transcript != "你好" || res.Target != "ni3 hao3" {
		t.Fatalf("result = %+v", res)
	}

	c = NewChecker(annotate.NewPinyin(), fakeTranscriber{text: "泥好"}, logging.NewTestLogger())
	res, err = c.Check(context.Background(), "attempt.wav", "你好")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Pass || len(res.Mismatches) != 1 || res.Mismatches[0].Got != "ni2" {
		t.Fatalf("result = %+v", res)
	}
}

func TestCheckerErrors(t *testing.T) {
	logger := logging.NewTestLogger()
	if _, err := NewChecker(annotate.NewPinyin(), nil, logger).Check(context.Background(), "a.wav", "你好"); !errors.Is(err, ErrTranscriberUnavailable) {
		t.Fatalf("nil transcriber: %v", err)
	}
	boom := errors.New("boom")
	if _, err := NewChecker(annotate.NewPinyin(), fakeTranscriber{err: boom}, logger).Check(context.Background(), "a.wav", "你好"); !errors.Is(err, boom) {
		t.Fatalf("transcriber error: %v", err)
	}
	if _, err := NewChecker(annotate.NewPinyin(), fakeTranscriber{}, logger).Check(context.Background(), "a.wav", "  "); err == nil {
		t.Fatalf("empty target should fail")
	}
}

func TestResampleLinearLength(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	if out := resampleLinear(in, 16000, 8000); len(out) != 2 {
		t.Fatalf("downsample length got %d", len(out))
	}
	if out := resampleLinear(in, 8000, 16000); len(out) != 8 {
		t.Fatalf("upsample length got %d", len(out))
	}
}

func TestResampleLinearEnds(t *testing.T) {
	out := resampleLinear([]float32{0, 10}, 1000, 2000)
	if out[0] != 0 || out[len(out)-1] != 10 {
		t.Fatalf("endpoints not preserved: %v", out)
	}
}

func TestToMonoFloat(t *testing.T) {
	out := toMonoFloat([]int16{16384, -16384, 16384, 16384}, 2)
	if len(out) != 2 || out[0] != 0 || out[1] != 0.5 {
		t.Fatalf("mono = %v", out)
	}
}
