package capture

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestNegotiateFallsThroughPreferences(t *testing.T) {
	e, err := Negotiate([]string{"audio/mp4", "audio/webm;codecs=opus", "audio/ogg; codecs=opus", "audio/wav"})
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if e.MIMEType() != "audio/wav" {
		t.Fatalf("got %s", e.MIMEType())
	}
}

func TestNegotiateNoneSupported(t *testing.T) {
	for _, prefs := range [][]string{nil, {"audio/mp4"}, {"video/webm"}} {
		if _, err := Negotiate(prefs); !errors.Is(err, ErrNoSupportedEncoding) {
			t.Fatalf("Negotiate(%v) = %v", prefs, err)
		}
	}
}

func TestSupportedNormalizesMIME(t *testing.T) {
	if !Supported("Audio/WAV") || !Supported(" audio/wav ") {
		t.Fatalf("wav should be supported regardless of case and spacing")
	}
	if normalizeMIME("audio/ogg; codecs=opus") != normalizeMIME("audio/ogg;codecs=opus") {
		t.Fatalf("normalization should ignore whitespace")
	}
}

func TestClipDuration(t *testing.T) {
	if d := clipDuration(32000, 16000, 1); d != 2*time.Second {
		t.Fatalf("mono duration = %s", d)
	}
	if d := clipDuration(32000, 16000, 2); d != time.Second {
		t.Fatalf("stereo duration = %s", d)
	}
	if d := clipDuration(10, 0, 1); d != 0 {
		t.Fatalf("zero rate duration = %s", d)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	path := t.TempDir() + "/bad.wav"
	if err := writeFile(path, []byte("not a wav")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Decode(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
