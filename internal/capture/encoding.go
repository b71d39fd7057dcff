package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNoSupportedEncoding means none of the preferred formats has an encoder.
var ErrNoSupportedEncoding = errors.New("no supported recording format")

// Format describes interleaved 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Encoder writes PCM samples into a container.
type Encoder interface {
	MIMEType() string
	Extension() string
	Encode(w io.WriteSeeker, pcm []int, f Format) error
}

var encoders = map[string]Encoder{}

// Register makes e available to Negotiate under its MIME type.
func Register(e Encoder) {
	encoders[normalizeMIME(e.MIMEType())] = e
}

func init() {
	Register(wavEncoder{})
}

// Supported reports whether mime has a registered encoder.
func Supported(mime string) bool {
	_, ok := encoders[normalizeMIME(mime)]
	return ok
}

// Negotiate returns the encoder of the first supported type in prefs.
func Negotiate(prefs []string) (Encoder, error) {
	for _, p := range prefs {
		if e, ok := encoders[normalizeMIME(p)]; ok {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w (tried %s)", ErrNoSupportedEncoding, strings.Join(prefs, ", "))
}

// normalizeMIME lowercases and drops whitespace so "audio/ogg; codecs=opus"
// and "audio/ogg;codecs=opus" compare equal.
func normalizeMIME(m string) string {
	return strings.ToLower(strings.Join(strings.Fields(m), ""))
}

type wavEncoder struct{}

func (wavEncoder) MIMEType() string  { return "audio/wav" }
func (wavEncoder) Extension() string { return ".wav" }

func (wavEncoder) Encode(w io.WriteSeeker, pcm []int, f Format) error {
	enc := wav.NewEncoder(w, f.SampleRate, 16, f.Channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		Data:           pcm,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// Clip is a finished recording on disk.
type Clip struct {
	Path       string        `json:"path"`
	MIMEType   string        `json:"mime_type"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Samples    int           `json:"samples"`
	Duration   time.Duration `json:"duration"`
}

// Decode reads a WAV clip back into interleaved 16-bit samples.
func Decode(path string) (*Clip, []int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, nil, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	pcm := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		pcm[i] = int16(s)
	}
	clip := &Clip{
		Path:       path,
		MIMEType:   "audio/wav",
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		Samples:    len(pcm),
	}
	clip.Duration = clipDuration(clip.Samples, clip.SampleRate, clip.Channels)
	return clip, pcm, nil
}

func clipDuration(samples, rate, channels int) time.Duration {
	if rate <= 0 || channels <= 0 {
		return 0
	}
	frames := samples / channels
	return time.Duration(frames) * time.Second / time.Duration(rate)
}
