package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"pinyinpal/internal/capture"
	"pinyinpal/internal/practice"
	"pinyinpal/internal/pronounce"

	"github.com/spf13/cobra"
)

// NewRecordCmd records an attempt until Ctrl-C or --seconds elapse.
func NewRecordCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a pronunciation attempt",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			s := practice.NewSession(practice.Deps{
				Annotator: e.annot,
				Store:     e.store,
				Recorder:  e.recorder(),
				Player:    capture.NewDevicePlayer(e.cfg, e.logger),
				Logger:    e.logger,
			})
			out := cmd.OutOrStdout()
			status, err := s.StartRecording(cmd.Context())
			fmt.Fprintln(out, status)
			if err != nil {
				return err
			}

			seconds, _ := cmd.Flags().GetInt("seconds")
			wait := waitForStop(cmd.Context(), time.Duration(seconds)*time.Second)
			<-wait

			status, err = s.StopRecording()
			fmt.Fprintln(out, status)
			if err != nil {
				return err
			}
			clip, _ := s.Recording()
			fmt.Fprintf(out, "%s (%s, %s)\n", clip.Path, clip.MIMEType, clip.Duration.Round(10*time.Millisecond))
			if play, _ := cmd.Flags().GetBool("play"); play {
				return s.PlayRecording(cmd.Context())
			}
			return nil
		},
	}
	cmd.Flags().Int("seconds", 0, "stop after N seconds (default: wait for Ctrl-C)")
	cmd.Flags().Bool("play", false, "play the attempt back when done")
	return cmd
}

// waitForStop closes the returned channel on interrupt, context end or
// after d when d > 0.
func waitForStop(ctx context.Context, d time.Duration) <-chan struct{} {
	done := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		defer close(done)
		defer signal.Stop(sig)
		var timeout <-chan time.Time
		if d > 0 {
			t := time.NewTimer(d)
			defer t.Stop()
			timeout = t.C
		}
		select {
		case <-sig:
		case <-ctx.Done():
		case <-timeout:
		}
	}()
	return done
}

// NewPlayCmd plays a recorded clip.
func NewPlayCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play <clip.wav>",
		Short: "Play back a recorded attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			clip, _, err := capture.Decode(args[0])
			if err != nil {
				return err
			}
			return capture.NewDevicePlayer(e.cfg, e.logger).Play(cmd.Context(), clip)
		},
	}
}

// NewTranscribeCmd prints what whisper hears in a clip, with its pinyin.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <clip.wav>",
		Short: "Transcribe a recorded attempt (whisper build)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			tr, err := pronounce.NewTranscriber(e.cfg, e.logger)
			if err != nil {
				return err
			}
			txt, err := tr.Transcribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			txt = strings.TrimSpace(txt)
			key, err := e.annot.Key(txt)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, txt)
			fmt.Fprintln(out, key)
			return nil
		},
	}
}

// NewCheckCmd scores a recorded attempt against the phrase it should say.
func NewCheckCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <clip.wav> --text <phrase>",
		Short: "Score a recorded attempt against a phrase (whisper build)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("text")
			if strings.TrimSpace(target) == "" {
				return errors.New("--text is required")
			}
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			tr, err := pronounce.NewTranscriber(e.cfg, e.logger)
			if err != nil {
				return err
			}
			c := pronounce.NewChecker(e.annot, tr, e.logger)
			if th, _ := cmd.Flags().GetFloat64("threshold"); th > 0 {
				c.Threshold = th
			}
			res, err := c.Check(cmd.Context(), args[0], target)
			if err != nil {
				return err
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			printCheck(cmd, res)
			return nil
		},
	}
	cmd.Flags().String("text", "", "phrase the attempt should say")
	cmd.Flags().Float64("threshold", pronounce.DefaultThreshold, "similarity needed to pass")
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

func printCheck(cmd *cobra.Command, res pronounce.Result) {
	out := cmd.OutOrStdout()
	verdict := "try again"
	if res.Pass {
		verdict = "pass"
	}
	fmt.Fprintf(out, "heard:  %s (%s)\n", res.Transcript, res.Heard)
	fmt.Fprintf(out, "target: %s\n", res.Target)
	fmt.Fprintf(out, "similarity %.2f, tones %d/%d: %s\n", res.Similarity, res.ToneMatches, res.Syllables, verdict)
	for _, m := range res.Mismatches {
		got := m.Got
		if got == "" {
			got = "-"
		}
		fmt.Fprintf(out, "  #%d want %s got %s\n", m.Pos, m.Want, got)
	}
}
