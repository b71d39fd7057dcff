package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pinyinpal/internal/confusion"
	"pinyinpal/internal/practice"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const replHelp = `type Mandarin text to annotate it, or a command:
  :speak            read the current phrase aloud
  :save             save the current phrase
  :list [filter]    show saved phrases (filters: see :filters)
  :filters          list confusion filters
  :say N            read entry N of the list aloud
  :del N            delete entry N of the list
  :rec / :stop      record an attempt / finish recording
  :play             play the last attempt
  :check            score the last attempt against the current phrase
  :quit`

// NewPracticeCmd starts the interactive practice shell.
func NewPracticeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "practice",
		Short: "Interactive practice shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), e.session(), interactive)
		},
	}
}

func runREPL(ctx context.Context, in io.Reader, out io.Writer, s *practice.Session, interactive bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	say := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format+"\n", args...) }
	if interactive {
		say("%s", replHelp)
	}
	sc := bufio.NewScanner(in)
	for {
		if interactive {
			_, _ = fmt.Fprint(out, "> ")
		}
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ":") {
			res, err := s.Convert(line)
			if err != nil {
				say("error: %v", err)
				continue
			}
			say("%s", rubyLine(res))
			continue
		}
		fields := strings.Fields(line[1:])
		if len(fields) == 0 {
			continue
		}
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}
		switch fields[0] {
		case "quit", "q", "exit":
			return nil
		case "help", "h":
			say("%s", replHelp)
		case "speak", "s":
			if s.SpeakCurrent(ctx) == nil {
				say("error: %v", practice.ErrNothingToSave)
			}
		case "save":
			n, err := s.SaveCurrent()
			if err != nil {
				say("error: %v", err)
				continue
			}
			say("%s", n.Text)
		case "list", "ls", "filter":
			v, err := s.SelectFilter(orDefault(arg, s.Filter()))
			if err != nil {
				say("error: %v", err)
				continue
			}
			printView(out, v)
		case "filters":
			say("%-8s all saved phrases", confusion.All)
			for _, p := range confusion.Patterns() {
				say("%-8s %s", p.Name, p.Label)
			}
		case "say", "del":
			pos, err := strconv.Atoi(arg)
			if err != nil {
				say("error: %s needs a list position", fields[0])
				continue
			}
			if fields[0] == "say" {
				if _, err := s.SpeakEntry(ctx, pos); err != nil {
					say("error: %v", err)
				}
				continue
			}
			v, err := s.DeleteEntry(pos)
			if err != nil {
				say("error: %v", err)
				continue
			}
			printView(out, v)
		case "rec", "record":
			status, _ := s.StartRecording(ctx)
			say("%s", status)
		case "stop":
			status, _ := s.StopRecording()
			say("%s", status)
		case "play":
			if err := s.PlayRecording(ctx); err != nil {
				say("error: %v", err)
			}
		case "check":
			res, err := s.CheckRecording(ctx)
			if err != nil {
				say("error: %v", err)
				continue
			}
			verdict := "try again"
			if res.Pass {
				verdict = "pass"
			}
			say("heard %s (%s): similarity %.2f, tones %d/%d, %s",
				res.Transcript, res.Heard, res.Similarity, res.ToneMatches, res.Syllables, verdict)
		default:
			say("unknown command :%s (try :help)", fields[0])
		}
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}


// rubyLine marks results that are already in the saved list.
func rubyLine(res practice.Result) string {
	if res.Saved {
		return res.Ruby() + "  [saved]"
	}
	return res.Ruby()
}
