package main

import (
	"fmt"
	"os"

	"pinyinpal/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "pinyinpal",
		Short: "Pinyinpal: Mandarin pinyin practice from the terminal",
		Long: `Pinyinpal annotates Mandarin text with pinyin, reads it aloud at a learner-friendly pace,
keeps a list of saved phrases you can review by common confusion pattern (z/zh, n/l, ing/in...),
and records your own attempts for playback and scoring.

Key commands:
  convert|speak|save <text>   Annotate, listen, keep
  list [--filter n_l]         Review saved phrases
  delete <n> [--filter]       Remove a phrase by list position
  export|import               Move phrases in and out (JSON/YAML, browser dumps)
  record|play|check           Record an attempt, play it, score it
  practice                    Interactive shell
  mic list|set                Select microphone
  models list|download|set    Manage whisper.cpp models
  doctor|setup|tail-log       Check deps, fetch model, read the log

Env overrides: PINYINPAL_LOG_LEVEL/FORMAT/STDOUT, PINYINPAL_STORE_BACKEND/PATH,
               PINYINPAL_SPEECH_COMMAND, PINYINPAL_AUDIO_DEVICE`,
		Example: `  pinyinpal convert 你好
  pinyinpal save 农民
  pinyinpal list --filter n_l
  pinyinpal record --seconds 3 --play
  pinyinpal check ~/.local/state/pinyinpal/recordings/attempt-20260101-120000.000.wav --text 农民
  pinyinpal export --format yaml`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
	}

	root.Version = version
	root.SetVersionTemplate("Pinyinpal v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/pinyinpal/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(control.NewConvertCmd(cfgPath))
	root.AddCommand(control.NewSpeakCmd(cfgPath))
	root.AddCommand(control.NewSaveCmd(cfgPath))
	root.AddCommand(control.NewListCmd(cfgPath))
	root.AddCommand(control.NewDeleteCmd(cfgPath))
	root.AddCommand(control.NewFiltersCmd())
	root.AddCommand(control.NewExportCmd(cfgPath))
	root.AddCommand(control.NewImportCmd(cfgPath))
	root.AddCommand(control.NewRecordCmd(cfgPath))
	root.AddCommand(control.NewPlayCmd(cfgPath))
	root.AddCommand(control.NewCheckCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewPracticeCmd(cfgPath))
	root.AddCommand(control.NewMicCmd(cfgPath))
	root.AddCommand(control.NewModelsCmd(cfgPath))
	root.AddCommand(control.NewSetupCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))

	applyColorHelp(root)

	return root.Execute()
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldRed = "\033[1;31m"
		green   = "\033[32m"
		bold    = "\033[1m"
		dim     = "\033[2m"
		reset   = "\033[0m"
	)
	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			defaultHelp(cmd, args)
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sPinyinpal%s: Mandarin pinyin practice %s(v%s)%s\n", boldRed, reset, dim, version, reset)
		write("%sAnnotate, listen, save, review by confusion pattern, record yourself.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  pinyinpal [command] [flags]\n\n")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -c, --config <path>     config file (default ~/.config/pinyinpal/config.toml)")
		writeln("  Env: PINYINPAL_LOG_LEVEL=debug, PINYINPAL_LOG_FORMAT=json,")
		writeln("       PINYINPAL_STORE_BACKEND=file, PINYINPAL_SPEECH_COMMAND=say")
		writeln("  Build tags: portaudio (record/play/mic), whisper (check/transcribe)")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  pinyinpal convert 你好")
		writeln("  pinyinpal save 农民 && pinyinpal list --filter n_l")
		writeln("  pinyinpal delete 1 --filter n_l")
		writeln("  pinyinpal import savedWords.json")
		writeln("  pinyinpal record --seconds 3 --play")
		writeln("  pinyinpal practice")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-12s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
