package control

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pinyinpal/internal/config"
	"pinyinpal/internal/confusion"
	"pinyinpal/internal/doctor"
	"pinyinpal/internal/logging"
	"pinyinpal/internal/practice"

	"github.com/spf13/cobra"
)

// NewConvertCmd prints text with pinyin above each character.
func NewConvertCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <text>",
		Short: "Annotate Mandarin text with pinyin",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			s := practice.NewSession(practice.Deps{Annotator: e.annot, Store: e.store, Logger: e.logger})
			res, err := s.Convert(strings.Join(args, " "))
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rubyLine(res))
			if keyOut, _ := cmd.Flags().GetBool("key"); keyOut {
				fmt.Fprintln(cmd.OutOrStdout(), res.Key)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	cmd.Flags().Bool("key", false, "also print the tone-number key used for filtering")
	return cmd
}

// NewSpeakCmd reads text aloud and waits for it to finish.
func NewSpeakCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "speak <text>",
		Short: "Read Mandarin text aloud",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			u := e.speaker().Speak(cmd.Context(), strings.Join(args, " "))
			if u == nil {
				return practice.ErrEmptyInput
			}
			<-u.Done()
			return u.Err()
		},
	}
}

// NewSaveCmd converts text and adds it to the saved list.
func NewSaveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "save <text>",
		Short: "Save a phrase for review",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			s := practice.NewSession(practice.Deps{Annotator: e.annot, Store: e.store, Logger: e.logger})
			res, err := s.Convert(strings.Join(args, " "))
			if err != nil {
				return err
			}
			n, err := s.SaveCurrent()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", n.Text, res.Ruby())
			return nil
		},
	}
}

// NewListCmd prints saved phrases under a confusion filter.
func NewListCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "review"},
		Short:   "List saved phrases",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			filter, _ := cmd.Flags().GetString("filter")
			s := practice.NewSession(practice.Deps{Annotator: e.annot, Store: e.store, Logger: e.logger})
			v, err := s.SelectFilter(filter)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
			}
			printView(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().StringP("filter", "f", confusion.All, "confusion pattern (see 'filters')")
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

func printView(w io.Writer, v practice.View) {
	label := "all"
	if p, ok := confusion.Lookup(v.Filter); ok {
		label = p.Label
	}
	_, _ = fmt.Fprintf(w, "saved: %d  filter: %s\n", v.Total, label)
	if v.Empty {
		_, _ = fmt.Fprintln(w, v.EmptyMessage)
		return
	}
	for _, it := range v.Items {
		_, _ = fmt.Fprintf(w, "%3d. %s\n", it.Pos, it.Ruby)
	}
}

// NewDeleteCmd removes the phrase at a position of the filtered list.
func NewDeleteCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <position>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved phrase by its list position",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("position must be a number: %w", err)
			}
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			filter, _ := cmd.Flags().GetString("filter")
			s := practice.NewSession(practice.Deps{Annotator: e.annot, Store: e.store, Logger: e.logger})
			if _, err := s.SelectFilter(filter); err != nil {
				return err
			}
			v, err := s.DeleteEntry(pos)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().StringP("filter", "f", confusion.All, "filter the position refers to")
	return cmd
}

// NewFiltersCmd lists the confusion patterns.
func NewFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List confusion-pattern filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", confusion.All, "all saved phrases")
			for _, p := range confusion.Patterns() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s (%s)\n", p.Name, p.Label, strings.Join(p.Needles, ", "))
			}
			return nil
		},
	}
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log",
		Short: "Show last log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			return tailFile(cmd.OutOrStdout(), cfg.Paths.LogPath, n)
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(w io.Writer, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			_, _ = fmt.Fprintln(w, l)
		}
	}
	return nil
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check dependencies and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg, logger)
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
			}
			failed := 0
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-4s %s\n", r.Name, status, r.Detail)
			}
			if failed > 0 {
				return fmt.Errorf("doctor found %d issues", failed)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}
