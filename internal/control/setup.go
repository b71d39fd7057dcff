package control

import (
	"fmt"
	"os"
	"path/filepath"

	"pinyinpal/internal/config"

	"github.com/spf13/cobra"
)

// NewSetupCmd creates state dirs and downloads the configured model if missing.
func NewSetupCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create state dirs and download the whisper model if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := config.MustStatePaths(cfg); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			modelPath := os.ExpandEnv(cfg.ASR.ModelPath)
			if _, err := os.Stat(modelPath); err == nil {
				fmt.Fprintln(out, "model already present at", modelPath)
				return nil
			}
			fmt.Fprintf(out, "downloading model to %s\n", modelPath)
			if err := downloadModel(cmd.Context(), filepath.Base(modelPath), modelPath); err != nil {
				return err
			}
			fmt.Fprintln(out, "model download complete")
			return nil
		},
	}
}
