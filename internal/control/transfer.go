package control

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pinyinpal/internal/config"
	"pinyinpal/internal/phrases"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewExportCmd writes the saved phrases as JSON or YAML.
func NewExportCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved phrases (json or yaml)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			format, _ := cmd.Flags().GetString("format")
			w := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return writeEntries(w, e.store.Entries(), format)
		},
	}
	cmd.Flags().String("format", "json", "json or yaml")
	cmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	return cmd
}

func writeEntries(w io.Writer, entries []phrases.Entry, format string) error {
	if entries == nil {
		entries = []phrases.Entry{}
	}
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

// NewImportCmd merges phrases from a JSON or YAML export.
func NewImportCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import phrases from an export or a browser savedWords dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			entries, err := readEntries(data, filepath.Ext(args[0]))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			e, err := openEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			for i := range entries {
				if entries[i].PhoneticKey != "" {
					continue
				}
				key, err := e.annot.Key(entries[i].Text)
				if err != nil {
					return err
				}
				entries[i].PhoneticKey = key
			}
			added, err := e.store.Import(entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d phrases (%d saved)\n", added, len(entries), e.store.Count())
			return nil
		},
	}
}

// readEntries accepts a JSON list, a {"savedWords": ...} localStorage dump
// whose value may itself be a JSON string, or a YAML list.
func readEntries(data []byte, ext string) ([]phrases.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if ext == ".yaml" || ext == ".yml" {
		var entries []phrases.Entry
		if err := yaml.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return validEntries(entries)
	}
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var dump map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &dump); err != nil {
			return nil, err
		}
		raw, ok := dump[config.DefaultSlotName]
		if !ok {
			return nil, fmt.Errorf("no %q key in dump", config.DefaultSlotName)
		}
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			raw = json.RawMessage(inner)
		}
		trimmed = raw
	}
	var entries []phrases.Entry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, err
	}
	return validEntries(entries)
}

func validEntries(entries []phrases.Entry) ([]phrases.Entry, error) {
	out := entries[:0]
	for _, e := range entries {
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" {
			return nil, fmt.Errorf("entry without text")
		}
		out = append(out, e)
	}
	return out, nil
}
