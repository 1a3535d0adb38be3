package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"readlet/internal/chord"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	platform string
	jsonOut  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "chordctl",
		Short: "Normalize, format and check reader keyboard shortcuts",
		Long: `chordctl applies the reader's shortcut rules outside the app.

Chords use the persisted "Key1+Key2" form with canonical tokens, for example
Control+Shift+A or Alt+ArrowDown.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.platform, "platform", "p", "",
		"Platform family (windows, macos, linux); default detects the current system")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")

	cmd.AddCommand(newNormalizeCmd(opts))
	cmd.AddCommand(newFormatCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	return cmd
}

// resolvePlatform returns the --platform override, or fallback when unset.
func (o *rootOptions) resolvePlatform(fallback chord.Platform) (chord.Platform, error) {
	if o.platform == "" {
		return fallback, nil
	}
	p, err := chord.ParsePlatform(o.platform)
	if err != nil {
		return fallback, fmt.Errorf("--platform: %w", err)
	}
	return p, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
