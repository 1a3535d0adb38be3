package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"readlet/internal/chord"
)

func newFormatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "format <chord>",
		Short: "Render a chord for display",
		Long: `The format command renders a persisted chord with the glyphs the
settings form shows on the chosen platform.

Example:
  chordctl format Control+Shift+ArrowUp
  chordctl format Meta+Alt+K --platform macos`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := opts.resolvePlatform(chord.CurrentPlatform())
			if err != nil {
				return err
			}
			c, err := chord.Parse(args[0])
			if err != nil {
				return err
			}
			display := chord.NewFormatter(platform).Format(c)
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"chord":    c.String(),
					"platform": platform.String(),
					"display":  display,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), display)
			return err
		},
	}
}
