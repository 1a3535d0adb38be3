package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"readlet/internal/chord"
)

type normalizedKey struct {
	Code string `json:"code"`
	Key  string `json:"key"`
	Kind string `json:"kind"`
}

func newNormalizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <code>...",
		Short: "Map raw key codes to canonical keys",
		Long: `The normalize command maps KeyboardEvent.code values to the canonical
keys a shortcut is recorded with.

Example:
  chordctl normalize ControlLeft ShiftRight KeyA Digit1 F12
  chordctl normalize MetaLeft --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]normalizedKey, 0, len(args))
			for _, code := range args {
				key := chord.Normalize(code)
				keys = append(keys, normalizedKey{Code: code, Key: key.Token(), Kind: key.Kind().String()})
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), keys)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Code, k.Key, k.Kind)
			}
			return tw.Flush()
		},
	}
}
