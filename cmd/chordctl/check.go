package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"readlet/internal/chord"
	"readlet/internal/config"
	"readlet/internal/shortcut"
)

type checkResult struct {
	Chord    string `json:"chord"`
	Display  string `json:"display"`
	Platform string `json:"platform"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
	Conflict string `json:"conflict,omitempty"`
}

// errRejected carries a rejection whose details were already printed.
var errRejected = errors.New("shortcut rejected")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check <chord>",
		Short: "Validate a chord against the saved shortcuts",
		Long: `The check command applies the same rules as the settings form: the chord
must not be empty, reserved by the platform, made of only modifiers or only
non-modifiers, or already bound to any action (including the one being
rebound). It exits with status 1 and prints the reason when the chord is
rejected.

Example:
  chordctl check Control+Shift+N
  chordctl check F5 --config ./config.yaml --platform linux`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, configPath, args[0])
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file to read bindings from (default: the reader's config)")
	return cmd
}

func runCheck(cmd *cobra.Command, opts *rootOptions, configPath, raw string) error {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	platform, err := opts.resolvePlatform(config.ResolvePlatform(cfg))
	if err != nil {
		return err
	}
	c, err := chord.Parse(raw)
	if err != nil {
		return err
	}

	validator := shortcut.NewValidator(shortcut.Options{
		Platform:              platform,
		AllowBareFunctionKeys: cfg.AllowBareFunctionKeys,
	})
	result := checkResult{
		Chord:    c.String(),
		Display:  chord.NewFormatter(platform).Format(c),
		Platform: platform.String(),
		Valid:    true,
	}
	if verr := validator.Validate(c, cfg.Shortcuts); verr != nil {
		result.Valid = false
		result.Reason = verr.Error()
		var conflict *shortcut.ConflictError
		if errors.As(verr, &conflict) {
			result.Conflict = conflict.Action
		}
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		if err := printJSON(out, result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(out, "ok: %s (%s)\n", result.Chord, result.Display)
	} else if result.Conflict != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (bound to %s)\n", result.Chord, result.Reason, result.Conflict)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", result.Chord, result.Reason)
	}
	if !result.Valid {
		return errRejected
	}
	return nil
}
