// Package shortcut decides whether a committed chord may become a binding.
package shortcut

import (
	"log/slog"
	"maps"
	"slices"

	"readlet/internal/chord"
)

// Options configures a Validator.
type Options struct {
	Platform chord.Platform
	// AllowBareFunctionKeys lets a lone F1..F24 pass the degenerate check.
	AllowBareFunctionKeys bool
	// Reserved replaces the platform table when non-nil.
	Reserved []chord.Chord
}

// Validator rejects empty, reserved, degenerate and conflicting chords.
// It is immutable after construction and safe for concurrent use.
type Validator struct {
	reserved              []chord.Chord
	allowBareFunctionKeys bool
}

// NewValidator builds a validator for opts.Platform.
func NewValidator(opts Options) *Validator {
	reserved := opts.Reserved
	if reserved == nil {
		reserved = ReservedTable(opts.Platform)
	}
	cloned := make([]chord.Chord, len(reserved))
	for i, c := range reserved {
		cloned[i] = c.Clone()
	}
	return &Validator{
		reserved:              cloned,
		allowBareFunctionKeys: opts.AllowBareFunctionKeys,
	}
}

// Validate runs the checks in order and returns the first failure, or nil.
// existing maps action names to persisted chord strings; every entry takes
// part in the conflict check.
func (v *Validator) Validate(c chord.Chord, existing map[string]string) error {
	if len(c) == 0 {
		return ErrEmpty
	}
	if v.IsReserved(c) {
		return ErrReserved
	}
	if v.isDegenerate(c) {
		return ErrDegenerate
	}
	// Sorted so the reported action is stable across calls.
	for _, action := range slices.Sorted(maps.Keys(existing)) {
		raw := existing[action]
		bound, err := chord.Parse(raw)
		if err != nil {
			slog.Warn("[WARN-SHORTCUT] existing binding is not a valid chord, skipping",
				"action", action, "binding", raw, "error", err)
			continue
		}
		if len(bound) == 0 {
			continue
		}
		if bound.Equal(c) {
			return &ConflictError{Action: action, Binding: raw}
		}
	}
	return nil
}

// IsReserved reports whether c matches a reserved chord exactly.
func (v *Validator) IsReserved(c chord.Chord) bool {
	for _, reserved := range v.reserved {
		if reserved.Equal(c) {
			return true
		}
	}
	return false
}

// Reserved returns a copy of the reserved table in use.
func (v *Validator) Reserved() []chord.Chord {
	out := make([]chord.Chord, len(v.reserved))
	for i, c := range v.reserved {
		out[i] = c.Clone()
	}
	return out
}

func (v *Validator) isDegenerate(c chord.Chord) bool {
	if v.allowBareFunctionKeys && len(c) == 1 && c[0].Kind() == chord.KindFunction {
		return false
	}
	return c.AllModifiers() || c.NoModifiers()
}
