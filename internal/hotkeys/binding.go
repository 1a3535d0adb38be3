package hotkeys

import (
	"errors"
	"fmt"
	"strings"

	"readlet/internal/chord"
)

// Binding describes a parsed action shortcut.
// Construct only via ParseBinding to guarantee invariant consistency.
type Binding struct {
	action     string
	chord      chord.Chord
	normalized string
}

// ParseBinding parses spec into the binding for action. Blank specs are
// rejected; an unbound action is simply absent from the registry.
func ParseBinding(action, spec string) (Binding, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return Binding{}, errors.New("binding action is required")
	}
	c, err := chord.Parse(spec)
	if err != nil {
		return Binding{}, fmt.Errorf("binding %s: %w", action, err)
	}
	if len(c) == 0 {
		return Binding{}, fmt.Errorf("binding %s: empty shortcut", action)
	}
	return Binding{action: action, chord: c, normalized: c.String()}, nil
}

// Action returns the action name the binding triggers.
func (b Binding) Action() string { return b.action }

// Chord returns a copy of the bound chord.
func (b Binding) Chord() chord.Chord { return b.chord.Clone() }

// Normalized returns the canonical binding string.
func (b Binding) Normalized() string { return b.normalized }

// Matches reports whether c triggers this binding.
func (b Binding) Matches(c chord.Chord) bool { return b.chord.Equal(c) }
