package chord

import (
	"fmt"
	"strings"
)

// Separator joins canonical tokens in the persisted chord format.
const Separator = "+"

// Chord is an ordered key combination. In canonical form modifiers precede
// non-modifiers and each class holds at most two keys (see Composer).
type Chord []Key

// Of builds a chord from canonical or persisted tokens via ParseKey.
func Of(tokens ...string) Chord {
	out := make(Chord, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, ParseKey(token))
	}
	return out
}

// Parse reads a "Key1+Key2" string. Blank input yields an empty chord.
// Key order is preserved so that Parse(c.String()) reproduces c exactly.
func Parse(s string) (Chord, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Chord{}, nil
	}
	parts := strings.Split(raw, Separator)
	out := make(Chord, 0, len(parts))
	for i, part := range parts {
		key := ParseKey(part)
		if key.IsZero() {
			return nil, fmt.Errorf("chord %q: empty key at position %d", raw, i)
		}
		out = append(out, key)
	}
	return out, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Chord {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the persisted form, e.g. "Control+Shift+A".
func (c Chord) String() string {
	return strings.Join(c.Tokens(), Separator)
}

// Tokens returns the canonical tokens in order.
func (c Chord) Tokens() []string {
	tokens := make([]string, len(c))
	for i, key := range c {
		tokens[i] = key.token
	}
	return tokens
}

// Equal reports positional, case-insensitive equality.
func (c Chord) Equal(other Chord) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if !c[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Contains reports whether key occurs anywhere in c.
func (c Chord) Contains(key Key) bool {
	for _, k := range c {
		if k.Equal(key) {
			return true
		}
	}
	return false
}

// Split partitions c into modifiers and non-modifiers, preserving order.
func (c Chord) Split() (modifiers, others Chord) {
	for _, key := range c {
		if key.IsModifier() {
			modifiers = append(modifiers, key)
		} else {
			others = append(others, key)
		}
	}
	return modifiers, others
}

// AllModifiers reports whether every key is a modifier. False for empty chords.
func (c Chord) AllModifiers() bool {
	if len(c) == 0 {
		return false
	}
	for _, key := range c {
		if !key.IsModifier() {
			return false
		}
	}
	return true
}

// NoModifiers reports whether no key is a modifier. False for empty chords.
func (c Chord) NoModifiers() bool {
	if len(c) == 0 {
		return false
	}
	for _, key := range c {
		if key.IsModifier() {
			return false
		}
	}
	return true
}

// Canonical returns c with modifiers moved before non-modifiers. Relative
// order inside each class is kept.
func (c Chord) Canonical() Chord {
	modifiers, others := c.Split()
	out := make(Chord, 0, len(c))
	out = append(out, modifiers...)
	return append(out, others...)
}

// Clone returns an independent copy.
func (c Chord) Clone() Chord {
	if c == nil {
		return nil
	}
	out := make(Chord, len(c))
	copy(out, c)
	return out
}
