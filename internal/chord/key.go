// Package chord models keyboard chords: the canonical key tokens produced from
// raw platform key codes, the capped chord composed while keys are held, the
// "Key1+Key2" wire format, and the per-platform display rendering.
package chord

import (
	"strings"
)

// Kind classifies a canonical key.
type Kind uint8

const (
	// KindUnrecognized is the fallback for codes outside the known tables.
	// The raw code is kept as the token.
	KindUnrecognized Kind = iota
	KindModifier
	KindLetter
	KindDigit
	KindFunction
	KindNamed
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindModifier:
		return "modifier"
	case KindLetter:
		return "letter"
	case KindDigit:
		return "digit"
	case KindFunction:
		return "function"
	case KindNamed:
		return "named"
	default:
		return "unrecognized"
	}
}

// Canonical modifier tokens. Left/right variants and platform aliases all
// collapse to one of these.
const (
	Control = "Control"
	Shift   = "Shift"
	Alt     = "Alt"
	Meta    = "Meta"
)

// Key is one physical key in canonical form.
// Construct only via Normalize or ParseKey so that token and kind agree.
type Key struct {
	token string
	kind  Kind
}

// Token returns the canonical token, e.g. "Control", "A", "ArrowUp".
func (k Key) Token() string { return k.token }

// Kind returns the key classification.
func (k Key) Kind() Kind { return k.kind }

// IsModifier reports whether k is a Control/Shift/Alt/Meta-class key.
func (k Key) IsModifier() bool { return k.kind == KindModifier }

// IsZero reports whether k carries no token.
func (k Key) IsZero() bool { return k.token == "" }

// String returns the canonical token.
func (k Key) String() string { return k.token }

// Equal compares tokens case-insensitively.
func (k Key) Equal(other Key) bool {
	return strings.EqualFold(k.token, other.token)
}

var modifierTokens = map[string]struct{}{
	Control: {},
	Shift:   {},
	Alt:     {},
	Meta:    {},
}

// modifierAliases maps lower-cased persisted spellings to canonical modifiers.
// "command" is what older settings files stored for the macOS Meta key.
var modifierAliases = map[string]string{
	"control": Control,
	"ctrl":    Control,
	"shift":   Shift,
	"alt":     Alt,
	"option":  Alt,
	"meta":    Meta,
	"command": Meta,
	"cmd":     Meta,
	"super":   Meta,
	"win":     Meta,
	"os":      Meta,
}

// namedKeys lists non-modifier, non-alphanumeric keys by canonical token.
var namedKeys = map[string]struct{}{
	"Space":        {},
	"Enter":        {},
	"Tab":          {},
	"Escape":       {},
	"Backspace":    {},
	"Delete":       {},
	"Insert":       {},
	"Home":         {},
	"End":          {},
	"PageUp":       {},
	"PageDown":     {},
	"ArrowUp":      {},
	"ArrowDown":    {},
	"ArrowLeft":    {},
	"ArrowRight":   {},
	"CapsLock":     {},
	"NumLock":      {},
	"ScrollLock":   {},
	"PrintScreen":  {},
	"Pause":        {},
	"ContextMenu":  {},
	"Backquote":    {},
	"Minus":        {},
	"Equal":        {},
	"BracketLeft":  {},
	"BracketRight": {},
	"Backslash":    {},
	"Semicolon":    {},
	"Quote":        {},
	"Comma":        {},
	"Period":       {},
	"Slash":        {},

	// Numpad operators after prefix stripping.
	"Add":      {},
	"Subtract": {},
	"Multiply": {},
	"Divide":   {},
	"Decimal":  {},
}

// namedKeysFold indexes namedKeys by lower-case token for ParseKey.
var namedKeysFold = func() map[string]string {
	out := make(map[string]string, len(namedKeys))
	for token := range namedKeys {
		out[strings.ToLower(token)] = token
	}
	return out
}()

// classify resolves an exact canonical token. Anything it does not know is
// returned unchanged as KindUnrecognized.
func classify(token string) Key {
	if _, ok := modifierTokens[token]; ok {
		return Key{token: token, kind: KindModifier}
	}
	if len(token) == 1 {
		ch := token[0]
		switch {
		case ch >= 'A' && ch <= 'Z':
			return Key{token: token, kind: KindLetter}
		case ch >= '0' && ch <= '9':
			return Key{token: token, kind: KindDigit}
		}
	}
	if isFunctionToken(token) {
		return Key{token: token, kind: KindFunction}
	}
	if _, ok := namedKeys[token]; ok {
		return Key{token: token, kind: KindNamed}
	}
	return Key{token: token, kind: KindUnrecognized}
}

// isFunctionToken matches "F1".."F24".
func isFunctionToken(token string) bool {
	if len(token) < 2 || len(token) > 3 || token[0] != 'F' {
		return false
	}
	n := 0
	for i := 1; i < len(token); i++ {
		ch := token[i]
		if ch < '0' || ch > '9' {
			return false
		}
		n = n*10 + int(ch-'0')
	}
	if token[1] == '0' {
		return false
	}
	return n >= 1 && n <= 24
}
