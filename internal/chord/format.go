package chord

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform is the OS family used for display glyphs and reserved tables.
type Platform uint8

const (
	PlatformWindows Platform = iota
	PlatformMac
	PlatformLinux
)

// String returns the config spelling of p.
func (p Platform) String() string {
	switch p {
	case PlatformMac:
		return "macos"
	case PlatformLinux:
		return "linux"
	default:
		return "windows"
	}
}

// CurrentPlatform maps runtime.GOOS to a platform family. Unknown systems use
// the Linux family.
func CurrentPlatform() Platform {
	return platformForGOOS(runtime.GOOS)
}

func platformForGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return PlatformWindows
	case "darwin", "ios":
		return PlatformMac
	default:
		return PlatformLinux
	}
}

// ParsePlatform accepts "windows", "macos" (or "mac"/"darwin") and "linux".
// An empty string resolves to CurrentPlatform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return CurrentPlatform(), nil
	case "windows", "win":
		return PlatformWindows, nil
	case "macos", "mac", "darwin":
		return PlatformMac, nil
	case "linux":
		return PlatformLinux, nil
	default:
		return CurrentPlatform(), fmt.Errorf("unknown platform %q", s)
	}
}

// DisplaySeparator joins rendered glyphs.
const DisplaySeparator = " + "

var modifierGlyphs = map[Platform]map[string]string{
	PlatformMac: {
		Control: "⌃",
		Shift:   "⇧",
		Alt:     "⌥",
		Meta:    "⌘",
	},
	PlatformWindows: {
		Control: "Ctrl",
		Shift:   "Shift",
		Alt:     "Alt",
		Meta:    "Win",
	},
	PlatformLinux: {
		Control: "Ctrl",
		Shift:   "Shift",
		Alt:     "Alt",
		Meta:    "Super",
	},
}

var keyGlyphs = map[string]string{
	"Space":        "Space",
	"Enter":        "↵",
	"Tab":          "⇥",
	"Backspace":    "⌫",
	"Delete":       "Del",
	"Escape":       "Esc",
	"ArrowUp":      "↑",
	"ArrowDown":    "↓",
	"ArrowLeft":    "←",
	"ArrowRight":   "→",
	"PageUp":       "PgUp",
	"PageDown":     "PgDn",
	"BracketLeft":  "[",
	"BracketRight": "]",
	"Semicolon":    ";",
	"Quote":        "'",
	"Comma":        ",",
	"Period":       ".",
	"Slash":        "/",
	"Backquote":    "`",
	"Backslash":    "\\",
	"Equal":        "=",
	"Minus":        "-",
	"Add":          "+",
	"Subtract":     "-",
	"Multiply":     "*",
	"Divide":       "/",
	"Decimal":      ".",
}

// Formatter renders chords for display on one platform family.
type Formatter struct {
	platform Platform
}

// NewFormatter returns a formatter for p.
func NewFormatter(p Platform) Formatter {
	return Formatter{platform: p}
}

// Platform returns the formatter's platform family.
func (f Formatter) Platform() Platform { return f.platform }

// Key renders one key. Unmapped keys fall back to prefix stripping, then to
// the raw token.
func (f Formatter) Key(key Key) string {
	if glyph, ok := modifierGlyphs[f.platform][key.token]; ok {
		return glyph
	}
	if glyph, ok := keyGlyphs[key.token]; ok {
		return glyph
	}
	if stripped, ok := stripCodePrefix(key.token); ok {
		return stripped
	}
	return key.token
}

// Format renders c, e.g. "Ctrl + Shift + A" or "⌃ + ⇧ + A".
func (f Formatter) Format(c Chord) string {
	parts := make([]string, len(c))
	for i, key := range c {
		parts[i] = f.Key(key)
	}
	return strings.Join(parts, DisplaySeparator)
}

// FormatString renders a persisted chord string. Segments that fail to parse
// are rendered verbatim.
func (f Formatter) FormatString(s string) string {
	c, err := Parse(s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return f.Format(c)
}
