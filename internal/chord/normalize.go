package chord

import "strings"

// sideQualifiedModifiers collapses left/right modifier codes.
// "OSLeft"/"OSRight" are what older WebViews report for the Windows key.
var sideQualifiedModifiers = map[string]string{
	"ControlLeft":  Control,
	"ControlRight": Control,
	"ShiftLeft":    Shift,
	"ShiftRight":   Shift,
	"AltLeft":      Alt,
	"AltRight":     Alt,
	"MetaLeft":     Meta,
	"MetaRight":    Meta,
	"OSLeft":       Meta,
	"OSRight":      Meta,
}

// Normalize maps a raw platform key code (a KeyboardEvent.code value such as
// "ControlLeft", "KeyA", "Digit1" or "Numpad5") to its canonical key.
// Unrecognized codes are returned unchanged with KindUnrecognized.
func Normalize(raw string) Key {
	code := strings.TrimSpace(raw)
	if token, ok := sideQualifiedModifiers[code]; ok {
		return Key{token: token, kind: KindModifier}
	}
	if stripped, ok := stripCodePrefix(code); ok {
		return classify(stripped)
	}
	return classify(code)
}

// ParseKey resolves a persisted token back to a canonical key. Unlike
// Normalize it is case-insensitive and accepts modifier aliases such as
// "Ctrl", "Command" and "Super".
func ParseKey(token string) Key {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Key{}
	}
	if canonical, ok := modifierAliases[strings.ToLower(trimmed)]; ok {
		return Key{token: canonical, kind: KindModifier}
	}
	if key := Normalize(trimmed); key.kind != KindUnrecognized {
		return key
	}
	if canonical, ok := namedKeysFold[strings.ToLower(trimmed)]; ok {
		return Key{token: canonical, kind: KindNamed}
	}
	upper := strings.ToUpper(trimmed)
	if key := classify(upper); key.kind == KindLetter || key.kind == KindFunction {
		return key
	}
	return Key{token: trimmed, kind: KindUnrecognized}
}

// stripCodePrefix removes the prefix of a letter ("KeyA"), digit ("Digit1")
// or numpad ("Numpad5", "NumpadAdd") code. "Key" and "Digit" only apply to a
// single A-Z or 0-9, so codes like "Keyboard" are left untouched.
func stripCodePrefix(code string) (string, bool) {
	if rest, ok := strings.CutPrefix(code, "Key"); ok && len(rest) == 1 && rest[0] >= 'A' && rest[0] <= 'Z' {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(code, "Digit"); ok && len(rest) == 1 && rest[0] >= '0' && rest[0] <= '9' {
		return rest, true
	}
	if rest, ok := strings.CutPrefix(code, "Numpad"); ok && rest != "" {
		return rest, true
	}
	return code, false
}
