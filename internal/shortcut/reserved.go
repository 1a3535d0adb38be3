package shortcut

import "readlet/internal/chord"

// reservedLetters are the copy/paste/cut/select-all/undo letters claimed by
// every desktop platform under its primary modifier.
var reservedLetters = []string{"C", "V", "X", "A", "Z"}

// ReservedTable returns the OS-claimed chords for platform p. macOS uses Meta
// (Command) as its primary modifier and also reserves Command+Q.
func ReservedTable(p chord.Platform) []chord.Chord {
	primary := chord.Control
	letters := reservedLetters
	if p == chord.PlatformMac {
		primary = chord.Meta
		letters = append(append([]string(nil), reservedLetters...), "Q")
	}
	table := make([]chord.Chord, 0, len(letters))
	for _, letter := range letters {
		table = append(table, chord.Of(primary, letter))
	}
	return table
}
