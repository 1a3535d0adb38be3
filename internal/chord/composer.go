package chord

const (
	// MaxModifiers caps the modifier keys kept in a composed chord.
	MaxModifiers = 2
	// MaxNonModifiers caps the non-modifier keys kept in a composed chord.
	MaxNonModifiers = 2
)

// Composer accumulates concurrently held keys into a candidate chord.
//
// Keys beyond the per-class caps are dropped silently: the earliest keys
// seen win. A release only updates the held set; the candidate never shrinks
// until Reset.
//
// The zero value is ready to use. Composer is not safe for concurrent use.
type Composer struct {
	pressed []Key
	current Chord
}

// KeyDown records a press and returns the updated candidate.
// Auto-repeat presses add duplicate entries to the held set.
func (c *Composer) KeyDown(key Key) Chord {
	if key.IsZero() {
		return c.Current()
	}
	c.pressed = append(c.pressed, key)
	c.current = compose(c.current, key)
	return c.Current()
}

// KeyUp removes every held instance of key.
func (c *Composer) KeyUp(key Key) {
	kept := c.pressed[:0]
	for _, held := range c.pressed {
		if !held.Equal(key) {
			kept = append(kept, held)
		}
	}
	clear(c.pressed[len(kept):])
	c.pressed = kept
}

// Pressed returns the number of held key entries.
func (c *Composer) Pressed() int { return len(c.pressed) }

// Held returns a copy of the held keys in press order.
func (c *Composer) Held() []Key {
	out := make([]Key, len(c.pressed))
	copy(out, c.pressed)
	return out
}

// Current returns a copy of the candidate chord.
func (c *Composer) Current() Chord {
	return c.current.Clone()
}

// Reset clears both the held set and the candidate.
func (c *Composer) Reset() {
	c.pressed = nil
	c.current = nil
}

func compose(prev Chord, key Key) Chord {
	seen := make(Chord, 0, len(prev)+1)
	for _, k := range append(prev.Clone(), key) {
		if !seen.Contains(k) {
			seen = append(seen, k)
		}
	}
	modifiers, others := seen.Split()
	if len(modifiers) > MaxModifiers {
		modifiers = modifiers[:MaxModifiers]
	}
	if len(others) > MaxNonModifiers {
		others = others[:MaxNonModifiers]
	}
	out := make(Chord, 0, len(modifiers)+len(others))
	out = append(out, modifiers...)
	return append(out, others...)
}
