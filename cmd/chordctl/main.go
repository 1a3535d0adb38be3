// Command chordctl inspects keyboard chords the way the reader's shortcut
// settings do: it normalizes raw key codes, renders chords for a platform,
// and checks a chord against the saved bindings.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Rejections have already printed their reason.
		if !errors.Is(err, errRejected) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
