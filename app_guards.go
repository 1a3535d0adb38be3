package main

import (
	"errors"

	"readlet/internal/capture"
	"readlet/internal/hotkeys"
)

func (a *App) requireRegistry() (*hotkeys.Registry, error) {
	if a.registry == nil {
		return nil, errors.New("shortcut registry is unavailable")
	}
	return a.registry, nil
}

// currentCapture returns the most recently started capture session, or nil.
func (a *App) currentCapture() *capture.Session {
	a.captureMu.Lock()
	defer a.captureMu.Unlock()
	return a.capture
}

// swapCapture installs next as the active session and returns the previous one.
func (a *App) swapCapture(next *capture.Session) *capture.Session {
	a.captureMu.Lock()
	defer a.captureMu.Unlock()
	prev := a.capture
	a.capture = next
	return prev
}
