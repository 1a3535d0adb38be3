// Package capture records one shortcut from raw key events.
//
// A Session moves Idle -> Recording on Start, feeds key events through a
// chord.Composer, and commits the instant every held key has been released.
// Global shortcut dispatch is suspended for the whole recording and restored
// exactly once on every exit path.
package capture

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"readlet/internal/chord"
	"readlet/internal/shortcut"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("capture session closed")

// State is the session lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StateRecording
	// StateCommitting lasts only while the committed chord is validated.
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name for JSON snapshots.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DispatchGate suspends and restores global shortcut dispatch.
type DispatchGate interface {
	SuspendGlobalDispatch() error
	RestoreGlobalDispatch() error
}

// BindingSource supplies the bindings a new chord must not conflict with.
type BindingSource interface {
	ExistingBindings() map[string]string
}

// BindingSourceFunc adapts a function to BindingSource.
type BindingSourceFunc func() map[string]string

func (f BindingSourceFunc) ExistingBindings() map[string]string { return f() }

// Validator decides whether a committed chord is acceptable.
type Validator interface {
	Validate(c chord.Chord, existing map[string]string) error
}

// Options configures a Session. Gate, Bindings and Listener may be nil.
type Options struct {
	// ID overrides the generated session ID.
	ID        string
	Action    string
	Gate      DispatchGate
	Bindings  BindingSource
	Validator Validator
	Listener  Listener
	Formatter chord.Formatter
}

// Session is one shortcut-input widget's capture state. Safe for concurrent
// use; listener and gate calls are made without the session lock held.
type Session struct {
	id        string
	action    string
	gate      DispatchGate
	bindings  BindingSource
	validator Validator
	listener  Listener
	formatter chord.Formatter

	mu       sync.Mutex
	state    State
	composer chord.Composer
	hold     *hold
	gen      uint64
	closed   bool
}

// NewSession creates an idle session. A nil Validator defaults to the
// shortcut validator for the formatter's platform.
func NewSession(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	gate := opts.Gate
	if gate == nil {
		gate = noopGate{}
	}
	bindings := opts.Bindings
	if bindings == nil {
		bindings = BindingSourceFunc(func() map[string]string { return nil })
	}
	validator := opts.Validator
	if validator == nil {
		validator = shortcut.NewValidator(shortcut.Options{Platform: opts.Formatter.Platform()})
	}
	listener := opts.Listener
	if listener == nil {
		listener = ListenerFuncs{}
	}
	return &Session{
		id:        id,
		action:    opts.Action,
		gate:      gate,
		bindings:  bindings,
		validator: validator,
		listener:  listener,
		formatter: opts.Formatter,
	}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// Action returns the action this session records a shortcut for.
func (s *Session) Action() string { return s.action }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current state and candidate.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Start begins recording and suspends global dispatch. It is a no-op while
// already recording.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateRecording {
		s.mu.Unlock()
		return nil
	}
	h := &hold{gate: s.gate, sessionID: s.id}
	s.state = StateRecording
	s.composer.Reset()
	s.hold = h
	s.gen++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	h.acquire()
	slog.Debug("[capture] DEBUG recording started", "session", s.id, "action", s.action)
	s.listener.OnChange(snap)
	return nil
}

// KeyDown feeds a raw key code. Ignored unless recording.
func (s *Session) KeyDown(raw string) {
	key := chord.Normalize(raw)
	s.mu.Lock()
	if s.state != StateRecording || key.IsZero() {
		s.mu.Unlock()
		return
	}
	s.composer.KeyDown(key)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.listener.OnChange(snap)
}

// KeyUp feeds a raw key release. Releasing the last held key commits the
// candidate when it is non-empty. Ignored unless recording.
func (s *Session) KeyUp(raw string) {
	key := chord.Normalize(raw)
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	s.composer.KeyUp(key)
	current := s.composer.Current()
	if s.composer.Pressed() > 0 || len(current) == 0 {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.listener.OnChange(snap)
		return
	}

	s.state = StateCommitting
	s.composer.Reset()
	h := s.hold
	s.hold = nil
	gen := s.gen
	s.mu.Unlock()

	s.commit(current, h, gen)
}

// Blur aborts an active recording. Nothing is committed or rejected.
func (s *Session) Blur() {
	s.abort("blur")
}

// Close aborts any recording and refuses further Starts.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.abort("close")
}

func (s *Session) abort(reason string) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	s.composer.Reset()
	h := s.hold
	s.hold = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	h.release()
	slog.Debug("[capture] DEBUG recording aborted", "session", s.id, "action", s.action, "reason", reason)
	s.listener.OnChange(snap)
}

// commit restores dispatch before validating so a rejection never leaves
// dispatch suspended.
func (s *Session) commit(c chord.Chord, h *hold, gen uint64) {
	h.release()

	err := s.validator.Validate(c, s.bindings.ExistingBindings())

	s.mu.Lock()
	if s.state == StateCommitting && s.gen == gen {
		s.state = StateIdle
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err != nil {
		slog.Debug("[capture] DEBUG chord rejected",
			"session", s.id, "action", s.action, "chord", c.String(), "reason", err)
		s.listener.OnReject(err.Error())
	} else {
		slog.Debug("[capture] DEBUG chord committed", "session", s.id, "action", s.action, "chord", c.String())
		s.listener.OnCommit(c.String())
	}
	s.listener.OnChange(snap)
}

func (s *Session) snapshotLocked() Snapshot {
	current := s.composer.Current()
	return Snapshot{
		ID:      s.id,
		Action:  s.action,
		State:   s.state,
		Keys:    current.Tokens(),
		Chord:   current.String(),
		Display: s.formatter.Format(current),
		Held:    s.composer.Pressed(),
	}
}

// hold pairs one suspend with at most one restore. A release that wins the
// race against acquire cancels the suspend instead.
type hold struct {
	gate      DispatchGate
	sessionID string

	mu       sync.Mutex
	acquired bool
	released bool
}

func (h *hold) acquire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released || h.acquired {
		return
	}
	if err := h.gate.SuspendGlobalDispatch(); err != nil {
		slog.Warn("[capture] failed to suspend global dispatch", "session", h.sessionID, "error", err)
		return
	}
	h.acquired = true
}

func (h *hold) release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return
	}
	h.released = true
	if !h.acquired {
		return
	}
	if err := h.gate.RestoreGlobalDispatch(); err != nil {
		slog.Warn("[capture] failed to restore global dispatch", "session", h.sessionID, "error", err)
	}
}

type noopGate struct{}

func (noopGate) SuspendGlobalDispatch() error { return nil }
func (noopGate) RestoreGlobalDispatch() error { return nil }
