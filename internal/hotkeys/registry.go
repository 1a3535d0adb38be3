package hotkeys

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"readlet/internal/chord"
)

// Registry holds the in-process action shortcuts and gates their dispatch.
// Global dispatch is suspended while any capture session is recording;
// suspensions are counted so overlapping sessions restore in any order.
type Registry struct {
	mu        sync.Mutex
	bindings  map[string]Binding
	suspended int
	onTrigger func(action string)
}

// NewRegistry creates an empty registry. onTrigger is invoked outside the
// registry lock for every dispatched action.
func NewRegistry(onTrigger func(action string)) (*Registry, error) {
	if onTrigger == nil {
		return nil, errors.New("onTrigger callback is required")
	}
	return &Registry{
		bindings:  map[string]Binding{},
		onTrigger: onTrigger,
	}, nil
}

// Replace swaps the whole binding set for shortcuts (action -> chord string).
// Invalid or blank entries are skipped; their parse errors are joined into
// the returned error while every valid entry is still installed.
func (r *Registry) Replace(shortcuts map[string]string) error {
	next := make(map[string]Binding, len(shortcuts))
	var errs []error
	for _, action := range slices.Sorted(maps.Keys(shortcuts)) {
		spec := shortcuts[action]
		binding, err := ParseBinding(action, spec)
		if err != nil {
			slog.Warn("[hotkey] skipping invalid binding", "action", action, "binding", spec, "error", err)
			errs = append(errs, err)
			continue
		}
		next[binding.Action()] = binding
	}

	r.mu.Lock()
	r.bindings = next
	r.mu.Unlock()

	slog.Debug("[hotkey] DEBUG bindings replaced", "count", len(next))
	return errors.Join(errs...)
}

// Bind installs or replaces the binding for one action.
func (r *Registry) Bind(action, spec string) error {
	binding, err := ParseBinding(action, spec)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[binding.Action()] = binding
	return nil
}

// Unbind removes the binding for action, if any.
func (r *Registry) Unbind(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, action)
}

// Bindings returns a snapshot of action -> normalized chord string.
func (r *Registry) Bindings() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.bindings))
	for action, binding := range r.bindings {
		out[action] = binding.Normalized()
	}
	return out
}

// ExistingBindings returns the bindings a new chord must not collide with.
func (r *Registry) ExistingBindings() map[string]string {
	return r.Bindings()
}

// Lookup returns the action bound to c. A binding equal to c key for key
// wins; otherwise a binding holding the same keys in another order matches.
// Several such bindings are ambiguous: the first action by name is returned
// and a warning is logged.
func (r *Registry) Lookup(c chord.Chord) (string, bool) {
	if len(c) == 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []string
	for _, action := range slices.Sorted(maps.Keys(r.bindings)) {
		binding := r.bindings[action]
		if binding.Matches(c) {
			return action, true
		}
		if sameKeys(binding.chord, c) {
			candidates = append(candidates, action)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) > 1 {
		slog.Warn("[hotkey] chord matches several bindings in a different key order",
			"chord", c.String(), "actions", candidates, "chosen", candidates[0])
	}
	return candidates[0], true
}

func sameKeys(a, b chord.Chord) bool {
	if len(a) != len(b) {
		return false
	}
	for _, key := range a {
		if !b.Contains(key) {
			return false
		}
	}
	for _, key := range b {
		if !a.Contains(key) {
			return false
		}
	}
	return true
}

// Dispatch triggers the action bound to c. It reports the action and whether
// it fired; nothing fires while dispatch is suspended.
func (r *Registry) Dispatch(c chord.Chord) (string, bool) {
	if r.Suspended() {
		slog.Debug("[hotkey] DEBUG dispatch suppressed while suspended", "chord", c.String())
		return "", false
	}
	action, ok := r.Lookup(c)
	if !ok {
		return "", false
	}
	r.onTrigger(action)
	return action, true
}

// SuspendGlobalDispatch stops dispatch until a matching restore.
func (r *Registry) SuspendGlobalDispatch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suspended++
	slog.Debug("[hotkey] DEBUG dispatch suspended", "depth", r.suspended)
	return nil
}

// RestoreGlobalDispatch releases one suspension. An unmatched restore is
// logged and the counter stays at zero.
func (r *Registry) RestoreGlobalDispatch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.suspended == 0 {
		slog.Warn("[hotkey] restore without matching suspend")
		return errors.New("global dispatch is not suspended")
	}
	r.suspended--
	slog.Debug("[hotkey] DEBUG dispatch restored", "depth", r.suspended)
	return nil
}

// Suspended reports whether dispatch is currently suspended.
func (r *Registry) Suspended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.suspended > 0
}
