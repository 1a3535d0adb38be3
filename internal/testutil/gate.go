package testutil

import (
	"sync"
	"testing"
)

// RecordingGate is a dispatch gate that records every suspend and restore.
// SuspendErr and RestoreErr, when set, are returned after the call is counted.
type RecordingGate struct {
	mu         sync.Mutex
	calls      []string
	depth      int
	SuspendErr error
	RestoreErr error
}

// SuspendGlobalDispatch records a suspend.
func (g *RecordingGate) SuspendGlobalDispatch() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "suspend")
	if g.SuspendErr != nil {
		return g.SuspendErr
	}
	g.depth++
	return nil
}

// RestoreGlobalDispatch records a restore.
func (g *RecordingGate) RestoreGlobalDispatch() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, "restore")
	if g.RestoreErr != nil {
		return g.RestoreErr
	}
	g.depth--
	return nil
}

// Calls returns the recorded call names in order.
func (g *RecordingGate) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// Depth returns successful suspends minus successful restores.
func (g *RecordingGate) Depth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.depth
}

// AssertBalanced fails t unless every suspend was matched by one restore.
func (g *RecordingGate) AssertBalanced(t *testing.T) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	var suspends, restores int
	for _, call := range g.calls {
		switch call {
		case "suspend":
			suspends++
		case "restore":
			restores++
		}
	}
	if suspends != restores {
		t.Fatalf("gate calls unbalanced: %d suspends, %d restores (%v)", suspends, restores, g.calls)
	}
}
