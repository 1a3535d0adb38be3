package hotkeys

import (
	"log/slog"
	"strings"
	"sync"
	"testing"

	"readlet/internal/chord"
	"readlet/internal/testutil"
)

type triggerRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *triggerRecorder) record(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *triggerRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

func newTestRegistry(t *testing.T) (*Registry, *triggerRecorder) {
	t.Helper()
	rec := &triggerRecorder{}
	r, err := NewRegistry(rec.record)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r, rec
}

func TestNewRegistryRequiresCallback(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Fatal("NewRegistry(nil) should fail")
	}
}

func TestParseBinding(t *testing.T) {
	tests := []struct {
		name    string
		action  string
		spec    string
		want    string
		wantErr bool
	}{
		{name: "canonical", action: "boss_key_shortcut", spec: "Control+Enter", want: "Control+Enter"},
		{name: "aliases", action: "boss_key_shortcut", spec: "cmd+shift+b", want: "Meta+Shift+B"},
		{name: "blank action", action: " ", spec: "Control+A", wantErr: true},
		{name: "blank spec", action: "x", spec: "", wantErr: true},
		{name: "empty segment", action: "x", spec: "Control+", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBinding(tt.action, tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBinding() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && b.Normalized() != tt.want {
				t.Fatalf("Normalized() = %q, want %q", b.Normalized(), tt.want)
			}
		})
	}
}

func TestRegistryReplaceKeepsValidEntries(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	r, _ := newTestRegistry(t)
	err := r.Replace(map[string]string{
		"next_line_shortcut": "Control+ArrowRight",
		"broken":             "Control++",
	})
	if err == nil {
		t.Fatal("Replace() should report the invalid entry")
	}
	got := r.Bindings()
	if len(got) != 1 || got["next_line_shortcut"] != "Control+ArrowRight" {
		t.Fatalf("Bindings() = %v", got)
	}
	if !strings.Contains(logBuf.String(), "skipping invalid binding") {
		t.Fatalf("expected warning log, got %q", logBuf.String())
	}
}

func TestRegistryDispatch(t *testing.T) {
	r, rec := newTestRegistry(t)
	if err := r.Replace(map[string]string{
		"next_line_shortcut": "Control+ArrowRight",
		"boss_key_shortcut":  "Control+Alt+Enter",
	}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	action, ok := r.Dispatch(chord.MustParse("Control+ArrowRight"))
	if !ok || action != "next_line_shortcut" {
		t.Fatalf("Dispatch() = (%q, %v), want next_line_shortcut", action, ok)
	}
	// Modifier order inside the class is irrelevant for dispatch.
	if action, ok := r.Dispatch(chord.Of("Alt", "Control", "Enter")); !ok || action != "boss_key_shortcut" {
		t.Fatalf("Dispatch(reordered) = (%q, %v), want boss_key_shortcut", action, ok)
	}
	if _, ok := r.Dispatch(chord.MustParse("Control+ArrowLeft")); ok {
		t.Fatal("Dispatch(unbound) should not fire")
	}
	if _, ok := r.Dispatch(nil); ok {
		t.Fatal("Dispatch(nil) should not fire")
	}
	got := rec.list()
	if len(got) != 2 || got[0] != "next_line_shortcut" || got[1] != "boss_key_shortcut" {
		t.Fatalf("triggered = %v", got)
	}
}

func TestRegistryDispatchPrefersExactKeyOrder(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	r, rec := newTestRegistry(t)
	for action, spec := range map[string]string{
		"next_line_shortcut": "Control+Shift+A",
		"prev_line_shortcut": "Shift+Control+A",
	} {
		if err := r.Bind(action, spec); err != nil {
			t.Fatalf("Bind(%q) error = %v", action, err)
		}
	}

	tests := []struct {
		name  string
		chord chord.Chord
		want  string
	}{
		{name: "bound order", chord: chord.Of("Shift", "Control", "A"), want: "prev_line_shortcut"},
		{name: "other bound order", chord: chord.Of("Control", "Shift", "A"), want: "next_line_shortcut"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if action, ok := r.Dispatch(tt.chord); !ok || action != tt.want {
				t.Fatalf("Dispatch(%s) = (%q, %v), want %q", tt.chord, action, ok, tt.want)
			}
		})
	}
	if logBuf.Len() != 0 {
		t.Fatalf("exact matches should not warn, log = %q", logBuf.String())
	}
	if got := rec.list(); len(got) != 2 {
		t.Fatalf("triggered = %v, want 2 actions", got)
	}
}

func TestRegistryLookupWarnsOnAmbiguousKeyOrder(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	r, _ := newTestRegistry(t)
	for action, spec := range map[string]string{
		"next_line_shortcut": "Control+Alt+A",
		"prev_line_shortcut": "Alt+Control+A",
	} {
		if err := r.Bind(action, spec); err != nil {
			t.Fatalf("Bind(%q) error = %v", action, err)
		}
	}

	// Neither binding holds this order.
	action, ok := r.Lookup(chord.Of("Control", "A", "Alt"))
	if !ok || action != "next_line_shortcut" {
		t.Fatalf("Lookup() = (%q, %v), want next_line_shortcut", action, ok)
	}
	if !strings.Contains(logBuf.String(), "several bindings") {
		t.Fatalf("log output = %q, want ambiguity warning", logBuf.String())
	}
}

func TestRegistrySuspendIsCounted(t *testing.T) {
	r, rec := newTestRegistry(t)
	if err := r.Bind("next_line_shortcut", "Control+ArrowRight"); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	c := chord.MustParse("Control+ArrowRight")

	_ = r.SuspendGlobalDispatch()
	_ = r.SuspendGlobalDispatch()
	if _, ok := r.Dispatch(c); ok {
		t.Fatal("Dispatch() fired while suspended")
	}
	_ = r.RestoreGlobalDispatch()
	if !r.Suspended() {
		t.Fatal("one outstanding suspension should keep dispatch suspended")
	}
	if _, ok := r.Dispatch(c); ok {
		t.Fatal("Dispatch() fired with one suspension outstanding")
	}
	_ = r.RestoreGlobalDispatch()
	if r.Suspended() {
		t.Fatal("Suspended() = true after balanced restores")
	}
	if _, ok := r.Dispatch(c); !ok {
		t.Fatal("Dispatch() should fire after restore")
	}
	if got := rec.list(); len(got) != 1 {
		t.Fatalf("triggered = %v, want one action", got)
	}
}

func TestRegistryUnmatchedRestore(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	r, _ := newTestRegistry(t)
	if err := r.RestoreGlobalDispatch(); err == nil {
		t.Fatal("RestoreGlobalDispatch() without suspend should fail")
	}
	if r.Suspended() {
		t.Fatal("counter should stay at zero")
	}
	if !strings.Contains(logBuf.String(), "restore without matching suspend") {
		t.Fatalf("expected warning log, got %q", logBuf.String())
	}
}

func TestRegistryBindUnbind(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.Bind("boss_key_shortcut", "Control+Enter"); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := r.Bind("boss_key_shortcut", "Control+Shift+Enter"); err != nil {
		t.Fatalf("Bind() rebinding error = %v", err)
	}
	if got := r.ExistingBindings()["boss_key_shortcut"]; got != "Control+Shift+Enter" {
		t.Fatalf("binding = %q, want Control+Shift+Enter", got)
	}
	r.Unbind("boss_key_shortcut")
	if len(r.Bindings()) != 0 {
		t.Fatalf("Bindings() = %v, want empty", r.Bindings())
	}
	if err := r.Bind("x", ""); err == nil {
		t.Fatal("Bind() with blank spec should fail")
	}
}

func TestRegistryConcurrentSuspendRestore(t *testing.T) {
	r, _ := newTestRegistry(t)
	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			_ = r.SuspendGlobalDispatch()
			_ = r.RestoreGlobalDispatch()
		})
	}
	wg.Wait()
	if r.Suspended() {
		t.Fatal("Suspended() = true after balanced concurrent calls")
	}
}
