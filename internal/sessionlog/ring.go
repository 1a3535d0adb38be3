package sessionlog

import "sync"

// DefaultCapacity bounds the diagnostics feed kept by the App.
const DefaultCapacity = 200

// Ring keeps the most recent entries, oldest first. Safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	size    int
}

// NewRing returns a ring holding at most capacity entries. Non-positive
// capacities fall back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{entries: make([]Entry, capacity)}
}

// Add appends entry, evicting the oldest when full.
func (r *Ring) Add(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := (r.start + r.size) % len(r.entries)
	r.entries[idx] = entry
	if r.size < len(r.entries) {
		r.size++
		return
	}
	r.start = (r.start + 1) % len(r.entries)
}

// Snapshot returns a copy of the buffered entries, oldest first.
func (r *Ring) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, r.size)
	for i := range r.size {
		out = append(out, r.entries[(r.start+i)%len(r.entries)])
	}
	return out
}

// Clear drops every buffered entry.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.start = 0
	r.size = 0
}

// Len reports the number of buffered entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
