package capture

// Snapshot is a point-in-time view of a session for rendering.
type Snapshot struct {
	ID      string   `json:"id"`
	Action  string   `json:"action"`
	State   State    `json:"state"`
	Keys    []string `json:"keys"`
	Chord   string   `json:"chord"`
	Display string   `json:"display"`
	Held    int      `json:"held"`
}

// Listener receives session events. Calls are made without the session
// lock held, so implementations may call back into the session.
type Listener interface {
	// OnCommit receives the accepted chord string, modifiers first.
	OnCommit(chord string)
	// OnReject receives the rejection reason for display.
	OnReject(reason string)
	// OnChange receives every state or candidate change.
	OnChange(snap Snapshot)
}

// ListenerFuncs adapts optional functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Commit func(chord string)
	Reject func(reason string)
	Change func(snap Snapshot)
}

func (f ListenerFuncs) OnCommit(chord string) {
	if f.Commit != nil {
		f.Commit(chord)
	}
}

func (f ListenerFuncs) OnReject(reason string) {
	if f.Reject != nil {
		f.Reject(reason)
	}
}

func (f ListenerFuncs) OnChange(snap Snapshot) {
	if f.Change != nil {
		f.Change(snap)
	}
}
