// Package wsserver provides a localhost WebSocket endpoint that carries raw
// key events from the WebView to the shortcut capture controller and pushes
// capture state back.
//
// # Text frame protocol
//
// Client to server, one JSON object per frame:
//
//	{"type":"start","action":"boss_key_shortcut"}
//	{"type":"keydown","code":"ControlLeft"}
//	{"type":"keyup","code":"ControlLeft"}
//	{"type":"blur"}
//
// Server to client:
//
//	{"type":"capture","session":{...}}
//	{"type":"error","message":"..."}
package wsserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"readlet/internal/capture"
)

// Client message types.
const (
	TypeStart   = "start"
	TypeKeyDown = "keydown"
	TypeKeyUp   = "keyup"
	TypeBlur    = "blur"
)

// Server message types.
const (
	TypeCapture = "capture"
	TypeError   = "error"
)

// KeyEvent is one decoded client frame.
type KeyEvent struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code,omitempty"`
}

// captureMsg is the server push carrying a session snapshot.
type captureMsg struct {
	Type    string           `json:"type"`
	Session capture.Snapshot `json:"session"`
}

// errorMsg is the JSON payload for server error notifications sent to the client.
type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DecodeKeyEvent parses and validates a client frame.
func DecodeKeyEvent(raw []byte) (KeyEvent, error) {
	var ev KeyEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return KeyEvent{}, fmt.Errorf("invalid JSON: %w", err)
	}
	ev.Type = strings.ToLower(strings.TrimSpace(ev.Type))
	ev.Action = strings.TrimSpace(ev.Action)
	ev.Code = strings.TrimSpace(ev.Code)
	switch ev.Type {
	case TypeStart:
		if ev.Action == "" {
			return KeyEvent{}, fmt.Errorf("%s: action is required", ev.Type)
		}
	case TypeKeyDown, TypeKeyUp:
		if ev.Code == "" {
			return KeyEvent{}, fmt.Errorf("%s: code is required", ev.Type)
		}
	case TypeBlur:
	case "":
		return KeyEvent{}, errors.New("type is required")
	default:
		return KeyEvent{}, fmt.Errorf("unknown type %q", ev.Type)
	}
	return ev, nil
}

// EncodeCapture builds the capture push frame for snap.
func EncodeCapture(snap capture.Snapshot) ([]byte, error) {
	if snap.Keys == nil {
		snap.Keys = []string{}
	}
	payload, err := json.Marshal(captureMsg{Type: TypeCapture, Session: snap})
	if err != nil {
		return nil, fmt.Errorf("wsserver: encode capture: %w", err)
	}
	return payload, nil
}
