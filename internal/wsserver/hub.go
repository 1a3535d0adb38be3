package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"readlet/internal/capture"
)

// writeDeadline is the maximum time allowed for a single WebSocket write.
// A WebView frozen longer than this is treated as disconnected.
const writeDeadline = 5 * time.Second

// readDeadline allows ~3 missed pings before the connection is dropped.
const readDeadline = 90 * time.Second

const pingInterval = 30 * time.Second

// maxReadMessageSize bounds one key-event frame. Real frames are < 200 bytes.
const maxReadMessageSize = 4 * 1024

// keysPath is the HTTP path of the key stream endpoint.
const keysPath = "/keys"

var wsUpgrader = websocket.Upgrader{
	// The server binds to 127.0.0.1 only; the WebView origin varies by platform.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// KeySink receives decoded key events. The App's capture controller
// implements it.
type KeySink interface {
	StartCapture(action string) (capture.Snapshot, error)
	KeyDown(code string)
	KeyUp(code string)
	Blur()
}

// HubOptions configures the key stream server.
type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for OS-assigned port.
	Addr string
	// Sink receives every valid client frame. Required.
	Sink KeySink
}

// Hub manages a single WebSocket connection carrying key events.
//
// Design: Single-connection model (desktop app = 1 WebView client).
// New connections replace existing ones to handle page reloads gracefully.
//
// Lock ordering (never acquire in reverse):
//
//	writeMu -> mu
//
// mu protects connection state.
// writeMu serializes gorilla/websocket WriteMessage calls (not concurrency-safe).
//
// Write failure policy: any write failure disconnects the client via
// clearIfCurrent+closeConn. The client must reconnect.
type Hub struct {
	opts HubOptions

	mu   sync.RWMutex
	conn *websocket.Conn

	writeMu sync.Mutex

	listener net.Listener
	server   *http.Server
	url      string // "ws://127.0.0.1:<port>/keys", set after Start

	// closeOnce ensures Stop is idempotent. A stopped Hub cannot be reused.
	closeOnce sync.Once
}

// NewHub creates a Hub with the given options.
// The hub is not started until Start is called.
func NewHub(opts HubOptions) (*Hub, error) {
	if opts.Sink == nil {
		return nil, errors.New("wsserver: key sink is required")
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{opts: opts}, nil
}

// Start begins listening on the configured address and serves WebSocket
// connections. When ctx is cancelled, active request handlers receive
// cancellation; the server itself must be stopped explicitly via Stop.
//
// Start must be called exactly once during application startup.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return fmt.Errorf("wsserver: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.listener = ln

	port := ln.Addr().(*net.TCPAddr).Port
	h.url = fmt.Sprintf("ws://127.0.0.1:%d%s", port, keysPath)

	mux := http.NewServeMux()
	mux.HandleFunc(keysPath, h.handleWS)

	h.server = &http.Server{
		Handler: mux,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[DEBUG-WS] key stream started", "url", h.url)
	return nil
}

// Stop gracefully shuts down the HTTP server and closes any active WebSocket
// connection. Safe to call multiple times.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.mu.Unlock()

		if conn != nil {
			h.closeConn(conn, "hub stop")
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}

		slog.Info("[DEBUG-WS] key stream stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL for frontend connection
// (e.g. "ws://127.0.0.1:54321/keys"), or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// HasActiveConnection reports whether a WebSocket client is currently connected.
func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	active := h.conn != nil
	h.mu.RUnlock()
	return active
}

// PublishCapture pushes a capture snapshot to the connected client.
// No-op when no client is connected.
func (h *Hub) PublishCapture(snap capture.Snapshot) {
	h.mu.RLock()
	conn := h.conn
	h.mu.RUnlock()
	if conn == nil {
		slog.Debug("[DEBUG-WS] capture push skipped: no connection", "session", snap.ID)
		return
	}
	payload, err := EncodeCapture(snap)
	if err != nil {
		slog.Warn("[DEBUG-WS] failed to encode capture snapshot", "error", err)
		return
	}
	h.writeText(conn, payload, "PublishCapture")
}

// clearIfCurrent clears the hub's connection only if conn is still current.
// Caller must NOT hold h.mu.
func (h *Hub) clearIfCurrent(conn *websocket.Conn) bool {
	h.mu.Lock()
	isCurrent := h.conn == conn
	if isCurrent {
		h.conn = nil
	}
	h.mu.Unlock()
	return isCurrent
}

// closeConn closes conn. Double-close is expected when a reload replaces the
// connection and is logged at Debug level.
func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if closeErr := conn.Close(); closeErr != nil {
		slog.Debug("[DEBUG-WS] connection close", "reason", reason, "error", closeErr)
	}
}

// setWriteDeadlineOrClose sets a write deadline, closing the connection if
// that fails. Returns false when the connection was closed.
func (h *Hub) setWriteDeadlineOrClose(conn *websocket.Conn, d time.Duration) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
		slog.Warn("[DEBUG-WS] SetWriteDeadline failed, closing connection", "error", err)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "SetWriteDeadline failure")
		return false
	}
	return true
}

// clearWriteDeadline resets the write deadline after a successful write.
// Failure is non-fatal: the next write sets a fresh deadline.
func (h *Hub) clearWriteDeadline(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("[DEBUG-WS] clearWriteDeadline failed (non-fatal)", "error", err)
	}
}

// writeText writes one text frame under writeMu, applying the write failure
// policy.
func (h *Hub) writeText(conn *websocket.Conn, payload []byte, caller string) {
	h.writeMu.Lock()
	if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
		h.writeMu.Unlock()
		return
	}
	err := conn.WriteMessage(websocket.TextMessage, payload)
	h.clearWriteDeadline(conn)
	h.writeMu.Unlock()

	if err != nil {
		slog.Warn("[DEBUG-WS] write failed, closing connection", "caller", caller, "error", err)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "write error in "+caller)
	}
}

// handleWS upgrades HTTP to WebSocket and runs the read pump.
// New connections replace old ones to handle page reloads gracefully.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DEBUG-WS] upgrade failed", "error", err)
		return
	}

	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetReadDeadline failed on new connection", "error", err)
		h.closeConn(conn, "initial SetReadDeadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	oldConn := h.conn
	h.conn = conn
	h.mu.Unlock()

	if oldConn != nil {
		h.closeConn(oldConn, "replaced by new connection")
	}

	slog.Info("[DEBUG-WS] client connected", "remoteAddr", conn.RemoteAddr())

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver handleWS recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		close(pingDone)
		// A dropped WebView cannot deliver the key-ups of a chord in progress.
		if h.clearIfCurrent(conn) {
			h.opts.Sink.Blur()
		}
		h.closeConn(conn, "read pump exit")
		slog.Info("[DEBUG-WS] client disconnected")
	}()

	for {
		msgType, msg, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[DEBUG-WS] read error", "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ev, decodeErr := DecodeKeyEvent(msg)
		if decodeErr != nil {
			slog.Debug("[DEBUG-WS] invalid frame from client", "error", decodeErr)
			h.sendError(conn, decodeErr.Error())
			continue
		}
		h.dispatch(conn, ev)
	}
}

// dispatch forwards ev to the sink. Frames from a replaced connection are
// discarded.
func (h *Hub) dispatch(conn *websocket.Conn, ev KeyEvent) {
	h.mu.RLock()
	current := h.conn == conn
	h.mu.RUnlock()
	if !current {
		slog.Debug("[DEBUG-WS] frame from stale connection, skipping", "type", ev.Type)
		return
	}

	switch ev.Type {
	case TypeStart:
		snap, err := h.opts.Sink.StartCapture(ev.Action)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		payload, err := EncodeCapture(snap)
		if err != nil {
			slog.Warn("[DEBUG-WS] failed to encode capture snapshot", "error", err)
			return
		}
		h.writeText(conn, payload, "dispatch")
	case TypeKeyDown:
		h.opts.Sink.KeyDown(ev.Code)
	case TypeKeyUp:
		h.opts.Sink.KeyUp(ev.Code)
	case TypeBlur:
		h.opts.Sink.Blur()
	}
}

// pingLoop sends periodic pings to detect dead connections.
// Exits when done is closed or a ping fails.
func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver pingLoop recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			h.clearIfCurrent(conn)
			h.closeConn(conn, "pingLoop panic recovery")
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.writeMu.Lock()
			if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
				h.writeMu.Unlock()
				return
			}
			pingErr := conn.WriteMessage(websocket.PingMessage, nil)
			h.clearWriteDeadline(conn)
			h.writeMu.Unlock()

			if pingErr != nil {
				slog.Debug("[DEBUG-WS] ping failed, connection likely dead", "error", pingErr)
				h.clearIfCurrent(conn)
				h.closeConn(conn, "ping failure")
				return
			}
		}
	}
}

// sendError sends a JSON error message to the client.
func (h *Hub) sendError(conn *websocket.Conn, message string) {
	payload, err := json.Marshal(errorMsg{Type: TypeError, Message: message})
	if err != nil {
		slog.Debug("[DEBUG-WS] failed to marshal error message", "error", err)
		return
	}
	h.writeText(conn, payload, "sendError")
}
