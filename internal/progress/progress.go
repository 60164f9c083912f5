// Package progress defines the calculation-progress reporting
// collaborator: a stderr implementation for the CLI's --progress
// flag and a WebSocket implementation for driving calculation from a
// long-lived process.
package progress

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Reporter receives a pulse every time a calculation phase advances.
type Reporter interface {
	Pulse(phase string, done, total int)
}

// NoopReporter discards every pulse; the default when --progress is
// not set.
type NoopReporter struct{}

func (NoopReporter) Pulse(string, int, int) {}

// StderrReporter writes one line per pulse to w (ordinarily os.Stderr).
type StderrReporter struct {
	W io.Writer
}

func (r StderrReporter) Pulse(phase string, done, total int) {
	fmt.Fprintf(r.W, "[%s] %d/%d\n", phase, done, total)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// pulseMessage is the wire shape broadcast to every connected client.
type pulseMessage struct {
	Phase string `json:"phase"`
	Done  int    `json:"done"`
	Total int    `json:"total"`
}

// WebSocketReporter fans calculation pulses out to any connected
// dashboard client, useful when driving calculation from a long-lived
// process rather than a one-shot CLI invocation.
type WebSocketReporter struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewWebSocketReporter constructs an empty WebSocketReporter.
func NewWebSocketReporter() *WebSocketReporter {
	return &WebSocketReporter{clients: make(map[*websocket.Conn]bool)}
}

// HandleUpgrade upgrades an incoming HTTP request to a WebSocket
// connection and registers it to receive future pulses.
func (r *WebSocketReporter) HandleUpgrade(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Println("progress: upgrade error:", err)
		return
	}
	r.mu.Lock()
	r.clients[conn] = true
	r.mu.Unlock()
}

// Pulse implements Reporter, broadcasting to every connected client
// and dropping any connection that errors on write.
func (r *WebSocketReporter) Pulse(phase string, done, total int) {
	msg := pulseMessage{Phase: phase, Done: done, Total: total}
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn := range r.clients {
		if err := conn.WriteJSON(msg); err != nil {
			_ = conn.Close()
			delete(r.clients, conn)
		}
	}
}
