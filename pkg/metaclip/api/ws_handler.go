package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/metaclip/metaclip/pkg/metaclip"
	"github.com/metaclip/metaclip/pkg/metaclip/hub"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 4 << 10
)

// Envelope wraps all WebSocket messages with type discrimination.
// Supported types:
//   - "event": item lifecycle event pushed by the server
//   - "ping":  client liveness probe
//   - "pong":  server liveness reply
type Envelope struct {
	Type   string             `json:"type"`
	Kind   metaclip.EventKind `json:"kind,omitempty"`
	ItemID string             `json:"item_id,omitempty"`
}

// WSHandler upgrades connections and streams item lifecycle events to them.
type WSHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WebSocket handler on the given hub.
func NewWSHandler(h *hub.Hub) *WSHandler {
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Token auth happens in middleware; browser origins are not a
			// trust boundary for this deployment.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws. Each connection holds one hub subscription for its
// lifetime; disconnect, explicit close, and delivery-buffer overflow all end
// in prompt unsubscription.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	sub := h.hub.Subscribe()
	pongs := make(chan Envelope, 4)
	done := make(chan struct{})

	slog.Info("subscriber connected", "remote", conn.RemoteAddr())

	go h.writeLoop(conn, sub, pongs, done)
	h.readLoop(conn, sub, pongs, done)
}

// writeLoop is the single writer on the connection, serializing event
// delivery and heartbeat replies. It exits when the subscription channel
// closes (unsubscribe, overflow, hub shutdown) or the reader signals done.
func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *hub.Subscription, pongs <-chan Envelope, done <-chan struct{}) {
	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				// Hub-initiated closure; tell the client before dropping.
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"))
				conn.Close()
				return
			}
			if err := h.write(conn, Envelope{Type: "event", Kind: event.Kind, ItemID: event.ItemID}); err != nil {
				h.hub.Unsubscribe(sub)
				conn.Close()
				return
			}

		case env := <-pongs:
			if err := h.write(conn, env); err != nil {
				h.hub.Unsubscribe(sub)
				conn.Close()
				return
			}

		case <-done:
			return
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, env Envelope) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(env)
}

// readLoop consumes client messages: JSON ping envelopes get a pong reply
// through the write loop (protocol-level pings are answered by the gorilla
// default ping handler). Any read error means the client is gone.
func (h *WSHandler) readLoop(conn *websocket.Conn, sub *hub.Subscription, pongs chan<- Envelope, done chan<- struct{}) {
	defer func() {
		h.hub.Unsubscribe(sub)
		close(done)
		conn.Close()
		slog.Info("subscriber disconnected", "remote", conn.RemoteAddr())
	}()

	conn.SetReadLimit(maxMessageSize)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			continue
		}
		if env.Type == "ping" {
			select {
			case pongs <- Envelope{Type: "pong"}:
			default:
				// Write loop is saturated; drop the reply rather than block.
			}
		}
	}
}
