package bus

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/R3E-Network/widget_layer/pkg/logger"
)

// Bridge relays broadcast frames between the shared channel and attached
// page contexts over WebSocket. A page that cannot reach Redis directly
// connects here and sees the same frames as every other context.
type Bridge struct {
	mu        sync.Mutex
	broadcast *Broadcast
	log       logger.Logger
	upgrader  websocket.Upgrader
	conns     map[string]*websocket.Conn
}

// NewBridge creates a Bridge on top of a started Broadcast.
func NewBridge(b *Broadcast, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	br := &Bridge{
		broadcast: b,
		log:       log,
		upgrader:  websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		conns:     make(map[string]*websocket.Conn),
	}
	b.Tap(br.fanOut)
	return br
}

// ServeHTTP upgrades the request and pumps frames both ways until the peer
// disconnects.
func (br *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := br.upgrader.Upgrade(w, r, nil)
	if err != nil {
		br.log.Warn("bridge: upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	br.mu.Lock()
	br.conns[id] = conn
	br.mu.Unlock()

	defer func() {
		br.mu.Lock()
		delete(br.conns, id)
		br.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			br.log.Warn("bridge: dropping malformed frame", "error", err)
			continue
		}
		if err := br.broadcast.Publish(r.Context(), frame.Topic, frame.Data); err != nil {
			br.log.Error("bridge: publish failed", "topic", frame.Topic, "error", err)
		}
	}
}

// fanOut writes an inbound broadcast frame to every attached context.
func (br *Bridge) fanOut(frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}

	br.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(br.conns))
	for _, c := range br.conns {
		conns = append(conns, c)
	}
	br.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			br.log.Warn("bridge: write failed", "error", err)
		}
	}
}
