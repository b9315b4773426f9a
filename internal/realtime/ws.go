package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"taskoo/api/internal/util"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	// Outbound frames queued per connection; a full buffer drops the
	// frame for that connection rather than blocking the dispatcher.
	sendBufferSize = 16
)

// Hub owns the live websocket clients of this process and implements
// Sender over them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Envelope
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		close(c.send)
	}
}

// Send queues one event for the given connection. Unknown connection
// ids are ignored; the registry may briefly reference a connection that
// already left. The read lock is held across the channel send so remove
// cannot close the channel mid-send.
func (h *Hub) Send(connID, event string, data json.RawMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c := h.clients[connID]
	if c == nil {
		return
	}

	select {
	case c.send <- Envelope{Event: event, Data: data}:
	default:
		log.Printf("realtime: dropping %s frame for slow connection %s", event, connID)
	}
}

// ClientCount returns the number of live websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades HTTP requests to websocket sessions and pumps their
// events through the gateway.
type Handler struct {
	hub      *Hub
	gateway  *Gateway
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, gateway *Gateway) *Handler {
	return &Handler{
		hub:     hub,
		gateway: gateway,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   util.NewID("conn"),
		conn: ws,
		send: make(chan Envelope, sendBufferSize),
	}
	h.hub.add(c)
	go c.writePump()

	state := h.gateway.NewConn(c.id)
	h.readPump(r, c, state)
}

// readPump processes inbound events until the socket closes. Errors in
// individual events are logged and skipped so one failed update never
// terminates the session or the dispatcher.
func (h *Handler) readPump(r *http.Request, c *client, state *Conn) {
	defer func() {
		h.gateway.Disconnect(state)
		h.hub.remove(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: read error on %s: %v", c.id, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Printf("realtime: malformed frame on %s: %v", c.id, err)
			continue
		}

		switch env.Event {
		case EventJoin:
			var p JoinPayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				log.Printf("realtime: malformed join on %s: %v", c.id, err)
				continue
			}
			if err := h.gateway.Join(r.Context(), state, p.AccountID, p.ProjectID); err != nil {
				log.Printf("realtime: join failed on %s: %v", c.id, err)
			}
		case EventUpdate:
			var p UpdatePayload
			if err := json.Unmarshal(env.Data, &p); err != nil {
				log.Printf("realtime: malformed update on %s: %v", c.id, err)
				continue
			}
			if err := h.gateway.Update(r.Context(), state, p.ProjectID); err != nil {
				log.Printf("realtime: update failed on %s: %v", c.id, err)
			}
		default:
			log.Printf("realtime: unknown event %q on %s", env.Event, c.id)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
