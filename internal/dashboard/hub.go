package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"govdash/internal/governance"
	"govdash/internal/monitor"
)

const (
	eventView  = "view"
	eventRatio = "ratio"

	pongWait   = 30 * time.Second
	pingPeriod = 15 * time.Second
	writeWait  = 5 * time.Second
)

type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	session string
	conn    *websocket.Conn
	send    chan event
}

// hub pushes session views and monitor readings to connected browsers.
type hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub(allowed origins, log zerolog.Logger) *hub {
	return &hub{
		log:      log,
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: allowed.allow},
	}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request, session string, initial governance.View) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{session: session, conn: conn, send: make(chan event, 8)}
	c.send <- event{Type: eventView, Data: initial}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("session", session).Msg("websocket connected")

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop only drains control frames; it returns once the peer goes away.
func (h *hub) readLoop(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(1 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				h.log.Debug().Err(err).Str("session", c.session).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *hub) publishView(session string, v governance.View) {
	h.broadcast(event{Type: eventView, Data: v}, func(c *client) bool { return c.session == session })
}

func (h *hub) publishReading(r monitor.Reading) {
	h.broadcast(event{Type: eventRatio, Data: r}, nil)
}

func (h *hub) broadcast(ev event, match func(*client) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if match != nil && !match(c) {
			continue
		}
		select {
		case c.send <- ev:
		default:
			h.log.Debug().Str("session", c.session).Msg("websocket client lagging; dropped event")
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
