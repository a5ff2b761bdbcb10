package simulator

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rileyhilliard/streamwatch/internal/logger"
	"github.com/rileyhilliard/streamwatch/internal/sample"
	"github.com/rileyhilliard/streamwatch/internal/stream"
)

const (
	maxClients   = 100
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxInbound   = 64 << 10
)

// inboundEvents are the frame names a client may push samples under.
var inboundEvents = map[string]bool{
	stream.EventSample: true,
	"metric_update":    true,
	"metrics_update":   true,
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans frames out to every attached websocket client. Each client has a
// writer goroutine; broadcast never blocks on a slow client, it drops it.
type hub struct {
	upgrader websocket.Upgrader
	log      logger.Logger
	gauge    prometheus.Gauge

	mu      sync.RWMutex
	clients map[*client]struct{}

	// greeting returns the frame a new client is sent first.
	greeting func() ([]byte, bool)
	// ingest handles a sample pushed by a client.
	ingest func(sample.MetricSample)
}

func newHub(log logger.Logger, gauge prometheus.Gauge) *hub {
	return &hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     log,
		gauge:   gauge,
		clients: make(map[*client]struct{}),
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.gauge.Set(float64(n))
}

// unregister removes c and closes its send channel. Safe to call twice.
func (h *hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.gauge.Set(float64(n))
}

// broadcast queues frame for every client.
func (h *hub) broadcast(frame []byte) {
	var slow []*client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow websocket client %s", c.conn.RemoteAddr())
		h.unregister(c)
	}
}

// closeAll detaches every client; their writers send a close frame.
func (h *hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.gauge.Set(0)
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	if h.count() >= maxClients {
		http.Error(w, "Maximum clients reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	if h.greeting != nil {
		if f, ok := h.greeting(); ok {
			c.send <- f
		}
	}
	h.register(c)
	h.log.Debug("websocket client connected: %s", conn.RemoteAddr())

	go h.writePump(c)
	h.readPump(c)
}

// readPump reads until the client goes away. It is also what notices a
// dead peer: pongs push the read deadline forward.
func (h *hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		h.log.Debug("websocket client disconnected: %s", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(maxInbound)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error: %v", err)
			}
			return
		}
		h.handleInbound(msg)
	}
}

func (h *hub) handleInbound(msg []byte) {
	var f stream.Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		h.log.Debug("ignoring malformed client frame: %v", err)
		return
	}
	if !inboundEvents[f.Event] {
		h.log.Debug("ignoring client event %q", f.Event)
		return
	}
	s, err := sample.Decode(f.Data)
	if err != nil {
		h.log.Debug("ignoring client sample: %v", err)
		return
	}
	if h.ingest != nil {
		h.ingest(s)
	}
}

func (h *hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}
