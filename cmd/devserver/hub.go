package main

import (
	"encoding/json"
	"sync"

	gorillaws "github.com/gorilla/websocket"

	ws "pasartani/internal/infrastructure/websocket"
	"pasartani/pkg/logger"
)

// wsClient is one connected push client and the set of topics it asked for.
type wsClient struct {
	conn *gorillaws.Conn
	send chan []byte

	mu     sync.Mutex
	topics map[string]struct{}
}

func (c *wsClient) subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.topics[topic]
	return ok
}

// hub fans frames out to every client subscribed to a topic.
type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*wsClient]struct{})}
}

func (h *hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	logger.Info("Push client connected (%d total)", h.count())
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) publish(topic string, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Error("Failed to marshal push body: %v", err)
		return
	}
	frame, err := json.Marshal(ws.Frame{Topic: topic, Body: data})
	if err != nil {
		logger.Error("Failed to marshal frame: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(topic) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			// Slow consumer; drop the frame rather than block the hub.
			logger.Warn("Dropping frame for slow client: topic=%s", topic)
		}
	}
}

func (c *wsClient) readPump(h *hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseGoingAway, gorillaws.CloseNormalClosure) {
				logger.Warn("Push client read error: %v", err)
			}
			break
		}

		var ctrl ws.ControlFrame
		if err := json.Unmarshal(raw, &ctrl); err != nil || ctrl.Topic == "" {
			logger.Warn("Ignoring malformed control frame: %s", string(raw))
			continue
		}

		c.mu.Lock()
		switch ctrl.Action {
		case ws.ActionSubscribe:
			c.topics[ctrl.Topic] = struct{}{}
		case ws.ActionUnsubscribe:
			delete(c.topics, ctrl.Topic)
		}
		c.mu.Unlock()
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(gorillaws.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(gorillaws.TextMessage, message); err != nil {
			logger.Warn("Push client write error: %v", err)
			return
		}
	}
}
