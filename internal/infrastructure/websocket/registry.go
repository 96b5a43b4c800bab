package websocket

import (
	"sync"

	"github.com/google/uuid"

	"pasartani/pkg/logger"
)

// Handler receives every frame published on a subscribed topic.
type Handler func(Frame)

// Subscription is the handle returned by Subscribe, usable only for
// Unsubscribe. The underlying transport handle never leaves this package.
type Subscription struct {
	id    string
	Topic string
}

type subEntry struct {
	id      string
	handler Handler
}

// Registry maps logical topics to handlers on the active session and
// re-establishes every subscription after each reconnect, so subscriber
// code never learns that a reconnection happened.
type Registry struct {
	manager *Manager

	mu      sync.Mutex
	entries map[string][]subEntry
}

func NewRegistry(manager *Manager) *Registry {
	r := &Registry{
		manager: manager,
		entries: make(map[string][]subEntry),
	}
	manager.SetFrameHandler(r.dispatch)
	manager.OnConnect(r.resubscribeAll)
	return r
}

// Subscribe registers interest in a topic. Subscribing the same topic twice
// yields two independent handlers, both invoked per event; deduplication is
// the stores' job.
func (r *Registry) Subscribe(topic string, handler Handler) *Subscription {
	sub := &Subscription{id: uuid.NewString(), Topic: topic}

	r.mu.Lock()
	first := len(r.entries[topic]) == 0
	r.entries[topic] = append(r.entries[topic], subEntry{id: sub.id, handler: handler})
	r.mu.Unlock()

	if first && r.manager.Connected() {
		if err := r.manager.Send(ControlFrame{Action: ActionSubscribe, Topic: topic}); err != nil {
			// The reconnect hook replays it once the session is back.
			logger.Warn("Subscribe frame not sent for %s: %v", topic, err)
		}
	}
	return sub
}

// Unsubscribe stops handler invocation for this handle immediately.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	entries := r.entries[sub.Topic]
	for i, e := range entries {
		if e.id == sub.id {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(r.entries, sub.Topic)
	} else {
		r.entries[sub.Topic] = entries
	}
	last := len(entries) == 0
	r.mu.Unlock()

	if last && r.manager.Connected() {
		if err := r.manager.Send(ControlFrame{Action: ActionUnsubscribe, Topic: sub.Topic}); err != nil {
			logger.Debug("Unsubscribe frame not sent for %s: %v", sub.Topic, err)
		}
	}
}

// Topics returns the currently registered topic names.
func (r *Registry) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]string, 0, len(r.entries))
	for t := range r.entries {
		topics = append(topics, t)
	}
	return topics
}

func (r *Registry) resubscribeAll() {
	for _, topic := range r.Topics() {
		if err := r.manager.Send(ControlFrame{Action: ActionSubscribe, Topic: topic}); err != nil {
			logger.Warn("Resubscribe failed for %s: %v", topic, err)
		}
	}
}

func (r *Registry) dispatch(f Frame) {
	r.mu.Lock()
	handlers := make([]Handler, 0, len(r.entries[f.Topic]))
	for _, e := range r.entries[f.Topic] {
		handlers = append(handlers, e.handler)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		h(f)
	}
}
