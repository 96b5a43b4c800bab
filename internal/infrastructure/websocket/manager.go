package websocket

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"pasartani/pkg/errors"
	"pasartani/pkg/logger"
)

type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnected    State = "CONNECTED"
	// StateOffline is latched after MaxRetries consecutive dial failures;
	// the manager stops retrying until Connect is called again.
	StateOffline State = "OFFLINE"
)

type Options struct {
	URL            string
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Manager owns the single live transport session. Only the manager opens or
// closes it; everything else goes through the Registry.
type Manager struct {
	opts   Options
	dialer *websocket.Dialer

	mu             sync.Mutex
	writeMu        sync.Mutex
	conn           *websocket.Conn
	state          State
	connecting     bool
	closing        bool
	readyCallbacks []func()
	connectHooks   []func()
	stateHooks     []func(State)
	frameHandler   func(Frame)
}

func NewManager(opts Options) *Manager {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 6
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = 500 * time.Millisecond
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &Manager{
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		state:  StateDisconnected,
	}
}

// Connect establishes the session and invokes onReady once the handshake
// completes. Calling it while already connected is a no-op that still
// invokes onReady immediately. Calling it while offline restarts the
// reconnect loop.
func (m *Manager) Connect(onReady func()) {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		if onReady != nil {
			onReady()
		}
		return
	}
	if onReady != nil {
		m.readyCallbacks = append(m.readyCallbacks, onReady)
	}
	if m.connecting {
		m.mu.Unlock()
		return
	}
	m.connecting = true
	m.closing = false
	m.state = StateDisconnected
	m.mu.Unlock()

	go m.connectLoop()
}

// Disconnect tears the session down and stops any reconnect loop. All
// subscriptions on the old session are invalid afterwards.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closing = true
	m.connecting = false
	m.readyCallbacks = nil
	conn := m.conn
	m.conn = nil
	changed := m.state != StateDisconnected
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage, []byte{})
		conn.Close()
	}
	if changed {
		m.notifyState(StateDisconnected)
	}
}

// Send writes one JSON message on the live session. While disconnected it
// fails fast; callers treat sends as best-effort and roll back optimistic
// state themselves.
func (m *Manager) Send(v interface{}) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		return errors.Unavailable("push connection is down", nil)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		return errors.Unavailable("push connection write failed", err)
	}
	return nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// OnConnect registers a hook invoked after every successful (re)connection,
// before queued Connect callbacks. The registry uses it to resubscribe.
func (m *Manager) OnConnect(fn func()) {
	m.mu.Lock()
	m.connectHooks = append(m.connectHooks, fn)
	m.mu.Unlock()
}

func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	m.stateHooks = append(m.stateHooks, fn)
	m.mu.Unlock()
}

// SetFrameHandler installs the single inbound dispatch point. Frames are
// delivered sequentially from the read loop, in transport order.
func (m *Manager) SetFrameHandler(fn func(Frame)) {
	m.mu.Lock()
	m.frameHandler = fn
	m.mu.Unlock()
}

func (m *Manager) connectLoop() {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = m.opts.BackoffInitial
	schedule.MaxInterval = m.opts.BackoffMax
	schedule.MaxElapsedTime = 0
	schedule.Reset()

	failures := 0
	for {
		if m.isClosing() {
			return
		}

		conn, resp, err := m.dialer.Dial(m.opts.URL, nil)
		if err == nil {
			m.handleConnected(conn)
			return
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		failures++
		logger.Warn("WebSocket dial failed (%d/%d): %v", failures, m.opts.MaxRetries, err)
		if failures >= m.opts.MaxRetries {
			m.latchOffline()
			return
		}
		time.Sleep(schedule.NextBackOff())
	}
}

func (m *Manager) handleConnected(conn *websocket.Conn) {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.state = StateConnected
	m.connecting = false
	ready := m.readyCallbacks
	m.readyCallbacks = nil
	hooks := append([]func(){}, m.connectHooks...)
	m.mu.Unlock()

	logger.Info("WebSocket connected: %s", m.opts.URL)
	go m.readPump(conn)

	m.notifyState(StateConnected)
	for _, h := range hooks {
		h()
	}
	for _, r := range ready {
		r()
	}
}

func (m *Manager) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error: %v", err)
			}
			break
		}

		frame, err := ParseFrame(raw)
		if err != nil {
			logger.LogDroppedFrame("", err)
			continue
		}

		m.mu.Lock()
		handler := m.frameHandler
		m.mu.Unlock()
		if handler != nil {
			handler(frame)
		}
	}

	conn.Close()

	m.mu.Lock()
	if m.conn != conn {
		// A newer session already replaced this one.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.state = StateDisconnected
	resume := !m.closing
	m.connecting = resume
	m.mu.Unlock()

	m.notifyState(StateDisconnected)
	if resume {
		logger.Info("WebSocket dropped, reconnecting")
		m.connectLoop()
	}
}

func (m *Manager) latchOffline() {
	m.mu.Lock()
	m.connecting = false
	m.readyCallbacks = nil
	m.state = StateOffline
	m.mu.Unlock()

	logger.Error("WebSocket offline after %d consecutive failures", m.opts.MaxRetries)
	m.notifyState(StateOffline)
}

func (m *Manager) isClosing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}

func (m *Manager) notifyState(s State) {
	m.mu.Lock()
	hooks := append([]func(State){}, m.stateHooks...)
	m.mu.Unlock()

	for _, h := range hooks {
		h(s)
	}
}
