package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPushServer accepts websocket sessions, records control frames and can
// push frames or drop sessions to exercise the reconnect path.
type testPushServer struct {
	srv      *httptest.Server
	upgrader gorillaws.Upgrader

	mu       sync.Mutex
	conns    []*gorillaws.Conn
	controls chan ControlFrame
}

func newTestPushServer(t *testing.T) *testPushServer {
	t.Helper()

	s := &testPushServer{controls: make(chan ControlFrame, 16)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		go func() {
			for {
				_, raw, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var ctrl ControlFrame
				if json.Unmarshal(raw, &ctrl) == nil && ctrl.Topic != "" {
					s.controls <- ctrl
				}
			}
		}()
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *testPushServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *testPushServer) push(t *testing.T, frame Frame) {
	t.Helper()

	data, err := json.Marshal(frame)
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns)
	require.NoError(t, s.conns[len(s.conns)-1].WriteMessage(gorillaws.TextMessage, data))
}

func (s *testPushServer) dropSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func (s *testPushServer) nextControl(t *testing.T) ControlFrame {
	t.Helper()
	select {
	case ctrl := <-s.controls:
		return ctrl
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for control frame")
		return ControlFrame{}
	}
}

func testOptions(url string) Options {
	return Options{
		URL:            url,
		MaxRetries:     3,
		BackoffInitial: 10 * time.Millisecond,
		BackoffMax:     50 * time.Millisecond,
	}
}

func TestConnectInvokesReadyAndIsIdempotent(t *testing.T) {
	server := newTestPushServer(t)
	manager := NewManager(testOptions(server.wsURL()))
	defer manager.Disconnect()

	ready := make(chan struct{}, 2)
	manager.Connect(func() { ready <- struct{}{} })

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("connect never became ready")
	}
	assert.Equal(t, StateConnected, manager.State())

	// A second connect is a no-op that still reports readiness.
	manager.Connect(func() { ready <- struct{}{} })
	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("second connect did not invoke onReady")
	}
}

func TestSendFailsFastWhileDisconnected(t *testing.T) {
	manager := NewManager(testOptions("ws://127.0.0.1:1/ws"))

	err := manager.Send(ControlFrame{Action: ActionSubscribe, Topic: "chat-u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNAVAILABLE")
}

func TestOfflineLatchAfterConsecutiveFailures(t *testing.T) {
	manager := NewManager(testOptions("ws://127.0.0.1:1/ws"))

	states := make(chan State, 8)
	manager.OnStateChange(func(s State) { states <- s })
	manager.Connect(nil)

	require.Eventually(t, func() bool {
		return manager.State() == StateOffline
	}, 3*time.Second, 10*time.Millisecond)

	select {
	case s := <-states:
		assert.Equal(t, StateOffline, s)
	case <-time.After(time.Second):
		t.Fatal("offline state was not surfaced")
	}
}

func TestFramesReachHandlerInOrder(t *testing.T) {
	server := newTestPushServer(t)
	manager := NewManager(testOptions(server.wsURL()))
	defer manager.Disconnect()

	frames := make(chan Frame, 4)
	manager.SetFrameHandler(func(f Frame) { frames <- f })

	ready := make(chan struct{})
	manager.Connect(func() { close(ready) })
	<-ready

	server.push(t, Frame{Topic: "chat-u1", Body: json.RawMessage(`{"n":1}`)})
	server.push(t, Frame{Topic: "chat-u1", Body: json.RawMessage(`{"n":2}`)})

	first := <-frames
	second := <-frames
	assert.JSONEq(t, `{"n":1}`, string(first.Body))
	assert.JSONEq(t, `{"n":2}`, string(second.Body))
}

func TestRegistryResubscribesAfterReconnect(t *testing.T) {
	server := newTestPushServer(t)
	manager := NewManager(testOptions(server.wsURL()))
	defer manager.Disconnect()
	registry := NewRegistry(manager)

	received := make(chan Frame, 4)
	registry.Subscribe("seller-notifications-u1", func(f Frame) { received <- f })

	ready := make(chan struct{})
	manager.Connect(func() { close(ready) })
	<-ready

	ctrl := server.nextControl(t)
	assert.Equal(t, ActionSubscribe, ctrl.Action)
	assert.Equal(t, "seller-notifications-u1", ctrl.Topic)

	// Drop the session; the registry must resubscribe on the new one
	// without any re-registration by application code.
	server.dropSessions()
	ctrl = server.nextControl(t)
	assert.Equal(t, ActionSubscribe, ctrl.Action)
	assert.Equal(t, "seller-notifications-u1", ctrl.Topic)

	server.push(t, Frame{Topic: "seller-notifications-u1", Body: json.RawMessage(`{"id":5}`)})
	select {
	case f := <-received:
		assert.Equal(t, "seller-notifications-u1", f.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered after reconnect")
	}
}

func TestRegistryDispatchesToAllHandlersAndUnsubscribes(t *testing.T) {
	server := newTestPushServer(t)
	manager := NewManager(testOptions(server.wsURL()))
	defer manager.Disconnect()
	registry := NewRegistry(manager)

	ready := make(chan struct{})
	manager.Connect(func() { close(ready) })
	<-ready

	first := make(chan Frame, 2)
	second := make(chan Frame, 2)
	subA := registry.Subscribe("chat-u1", func(f Frame) { first <- f })
	registry.Subscribe("chat-u1", func(f Frame) { second <- f })
	server.nextControl(t)

	server.push(t, Frame{Topic: "chat-u1", Body: json.RawMessage(`{"id":1}`)})
	<-first
	<-second

	registry.Unsubscribe(subA)
	server.push(t, Frame{Topic: "chat-u1", Body: json.RawMessage(`{"id":2}`)})
	<-second
	select {
	case <-first:
		t.Fatal("unsubscribed handler still invoked")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedFrameDoesNotBreakTheStream(t *testing.T) {
	server := newTestPushServer(t)
	manager := NewManager(testOptions(server.wsURL()))
	defer manager.Disconnect()

	frames := make(chan Frame, 2)
	manager.SetFrameHandler(func(f Frame) { frames <- f })

	ready := make(chan struct{})
	manager.Connect(func() { close(ready) })
	<-ready

	server.mu.Lock()
	conn := server.conns[len(server.conns)-1]
	server.mu.Unlock()
	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(`{broken`)))

	server.push(t, Frame{Topic: "chat-u1", Body: json.RawMessage(`{"id":1}`)})
	select {
	case f := <-frames:
		assert.Equal(t, "chat-u1", f.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not survive a malformed frame")
	}
}
