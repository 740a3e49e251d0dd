package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/serialbridge/internal/metrics"
	wsHub "github.com/obsidianstack/serialbridge/internal/ws"
	"github.com/obsidianstack/serialbridge/pkg/types"
)

// --- helpers ----------------------------------------------------------------

// fixedStatus returns a JoinFunc admitting clients with the state held in
// connected.
func fixedStatus(connected *atomic.Bool) wsHub.JoinFunc {
	return func(admit func(types.StatusMessage)) {
		if connected.Load() {
			admit(types.NewStatus(true, "Connected to /dev/ttyUSB0 at 9600 baud"))
			return
		}
		admit(types.NewStatus(false, "Not connected"))
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// Returns the ws:// URL, the hub, and a cancel function for Run.
func startHub(t *testing.T, join wsHub.JoinFunc) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(join, metrics.New(), nil)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(hub)
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readJSON reads one text message from conn with a short deadline.
func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", msg, err)
	}
	return m
}

// waitCount polls hub.Count until it equals want.
func waitCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Count: got %d, want %d", hub.Count(), want)
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateStatus(t *testing.T) {
	var connected atomic.Bool
	wsURL, _, _ := startHub(t, fixedStatus(&connected))

	m := readJSON(t, dial(t, wsURL))
	if m["type"] != "status" {
		t.Errorf("type: got %v, want status", m["type"])
	}
	if m["connected"] != false {
		t.Errorf("connected: got %v, want false", m["connected"])
	}
}

func TestHub_LateJoinerSeesCurrentState(t *testing.T) {
	var connected atomic.Bool
	wsURL, _, _ := startHub(t, fixedStatus(&connected))

	readJSON(t, dial(t, wsURL)) // early client

	connected.Store(true)
	m := readJSON(t, dial(t, wsURL))
	if m["connected"] != true {
		t.Errorf("late joiner connected: got %v, want true", m["connected"])
	}
	if !strings.Contains(m["message"].(string), "/dev/ttyUSB0") {
		t.Errorf("message: got %v", m["message"])
	}
}

func TestHub_AllClientsReceiveBroadcast(t *testing.T) {
	var connected atomic.Bool
	wsURL, hub, _ := startHub(t, fixedStatus(&connected))

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readJSON(t, conns[i]) // consume initial status
	}
	waitCount(t, hub, 3)

	hub.Broadcast(types.NewData(`{"t":23.1}`, json.RawMessage(`{"t":23.1}`), time.Now()))

	for i, conn := range conns {
		m := readJSON(t, conn)
		if m["type"] != "data" {
			t.Errorf("client %d: type: got %v, want data", i, m["type"])
		}
		if m["raw"] != `{"t":23.1}` {
			t.Errorf("client %d: raw: got %v", i, m["raw"])
		}
		parsed, ok := m["parsed"].(map[string]interface{})
		if !ok || parsed["t"] != 23.1 {
			t.Errorf("client %d: parsed: got %v", i, m["parsed"])
		}
	}
}

func TestHub_ClosedClientIsSkipped(t *testing.T) {
	var connected atomic.Bool
	wsURL, hub, _ := startHub(t, fixedStatus(&connected))

	gone := dial(t, wsURL)
	readJSON(t, gone)
	stay := dial(t, wsURL)
	readJSON(t, stay)
	waitCount(t, hub, 2)

	gone.Close()
	waitCount(t, hub, 1)

	hub.Broadcast(types.NewStatus(true, "Connected to simulated sensor"))

	m := readJSON(t, stay)
	if m["message"] != "Connected to simulated sensor" {
		t.Errorf("message: got %v", m["message"])
	}
}

func TestHub_BroadcastOrderPreserved(t *testing.T) {
	var connected atomic.Bool
	wsURL, hub, _ := startHub(t, fixedStatus(&connected))

	conn := dial(t, wsURL)
	readJSON(t, conn)
	waitCount(t, hub, 1)

	for i := 0; i < 10; i++ {
		hub.Broadcast(types.NewData(string(rune('a'+i)), nil, time.Now()))
	}
	for i := 0; i < 10; i++ {
		m := readJSON(t, conn)
		if want := string(rune('a' + i)); m["raw"] != want {
			t.Fatalf("message %d: raw got %v, want %s", i, m["raw"], want)
		}
		if _, ok := m["parsed"]; ok {
			t.Errorf("message %d: parsed present for raw line", i)
		}
	}
}

func TestHub_ClientMessagesIgnored(t *testing.T) {
	var connected atomic.Bool
	wsURL, hub, _ := startHub(t, fixedStatus(&connected))

	conn := dial(t, wsURL)
	readJSON(t, conn)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"connect"}`)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count after client message: got %d, want 1", n)
	}
	hub.Broadcast(types.NewStatus(false, "Disconnected"))
	if m := readJSON(t, conn); m["message"] != "Disconnected" {
		t.Errorf("message: got %v", m["message"])
	}
}

func TestHub_UnencodableBroadcastDropped(t *testing.T) {
	var connected atomic.Bool
	wsURL, hub, _ := startHub(t, fixedStatus(&connected))

	conn := dial(t, wsURL)
	readJSON(t, conn)
	waitCount(t, hub, 1)

	hub.Broadcast(map[string]interface{}{"bad": make(chan int)})
	hub.Broadcast(types.NewStatus(true, "next"))

	if m := readJSON(t, conn); m["message"] != "next" {
		t.Errorf("message: got %v, want next", m["message"])
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	var connected atomic.Bool
	wsURL, hub, cancel := startHub(t, fixedStatus(&connected))

	conn := dial(t, wsURL)
	readJSON(t, conn)
	waitCount(t, hub, 1)

	cancel()
	waitCount(t, hub, 0)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("ReadMessage after shutdown: got nil error, want close")
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	var connected atomic.Bool
	hub := wsHub.New(fixedStatus(&connected), nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHub_JoinAfterShutdownRefused(t *testing.T) {
	var connected atomic.Bool
	wsURL, hub, cancel := startHub(t, fixedStatus(&connected))

	cancel()
	time.Sleep(20 * time.Millisecond)

	conn := dial(t, wsURL)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage: got %v, want going-away close", err)
	}
	if n := hub.Count(); n != 0 {
		t.Errorf("Count: got %d, want 0", n)
	}
}

func TestHub_JoinStatusNotOvertakenByTransition(t *testing.T) {
	var (
		mu     sync.Mutex // orders status transitions, like the connection manager
		hubRef atomic.Pointer[wsHub.Hub]
	)
	flipped := make(chan struct{})
	join := func(admit func(types.StatusMessage)) {
		mu.Lock()
		defer mu.Unlock()
		st := types.NewStatus(true, "Connected to /dev/ttyUSB0 at 9600 baud")

		// A disconnect lands while the client is being admitted.
		go func() {
			mu.Lock()
			hubRef.Load().Broadcast(types.NewStatus(false, "Disconnected"))
			mu.Unlock()
			close(flipped)
		}()
		time.Sleep(30 * time.Millisecond)
		admit(st)
	}
	wsURL, hub, _ := startHub(t, join)
	hubRef.Store(hub)

	conn := dial(t, wsURL)
	first := readJSON(t, conn)
	second := readJSON(t, conn)
	<-flipped

	if first["connected"] != true {
		t.Errorf("first message: got %v, want the connected join status", first)
	}
	if second["connected"] != false || second["message"] != "Disconnected" {
		t.Errorf("final state: got %v, want Disconnected", second)
	}
}

func TestHub_NilJoinStillStreams(t *testing.T) {
	wsURL, hub, _ := startHub(t, nil)

	conn := dial(t, wsURL)
	waitCount(t, hub, 1)
	hub.Broadcast(types.NewStatus(true, "hello"))

	if m := readJSON(t, conn); m["message"] != "hello" {
		t.Errorf("message: got %v, want hello", m["message"])
	}
}
