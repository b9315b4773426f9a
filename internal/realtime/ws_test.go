package realtime

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"taskoo/api/internal/presence"
)

func newTestWSServer(t *testing.T, data *fakeProjectData) (*httptest.Server, *presence.Registry, *Hub) {
	registry := presence.NewRegistry()
	hub := NewHub()
	gateway := NewGateway(registry, data, hub, time.Second)
	srv := httptest.NewServer(NewHandler(hub, gateway))
	t.Cleanup(srv.Close)
	return srv, registry, hub
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(Envelope{Event: event, Data: data}); err != nil {
		t.Fatalf("write %s failed: %v", event, err)
	}
}

func readTasksEvent(t *testing.T, conn *websocket.Conn) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if env.Event != EventTasks {
		t.Fatalf("expected tasks event, got %q", env.Event)
	}
	return env.Data
}

func waitForConnections(t *testing.T, registry *presence.Registry, accountID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if registry.ConnectionCount(accountID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("account %s never reached %d connections", accountID, want)
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients, have %d", want, hub.ClientCount())
}

func TestWebsocketJoinDeliversSnapshot(t *testing.T) {
	snapshot := json.RawMessage(`[{"id":"t1","name":"ship it"}]`)
	data := &fakeProjectData{tasks: map[string]json.RawMessage{"P1": snapshot}}
	srv, registry, _ := newTestWSServer(t, data)

	conn := dialWS(t, srv)
	sendEvent(t, conn, EventJoin, JoinPayload{AccountID: "A1", ProjectID: "P1"})

	got := readTasksEvent(t, conn)
	if string(got) != string(snapshot) {
		t.Errorf("snapshot mismatch: %s", got)
	}
	waitForConnections(t, registry, "A1", 1)
}

func TestWebsocketUpdateFansOut(t *testing.T) {
	snapshot := json.RawMessage(`[{"id":"t1"}]`)
	data := &fakeProjectData{
		tasks:   map[string]json.RawMessage{"P1": snapshot},
		members: map[string][]string{"P1": {"A1", "A2"}},
	}
	srv, registry, hub := newTestWSServer(t, data)

	// A1 with two connections, A2 with one, A3 not a member.
	c1 := dialWS(t, srv)
	c2 := dialWS(t, srv)
	c3 := dialWS(t, srv)
	c4 := dialWS(t, srv)
	sendEvent(t, c1, EventJoin, JoinPayload{AccountID: "A1", ProjectID: "P1"})
	sendEvent(t, c2, EventJoin, JoinPayload{AccountID: "A1", ProjectID: "P1"})
	sendEvent(t, c3, EventJoin, JoinPayload{AccountID: "A2", ProjectID: "P1"})
	sendEvent(t, c4, EventJoin, JoinPayload{AccountID: "A3", ProjectID: "P1"})
	for _, c := range []*websocket.Conn{c1, c2, c3, c4} {
		readTasksEvent(t, c) // join snapshot
	}
	waitForClients(t, hub, 4)
	waitForConnections(t, registry, "A1", 2)
	waitForConnections(t, registry, "A2", 1)

	sendEvent(t, c3, EventUpdate, UpdatePayload{ProjectID: "P1"})

	for _, c := range []*websocket.Conn{c1, c2, c3} {
		got := readTasksEvent(t, c)
		if string(got) != string(snapshot) {
			t.Errorf("fan-out snapshot mismatch: %s", got)
		}
	}

	// The non-member connection gets nothing.
	c4.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var env Envelope
	if err := c4.ReadJSON(&env); err == nil {
		t.Errorf("non-member received event %q", env.Event)
	}
}

func TestWebsocketDisconnectUnregisters(t *testing.T) {
	data := &fakeProjectData{tasks: map[string]json.RawMessage{"P1": json.RawMessage(`[]`)}}
	srv, registry, hub := newTestWSServer(t, data)

	conn := dialWS(t, srv)
	sendEvent(t, conn, EventJoin, JoinPayload{AccountID: "A1", ProjectID: "P1"})
	readTasksEvent(t, conn)
	waitForConnections(t, registry, "A1", 1)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForConnections(t, registry, "A1", 0)
	waitForClients(t, hub, 0)
}

func TestSendRacingRemoveDoesNotPanic(t *testing.T) {
	// A fan-out racing a disconnect must never send on the closed
	// channel; Send holds the hub lock across the channel send.
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	h := NewHub()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					h.Send("c1", EventTasks, nil)
				}
			}
		}()
	}

	for i := 0; i < 5000; i++ {
		h.add(&client{id: "c1", send: make(chan Envelope, sendBufferSize)})
		h.remove("c1")
	}
	close(done)
	wg.Wait()
}

func TestWebsocketMalformedFrameIsSkipped(t *testing.T) {
	data := &fakeProjectData{tasks: map[string]json.RawMessage{"P1": json.RawMessage(`[]`)}}
	srv, _, _ := newTestWSServer(t, data)

	conn := dialWS(t, srv)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}

	// The session survives; a join afterwards still works.
	sendEvent(t, conn, EventJoin, JoinPayload{AccountID: "A1", ProjectID: "P1"})
	readTasksEvent(t, conn)
}
