package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, strings.Replace(url, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	first := dialHub(t, server.URL)
	second := dialHub(t, server.URL)
	waitForClients(t, hub, 2)

	hub.Publish("phase:change", map[string]any{"phase": 1})

	for _, conn := range []*websocket.Conn{first, second} {
		ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
		kind, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if kind != websocket.MessageText {
			t.Errorf("message type = %v, want text", kind)
		}

		var msg struct {
			Event string `json:"event"`
			Data  struct {
				Phase int `json:"phase"`
			} `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid envelope: %v\n%s", err, data)
		}
		if msg.Event != "phase:change" {
			t.Errorf("event = %q", msg.Event)
		}
		if msg.Data.Phase != 1 {
			t.Errorf("data.phase = %d", msg.Data.Phase)
		}
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server.URL)
	waitForClients(t, hub, 1)

	conn.Close(websocket.StatusNormalClosure, "bye")
	waitForClients(t, hub, 0)

	// Publishing to an empty hub is a no-op, not a panic.
	hub.Publish("simulation:start", map[string]string{"topic": "t"})
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish("agent:progress", map[string]string{"agent": "tech"})
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d", hub.ClientCount())
	}
}

func TestHubUnmarshalableEventDropped(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server.URL)
	waitForClients(t, hub, 1)

	// Channels cannot be marshaled; the event is dropped, the client stays.
	hub.Publish("bad", make(chan int))
	hub.Publish("good", map[string]string{"ok": "yes"})

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), `"good"`) {
		t.Errorf("first delivered event = %s, want the marshalable one", data)
	}
}
