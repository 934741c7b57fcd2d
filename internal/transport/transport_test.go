package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"skiff/internal/protocol"
)

func mustMessage(t *testing.T) protocol.Message {
	t.Helper()
	return protocol.Message{Type: protocol.MsgListSessions}
}

// echoServer upgrades one connection and echoes every frame back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, frame); err != nil {
				return
			}
		}
	}))
}

func TestClientDeliversFramesInOrder(t *testing.T) {
	t.Parallel()

	server := echoServer(t)
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	frames := make(chan string, 16)
	connected := make(chan struct{}, 1)
	client, err := New(Config{
		URL:     url,
		Handler: func(frame []byte) { frames <- string(frame) },
		OnConnect: func() {
			select {
			case connected <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatalf("client never connected")
	}

	for _, id := range []string{"one", "two", "three"} {
		if ok := client.Send(protocol.Message{Type: protocol.MsgLoadSession, LoadRequestID: id}); !ok {
			t.Fatalf("send %q failed", id)
		}
	}

	for _, id := range []string{"one", "two", "three"} {
		select {
		case frame := <-frames:
			if !strings.Contains(frame, id) {
				t.Fatalf("frame out of order: got %q, want id %q", frame, id)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("frame %q never delivered", id)
		}
	}

	if !client.Connected() {
		t.Fatalf("client should report connected")
	}
	cancel()
}

func TestSendReturnsFalseAfterDisconnect(t *testing.T) {
	t.Parallel()

	server := echoServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	connected := make(chan struct{}, 1)
	client, err := New(Config{
		URL:     url,
		Handler: func([]byte) {},
		OnConnect: func() {
			select {
			case connected <- struct{}{}:
			default:
			}
		},
		Backoff: BackoffPolicy{BaseDelay: 50 * time.Millisecond, MaxDelay: 100 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatalf("client never connected")
	}

	server.CloseClientConnections()
	server.Close()

	deadline := time.After(5 * time.Second)
	for client.Connected() {
		select {
		case <-deadline:
			t.Fatalf("client still reports connected after server close")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if ok := client.Send(mustMessage(t)); ok {
		t.Fatalf("send after disconnect must return false")
	}
}
