package hostops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebSocket_UpgradeDialSendReceiveClose(t *testing.T) {
	var serverConn *Conn
	accepted := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		c, err := Upgrade(w, r)
		if err != nil {
			t.Errorf("Upgrade error: %v", err)
			return
		}
		serverConn = c
		close(accepted)
		data, binary, err := c.Receive(context.Background())
		if err != nil {
			return
		}
		_ = c.Send(context.Background(), append([]byte("echo:"), data...), binary)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := Dial(ctx, wsURL)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}

	if err := client.Send(ctx, []byte("hello"), false); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}

	data, binary, err := client.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive error: %v", err)
	}
	if binary {
		t.Error("expected a text message echo")
	}
	if string(data) != "echo:hello" {
		t.Errorf("got %q, want echo:hello", data)
	}

	if err := client.Close(1000, "done"); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := client.Close(1000, "done"); err != nil {
		t.Errorf("expected a second Close to be a no-op, got %v", err)
	}
	if err := client.Send(ctx, []byte("after close"), false); err == nil {
		t.Error("expected Send after Close to error")
	}
}
