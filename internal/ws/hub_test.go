package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h := runHub(t)
	server := httptest.NewServer(h.Handler())
	defer server.Close()

	conn := dial(t, server)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	h.BroadcastJSON(map[string]any{"type": "session_state", "state": "SAMPLING"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "session_state", got["type"])
	assert.NotEmpty(t, got["ts"], "hub stamps a timestamp when the producer omits one")
}

func TestHub_PreservesProducerTimestamp(t *testing.T) {
	h := runHub(t)
	server := httptest.NewServer(h.Handler())
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	h.BroadcastJSON(map[string]any{"type": "log", "ts": "2026-01-02T03:04:05Z"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, "2026-01-02T03:04:05Z", got["ts"])
}

func TestHub_ClientCountTracksDisconnects(t *testing.T) {
	h := runHub(t)
	server := httptest.NewServer(h.Handler())
	defer server.Close()

	first := dial(t, server)
	dial(t, server)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return h.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	h := NewHub() // loop not running; channel buffer absorbs the sends
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			h.BroadcastJSON(map[string]any{"i": i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastJSON blocked with a full queue")
	}
}
