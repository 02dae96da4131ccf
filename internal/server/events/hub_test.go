package events

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/runs"
)

func startHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()
	logger := zerolog.Nop()
	hub := NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	t.Cleanup(cancel)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http"), cancel
}

func dial(t *testing.T, hub *Hub, url string, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == want }, time.Second, 5*time.Millisecond)
	return conn
}

func TestHubBroadcastsRunEvents(t *testing.T) {
	hub, url, _ := startHub(t)
	first := dial(t, hub, url, 1)
	second := dial(t, hub, url, 2)

	run := runs.ImportRun{ID: "run-1", VendorID: "acme", Status: runs.StatusRunning}
	hub.OnRunStarted(run)
	run.Status = runs.StatusCompleted
	run.Totals = runs.Totals{Found: 1, New: 1}
	hub.OnRunFinished(run)

	for _, conn := range []*websocket.Conn{first, second} {
		var started, finished Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&started))
		require.NoError(t, conn.ReadJSON(&finished))

		assert.Equal(t, RunStarted, started.Type)
		assert.Equal(t, runs.StatusRunning, started.Run.Status)
		assert.Equal(t, RunFinished, finished.Type)
		assert.Equal(t, "acme", finished.Run.VendorID)
		assert.Equal(t, 1, finished.Run.New)
	}
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub, url, _ := startHub(t)
	conn := dial(t, hub, url, 1)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubShutdownDisconnectsClients(t *testing.T) {
	hub, url, cancel := startHub(t)
	conn := dial(t, hub, url, 1)

	cancel()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPublishNeverBlocks(t *testing.T) {
	logger := zerolog.Nop()
	hub := NewHub(&logger)

	done := make(chan struct{})
	go func() {
		for range 1000 {
			hub.OnRunStarted(runs.ImportRun{ID: "r"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}
