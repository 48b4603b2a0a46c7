package progress

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

func TestHub_BroadcastReachesSubscriber(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	go hub.Run()

	router := gin.New()
	router.GET("/progress", hub.Subscribe)
	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give Subscribe's registration goroutine a moment to add the client
	time.Sleep(20 * time.Millisecond)

	hub.BroadcastReport(models.BatchReport{FromHeight: 100, ToHeight: 200, BlocksProcessed: 101})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), `"batch_report"`)
	require.Contains(t, string(msg), `"from_height":100`)
}

func TestHub_BroadcastWithNoSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	done := make(chan struct{})
	go func() {
		hub.BroadcastReport(models.BatchReport{FromHeight: 1, ToHeight: 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast with no subscribers blocked")
	}
}
