// Package progress is the orchestrator's live progress broadcaster: a
// websocket hub that pushes every BatchReport to connected dashboard
// clients as it happens, rather than making them poll. Orchestrator.Status
// is not pushed; the HTTP progress endpoint serves it.
//
// Grounded on the teacher's internal/api/websocket.go Hub, carried over
// almost unchanged — same client-set-plus-broadcast-channel shape, same
// 5s write deadline, same read-loop-purely-to-detect-disconnects pattern
// — generalized from broadcasting CoinJoin alerts to broadcasting batch
// reports.
package progress

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/rawblock/utxo-lifecycle-engine/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is same-origin or explicitly CORS-allowed at the router
	},
}

// Hub maintains the set of active websocket clients and broadcasts
// BatchReport events to all of them.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run drains the broadcast channel and fans every message out to every
// connected client. Blocks until the channel is closed; run it in its own
// goroutine for the process lifetime.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("progress: websocket write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades an HTTP request to a websocket and registers the
// connection as a broadcast recipient.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("progress: failed to upgrade websocket: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mutex.Unlock()
	log.Printf("progress: client connected, total=%d", n)

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			n := len(h.clients)
			h.mutex.Unlock()
			conn.Close()
			log.Printf("progress: client disconnected, total=%d", n)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("progress: websocket error: %v", err)
				}
				break
			}
		}
	}()
}

// Broadcast marshals v to JSON and pushes it to every connected client.
// Marshal failures are logged and dropped rather than propagated, since
// the caller (the orchestrator's batch loop) has no useful way to react
// to a broadcast failure.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("progress: marshal broadcast payload: %v", err)
		return
	}
	h.broadcast <- data
}

// ReportEvent wraps a BatchReport with an event discriminator so dashboard
// clients listening on one socket can distinguish report pushes from
// future event kinds without guessing from payload shape.
type ReportEvent struct {
	Type   string             `json:"type"`
	Report models.BatchReport `json:"report"`
}

// BroadcastReport is the convenience entry point the orchestrator's
// OnReport callback wires into.
func (h *Hub) BroadcastReport(r models.BatchReport) {
	h.Broadcast(ReportEvent{Type: "batch_report", Report: r})
}
