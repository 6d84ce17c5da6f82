package dashboard

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/stixly/stixly/internal/api"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// generationMessage is the outgoing WebSocket message format.
type generationMessage struct {
	Type   string                `json:"type"` // "status", "done" or "error"
	Status *api.GenerationStatus `json:"status,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// handleGenerationSocket pushes every status change of a generation task
// until it reaches a terminal status or the client goes away.
func (d *Dashboard) handleGenerationSocket(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	if d.opts.Generation == nil {
		http.Error(w, `{"error":"generation not configured"}`, http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything; reading only notices it leaving.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("dashboard: websocket read: %v", err)
				}
				return
			}
		}
	}()

	final, err := d.opts.Generation.WaitForGeneration(ctx, taskID, d.opts.PollInterval, func(st api.GenerationStatus) {
		send(conn, generationMessage{Type: "status", Status: &st})
	})
	if err != nil {
		if ctx.Err() == nil {
			send(conn, generationMessage{Type: "error", Error: err.Error()})
		}
		return
	}
	send(conn, generationMessage{Type: "done", Status: final})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func send(conn *websocket.Conn, msg generationMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("dashboard: websocket write: %v", err)
	}
}
