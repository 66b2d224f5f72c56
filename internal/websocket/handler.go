package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
)

func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}

// BroadcastJobUpdate pushes the job's current state to every connected
// client.
func BroadcastJobUpdate(hub *Hub, job *jobs.Job) {
	message, err := json.Marshal(map[string]interface{}{
		"type": "job_update",
		"data": job,
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to marshal job update")
		return
	}

	hub.Broadcast(message)
}
