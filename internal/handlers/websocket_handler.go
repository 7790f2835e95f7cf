package handlers

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parkit/server/internal/observability"
	"github.com/parkit/server/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Single-user local service
		return true
	},
}

// WebSocketHandler pushes readouts and state changes to clients
type WebSocketHandler struct {
	hub        *services.WebSocketHub
	controller *services.ParkingController
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *services.WebSocketHub, controller *services.ParkingController) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		controller: controller,
	}
}

// HandleConnection upgrades HTTP to WebSocket, sends the current snapshot
// and subscribes the client to parking updates.
// @Summary Live parking updates
// @Description Upgrades to a WebSocket. Sends a snapshot on connect, then readouts and state changes.
// @Tags parking
// @Param api_key query string false "API key for clients that cannot set headers"
// @Success 101 "Switching protocols"
// @Failure 401 {object} models.ErrorResponse "Unauthorized - invalid API key"
// @Security ApiKeyAuth
// @Router /ws [get]
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewClient(uuid.New().String(), conn)
	h.hub.Register(client)
	h.hub.Subscribe(client, services.TopicParking)

	client.SendMessage(services.WSMessage{
		Type:    services.WSTypeSnapshot,
		Payload: parkingResponse(h.controller.Snapshot()),
	})

	go client.WritePump()

	// Blocks until the connection closes
	client.ReadPump(h.handleMessage)
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(client *services.WSClient, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var msg services.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		client.SendMessage(services.WSMessage{Type: services.WSTypeError, Payload: "invalid message"})
		return
	}

	switch msg.Type {
	case services.WSTypePing:
		client.SendMessage(services.WSMessage{Type: services.WSTypePong})

	case services.WSTypeSnapshot:
		client.SendMessage(services.WSMessage{
			Type:    services.WSTypeSnapshot,
			Payload: parkingResponse(h.controller.Snapshot()),
		})

	case services.WSTypeSubscribe:
		if topic, ok := msg.Payload.(string); ok {
			h.hub.Subscribe(client, topic)
		}

	case services.WSTypeUnsubscribe:
		if topic, ok := msg.Payload.(string); ok {
			h.hub.Unsubscribe(client, topic)
		}

	default:
		observability.Debugf("Unknown WebSocket message type: %s", msg.Type)
	}
}
