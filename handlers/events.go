package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/services"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced by the router
	},
}

// EventsHandler streams user change events to admin websocket clients.
type EventsHandler struct {
	hub *services.UserHub
	log *zap.Logger
}

// NewEventsHandler creates an EventsHandler. A nil hub disables the stream.
func NewEventsHandler(hub *services.UserHub, log *zap.Logger) *EventsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventsHandler{hub: hub, log: log}
}

// UserEvents upgrades the connection and attaches it to the hub
// GET /api/auth/users/events
func (h *EventsHandler) UserEvents(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "User events disabled"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	username := "unknown"
	if p, ok := auth.PrincipalFrom(c.Request.Context()); ok {
		username = p.Username
	}
	h.hub.Attach(conn, username, c.ClientIP())
}
