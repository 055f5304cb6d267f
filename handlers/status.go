package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/podboard/backend/natsserver"
	"github.com/podboard/backend/services"
)

// StatusHandler reports process liveness.
type StatusHandler struct {
	started time.Time
	nats    *natsserver.EmbeddedNATS
	hub     *services.UserHub
}

// NewStatusHandler creates a StatusHandler. nats and hub may be nil when
// user events are disabled.
func NewStatusHandler(started time.Time, nats *natsserver.EmbeddedNATS, hub *services.UserHub) *StatusHandler {
	return &StatusHandler{started: started, nats: nats, hub: hub}
}

// Health is the load balancer probe
// GET /health
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// ServerStatus reports uptime and event bus statistics
// GET /api/serverStatus
func (h *StatusHandler) ServerStatus(c *gin.Context) {
	resp := gin.H{
		"status":        "ok",
		"timestamp":     time.Now().UTC(),
		"uptimeSeconds": int64(time.Since(h.started).Seconds()),
	}

	events := gin.H{"enabled": h.hub != nil}
	if h.hub != nil {
		events["clients"] = h.hub.Stats().Clients
	}
	if h.nats != nil {
		events["nats"] = h.nats.GetStats()
	}
	resp["events"] = events

	c.JSON(http.StatusOK, resp)
}
