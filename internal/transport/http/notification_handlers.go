package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sessionly/liveroom-server/internal/core"
	"github.com/sessionly/liveroom-server/internal/utils"
)

// NotificationHandlers accepts notification publishes from other platform
// services and hands them to the hub for fan-out.
type NotificationHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewNotificationHandlers creates a new notification handlers instance.
func NewNotificationHandlers(hub *core.Hub, logger *zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{
		hub: hub,
		log: logger,
	}
}

// PublishNotificationRequest represents the publish request body. Exactly one
// of UserID or RoomID selects the audience.
type PublishNotificationRequest struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
	Type   string `json:"type" binding:"required"`
	Title  string `json:"title"`
	Body   string `json:"body" binding:"required"`
}

// PublishNotificationResponse acknowledges an accepted publish.
type PublishNotificationResponse struct {
	ID string `json:"id"`
}

// Publish fans a notification out to currently connected recipients.
// POST /api/notifications
func (h *NotificationHandlers) Publish(c *gin.Context) {
	var req PublishNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid notification request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if (req.UserID == "") == (req.RoomID == "") {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "exactly one of userId or roomId is required"})
		return
	}

	n := &core.Notification{
		ID:        utils.NewID(),
		Type:      req.Type,
		Title:     req.Title,
		Body:      req.Body,
		CreatedAt: time.Now(),
	}

	if req.UserID != "" {
		h.hub.NotifyUser(req.UserID, n)
	} else {
		h.hub.NotifyRoom(req.RoomID, n)
	}

	h.log.Info().Str("notification_id", n.ID).Str("type", n.Type).Msg("notification accepted")
	c.JSON(http.StatusAccepted, PublishNotificationResponse{ID: n.ID})
}
