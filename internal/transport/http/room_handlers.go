package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sessionly/liveroom-server/internal/store"
	"github.com/sessionly/liveroom-server/internal/utils"
)

// RoomHandlers provides HTTP handlers for the room directory and chat
// history endpoints.
type RoomHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store: st,
		log:   logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	Title  string `json:"title" binding:"required,min=1,max=128"`
	HostID string `json:"hostId" binding:"required"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	HostID    string `json:"hostId"`
	CreatedAt string `json:"createdAt"`
}

// EnrollRequest represents the enrollment request body.
type EnrollRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatMessageResponse represents a chat message in API responses.
type ChatMessageResponse struct {
	ID        int64  `json:"id"`
	RoomID    string `json:"roomId"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

// AttendeeResponse represents a durable attendance record in API responses.
type AttendeeResponse struct {
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	JoinedAt      string `json:"joinedAt"`
}

// CreateRoom registers a room in the directory.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room := &store.Room{
		ID:        utils.NewID(),
		Title:     req.Title,
		HostID:    req.HostID,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreateRoom(c.Request.Context(), room); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room already exists"})
			return
		}
		h.log.Error().Err(err).Str("room_id", room.ID).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room_id", room.ID).Str("host_id", room.HostID).Msg("room created")
	c.JSON(http.StatusCreated, RoomResponse{
		ID:        room.ID,
		Title:     room.Title,
		HostID:    room.HostID,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	})
}

// Enroll adds a user to a room's enrollment list.
// POST /api/rooms/:id/enrollments
func (h *RoomHandlers) Enroll(c *gin.Context) {
	roomID := c.Param("id")

	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid enroll request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.store.GetRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to load room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.Enroll(c.Request.Context(), roomID, req.UserID); err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Str("user_id", req.UserID).Msg("failed to enroll user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMessages returns the ordered chat log for a room.
// GET /api/rooms/:id/messages?sessionId=...
func (h *RoomHandlers) ListMessages(c *gin.Context) {
	roomID := c.Param("id")
	sessionID := c.Query("sessionId")

	messages, err := h.store.ListMessages(c.Request.Context(), roomID, sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChatMessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, ChatMessageResponse{
			ID:        msg.ID,
			RoomID:    msg.RoomID,
			SessionID: msg.SessionID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
			Message:   msg.Body,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, response)
}

// ListAttendees returns the durable attendee set for a session.
// GET /api/sessions/:id/attendees
func (h *RoomHandlers) ListAttendees(c *gin.Context) {
	sessionID := c.Param("id")

	attendees, err := h.store.ListAttendees(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to list attendees")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]AttendeeResponse, 0, len(attendees))
	for _, a := range attendees {
		response = append(response, AttendeeResponse{
			ParticipantID: a.ParticipantID,
			UserID:        a.UserID,
			Username:      a.Username,
			Role:          a.Role,
			JoinedAt:      a.JoinedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, response)
}
