package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced room or session does not exist.
var ErrNotFound = errors.New("not found")

// ChatMessage is a persisted chat message. The pair (RoomID, SessionID)
// identifies the log it belongs to; SessionID is empty for legacy rooms that
// are not scoped to a session.
type ChatMessage struct {
	ID        int64
	RoomID    string
	SessionID string
	UserID    string
	UserName  string
	Body      string
	CreatedAt time.Time
}

// Attendee is a durable attendance record, unique by UserID within a session.
// It is the audit trail of everyone who ever joined, independent of whether
// their socket is still connected.
type Attendee struct {
	ParticipantID  string
	UserID         string
	Username       string
	Role           string
	IsMuted        bool
	IsCameraOn     bool
	IsHandRaised   bool
	IsScreenShared bool
	JoinedAt       time.Time
}

// Room is the marketplace room directory entry the coordinator consumes.
// Ownership of the full room model (pricing, schedule, banners) lives with
// the marketplace service; only identity and membership are read here.
type Room struct {
	ID        string
	Title     string
	HostID    string
	CreatedAt time.Time
}

// ChatStore handles the append-only chat logs.
type ChatStore interface {
	// AppendMessage durably appends a message to the (roomID, sessionID) log,
	// creating the log on first write. Returns the message with its
	// store-assigned ID and timestamp.
	AppendMessage(ctx context.Context, msg *ChatMessage) (*ChatMessage, error)

	// ListMessages returns the full ordered log for (roomID, sessionID),
	// oldest first. Safe to call repeatedly.
	ListMessages(ctx context.Context, roomID, sessionID string) ([]*ChatMessage, error)
}

// AttendanceStore handles durable session attendance.
type AttendanceStore interface {
	// UpsertAttendee records that a user joined a session. Idempotent by
	// (sessionID, userID); metadata is last-write-wins.
	UpsertAttendee(ctx context.Context, sessionID string, a *Attendee) error

	// RemoveAttendee removes a user from the session's attendee set.
	RemoveAttendee(ctx context.Context, sessionID, userID string) error

	// ListAttendees returns the session's attendee set in join order.
	ListAttendees(ctx context.Context, sessionID string) ([]*Attendee, error)
}

// RoomStore exposes the room directory used for notification fan-out.
type RoomStore interface {
	// GetRoom retrieves a room by ID. Returns ErrNotFound if absent.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// ListEnrolled returns user IDs enrolled in the room (excluding the host).
	ListEnrolled(ctx context.Context, roomID string) ([]string, error)

	// CreateRoom registers a room in the directory.
	CreateRoom(ctx context.Context, room *Room) error

	// Enroll adds a user to the room's enrollment list. Idempotent.
	Enroll(ctx context.Context, roomID, userID string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	ChatStore
	AttendanceStore
	RoomStore

	// Close closes the underlying database connection.
	Close() error
}
