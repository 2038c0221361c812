package core

import (
	"time"

	"github.com/sessionly/liveroom-server/internal/media"
	"github.com/sessionly/liveroom-server/internal/store"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventJoined confirms a join to the joining connection, carrying media
	// credentials when an RTC engine is configured.
	EventJoined EventKind = iota
	// EventUserJoined notifies a room that a participant joined.
	EventUserJoined
	// EventUserList delivers the full roster snapshot.
	EventUserList
	// EventMeetingStatus announces the lobby/live status.
	EventMeetingStatus
	// EventMediaStateChange announces a mute/camera flip plus the roster.
	EventMediaStateChange
	// EventHandUpdate announces a hand-raise delta.
	EventHandUpdate
	// EventChatMessage relays a durably appended chat message.
	EventChatMessage
	// EventChatHistory replays the chat log to a joining connection.
	EventChatHistory
	// EventReaction relays an ephemeral reaction.
	EventReaction
	// EventScreenShareStart announces the current sharer.
	EventScreenShareStart
	// EventScreenShareStop announces that a share ended.
	EventScreenShareStop
	// EventUserLeft notifies a room that a participant left.
	EventUserLeft
	// EventRoomState answers a pull-based state snapshot request.
	EventRoomState
	// EventNotification delivers an externally published notification.
	EventNotification
	// EventError reports a domain error to a single connection.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Channel string

	// Subject of roster and share deltas.
	ParticipantID string
	UserID        string
	Username      string

	Roster []Participant
	Status MeetingStatus

	Media    MediaKind
	Enabled  bool
	IsRaised bool

	Message  *store.ChatMessage
	Messages []*store.ChatMessage

	Reaction     *Reaction
	JoinInfo     *media.JoinInfo
	Notification *Notification
	Error        *CoreError
}

// Reaction is an ephemeral emote; it is relayed and forgotten.
type Reaction struct {
	ID            string
	ParticipantID string
	Type          string
}

// Notification is a message pushed by an external collaborator (feedback,
// reports, schedule changes) to a user or a room's participants.
type Notification struct {
	ID        string
	Type      string
	Title     string
	Body      string
	CreatedAt time.Time
}
