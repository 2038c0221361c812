package core

// CommandKind describes what the client (or an external collaborator, for
// notifications) wants the hub to do.
type CommandKind int

const (
	// CommandJoin enters a channel and subscribes to its broadcasts.
	CommandJoin CommandKind = iota
	// CommandLeave exits the current channel explicitly.
	CommandLeave
	// CommandToggleMedia flips the mute/camera state of a participant.
	CommandToggleMedia
	// CommandRaiseHand flips the advisory hand-raise flag.
	CommandRaiseHand
	// CommandChatMessage appends to the durable chat log and relays it.
	CommandChatMessage
	// CommandReaction relays an ephemeral reaction, never persisted.
	CommandReaction
	// CommandScreenShareStart requests the share slot, preempting any holder.
	CommandScreenShareStart
	// CommandScreenShareStop releases the share slot if held by the requester.
	CommandScreenShareStop
	// CommandRequestRoomState pulls a full state snapshot for one connection.
	CommandRequestRoomState
	// CommandNotifyUser delivers a notification to one user's connections.
	CommandNotifyUser
	// CommandNotifyRoom fans a notification out to a room's host and enrollees.
	CommandNotifyRoom
)

// MediaKind selects which media flag a toggle addresses.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	Channel string

	// Join identity.
	ParticipantID string
	RoomID        string

	// Media toggle.
	Media   MediaKind
	Enabled bool

	// Hand raise.
	IsRaised bool

	// Chat text or reaction type.
	Text string

	// Fallback participant reference for media/share commands whose
	// connection mapping is stale, and target for user notifications.
	TargetRef   string
	DisplayName string

	Notification *Notification
}
