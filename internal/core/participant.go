package core

// Role distinguishes the session host from the audience.
type Role string

const (
	RoleHost     Role = "host"
	RoleAudience Role = "audience"
)

// Participant is the live view of one connection inside a room.
// ParticipantID is ephemeral (per connection session), UserID is the durable
// identity, ConnID is the transport-level id tied 1:1 to a socket.
type Participant struct {
	ParticipantID string
	UserID        string
	ConnID        string
	Username      string
	Role          Role

	IsMuted         bool
	IsCameraOn      bool
	IsHandRaised    bool
	IsScreenSharing bool
}

// NewParticipant builds a participant with default media flags: joins muted,
// camera off, hand down, not sharing.
func NewParticipant(participantID, userID, connID, username string, role Role) *Participant {
	if role != RoleHost {
		role = RoleAudience
	}
	if username == "" {
		username = "User" + userID
	}
	return &Participant{
		ParticipantID: participantID,
		UserID:        userID,
		ConnID:        connID,
		Username:      username,
		Role:          role,
		IsMuted:       true,
	}
}
