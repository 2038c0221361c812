package core

// MeetingStatus is the two-state lifecycle of a room: everyone waits in the
// lobby until a host joins, after which the room is live for good.
type MeetingStatus string

const (
	StatusLobby MeetingStatus = "lobby"
	StatusLive  MeetingStatus = "live"
)

// Advance returns the status after a participant with the given role joins.
// The transition is monotonic: once live, a room never returns to the lobby.
func (s MeetingStatus) Advance(role Role) MeetingStatus {
	if s == StatusLive || role == RoleHost {
		return StatusLive
	}
	return StatusLobby
}
