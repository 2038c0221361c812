package core

// Room is the live state of one channel: the ordered roster, the meeting
// status, the screen-share holder, and the set of subscribed connections.
// Rooms are owned by the Registry and mutated only on the hub goroutine.
type Room struct {
	Channel string

	// RoomID links the channel to the marketplace room it belongs to, when
	// the client announces one. Empty for legacy rooms where the channel id
	// is the room id.
	RoomID string

	participants []*Participant
	subscribers  map[*Client]struct{}

	Status      MeetingStatus
	ActiveShare string // participant id of the current sharer, "" if none
}

// NewRoom constructs a room in lobby state with no participants.
func NewRoom(channel string) *Room {
	return &Room{
		Channel:     channel,
		subscribers: make(map[*Client]struct{}),
		Status:      StatusLobby,
	}
}

// Upsert inserts p into the roster. A participant with the same participant
// id is replaced in place, keeping its join-order slot; otherwise p is
// appended. Returns true if an existing entry was replaced.
func (r *Room) Upsert(p *Participant) bool {
	for i, existing := range r.participants {
		if existing.ParticipantID == p.ParticipantID {
			r.participants[i] = p
			return true
		}
	}
	r.participants = append(r.participants, p)
	return false
}

// RemoveByConn removes the participant owning the connection, preserving the
// order of the rest. Returns the removed participant or nil.
func (r *Room) RemoveByConn(connID string) *Participant {
	for i, p := range r.participants {
		if p.ConnID == connID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return p
		}
	}
	return nil
}

// FindByConn returns the participant owning the connection, or nil.
func (r *Room) FindByConn(connID string) *Participant {
	for _, p := range r.participants {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// FindByRef returns the participant whose participant id or user id matches
// ref. Fallback lookup for events whose connection mapping is stale.
func (r *Room) FindByRef(ref string) *Participant {
	for _, p := range r.participants {
		if p.ParticipantID == ref || p.UserID == ref {
			return p
		}
	}
	return nil
}

// Roster returns a snapshot copy of the participant list in join order.
func (r *Room) Roster() []Participant {
	roster := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		roster = append(roster, *p)
	}
	return roster
}

// GrantShare makes p the active sharer, force-stopping the previous holder.
// Returns the preempted participant, or nil if the slot was free or already
// held by p.
func (r *Room) GrantShare(p *Participant) *Participant {
	var preempted *Participant
	if r.ActiveShare != "" && r.ActiveShare != p.ParticipantID {
		if prev := r.FindByRef(r.ActiveShare); prev != nil {
			prev.IsScreenSharing = false
			preempted = prev
		}
	}
	r.ActiveShare = p.ParticipantID
	p.IsScreenSharing = true
	return preempted
}

// ReleaseShare clears the share iff participantID currently holds it.
// Releasing someone else's share is a no-op.
func (r *Room) ReleaseShare(participantID string) bool {
	if r.ActiveShare != participantID || participantID == "" {
		return false
	}
	if p := r.FindByRef(participantID); p != nil {
		p.IsScreenSharing = false
	}
	r.ActiveShare = ""
	return true
}

// Subscribe attaches a connection to the room's broadcast channel.
func (r *Room) Subscribe(c *Client) {
	r.subscribers[c] = struct{}{}
}

// Unsubscribe detaches a connection.
func (r *Room) Unsubscribe(c *Client) {
	delete(r.subscribers, c)
}

// Broadcast sends an event to all subscribed connections.
func (r *Room) Broadcast(event *Event) {
	for client := range r.subscribers {
		client.Send(event)
	}
}

// Empty returns true if the roster has no participants.
func (r *Room) Empty() bool {
	return len(r.participants) == 0
}

// chatRoomID returns the durable log's room scope.
func (r *Room) chatRoomID() string {
	if r.RoomID != "" {
		return r.RoomID
	}
	return r.Channel
}

// chatSessionID returns the durable log's session scope. Legacy rooms
// (no announced room id) keep an unscoped log.
func (r *Room) chatSessionID() string {
	if r.RoomID != "" {
		return r.Channel
	}
	return ""
}
