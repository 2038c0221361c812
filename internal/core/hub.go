package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sessionly/liveroom-server/internal/media"
	"github.com/sessionly/liveroom-server/internal/store"
	"github.com/sessionly/liveroom-server/internal/utils"
)

const defaultStoreTimeout = 5 * time.Second

// envelope pairs a command with the connection that issued it. client is nil
// for commands injected by external collaborators (notification fan-out).
type envelope struct {
	client *Client
	cmd    *Command
}

// Hub is the room coordinator. All room-state mutations run on the single
// Run goroutine, so each command executes as one non-preempted step;
// transports feed it through per-client command channels (preserving
// per-connection order) and external collaborators through NotifyUser and
// NotifyRoom.
//
// Durable-store calls execute inline within the handler that needs them and
// are finished before the next command is taken. Presence and media treat
// store failures as best-effort (the in-memory state is the live truth);
// chat refuses to broadcast anything that was not durably appended.
type Hub struct {
	registry *Registry
	store    store.Store  // nil disables persistence (tests)
	engine   media.Engine // nil disables RTC credentials
	log      zerolog.Logger

	commands   chan envelope
	register   chan *Client
	unregister chan *Client

	clients     map[string]*Client
	userClients map[string]map[*Client]struct{}

	storeTimeout time.Duration
}

// NewHub creates a hub with its own registry.
func NewHub(st store.Store, engine media.Engine, logger *zerolog.Logger) *Hub {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Hub{
		registry:     NewRegistry(),
		store:        st,
		engine:       engine,
		log:          l,
		commands:     make(chan envelope, 64),
		register:     make(chan *Client, 8),
		unregister:   make(chan *Client, 8),
		clients:      make(map[string]*Client),
		userClients:  make(map[string]map[*Client]struct{}),
		storeTimeout: defaultStoreTimeout,
	}
}

// RegisterClient announces a new connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient removes a connection. The hub treats it as an implicit
// leave: roster removal, userLeft broadcast, share release, room GC.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// NotifyUser delivers a notification to every live connection of one user.
// If the user is not connected the notification is dropped from the
// real-time path; durable delivery is the publisher's concern.
func (h *Hub) NotifyUser(userID string, n *Notification) {
	h.commands <- envelope{cmd: &Command{
		Kind:         CommandNotifyUser,
		TargetRef:    userID,
		Notification: n,
	}}
}

// NotifyRoom fans a notification out to the room's host and enrolled users.
func (h *Hub) NotifyRoom(roomID string, n *Notification) {
	h.commands <- envelope{cmd: &Command{
		Kind:         CommandNotifyRoom,
		RoomID:       roomID,
		Notification: n,
	}}
}

// Run processes registrations and commands until ctx is cancelled. It must
// be running for any hub method to make progress.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.dropClient(ctx, c)
		case env := <-h.commands:
			h.dispatch(ctx, env.client, env.cmd)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c.ConnID] = c
	if c.UserID != "" {
		conns, ok := h.userClients[c.UserID]
		if !ok {
			conns = make(map[*Client]struct{})
			h.userClients[c.UserID] = conns
		}
		conns[c] = struct{}{}
	}

	// Forward the client's commands into the shared stream. Per-connection
	// order is preserved; commands from different connections interleave.
	go func() {
		for {
			select {
			case cmd := <-c.Commands:
				if cmd == nil {
					continue
				}
				select {
				case h.commands <- envelope{client: c, cmd: cmd}:
				case <-c.done:
					return
				}
			case <-c.done:
				return
			}
		}
	}()
}

func (h *Hub) dropClient(ctx context.Context, c *Client) {
	h.leaveRoom(ctx, c)

	delete(h.clients, c.ConnID)
	if conns, ok := h.userClients[c.UserID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.userClients, c.UserID)
		}
	}
	close(c.done)
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoin:
		h.handleJoin(ctx, c, cmd)
	case CommandLeave:
		h.leaveRoom(ctx, c)
	case CommandToggleMedia:
		h.handleToggleMedia(c, cmd)
	case CommandRaiseHand:
		h.handleRaiseHand(c, cmd)
	case CommandChatMessage:
		h.handleChatMessage(ctx, c, cmd)
	case CommandReaction:
		h.handleReaction(c, cmd)
	case CommandScreenShareStart:
		h.handleScreenShareStart(c, cmd)
	case CommandScreenShareStop:
		h.handleScreenShareStop(c, cmd)
	case CommandRequestRoomState:
		h.handleRequestRoomState(c, cmd)
	case CommandNotifyUser:
		h.deliverToUser(cmd.TargetRef, cmd.Notification)
	case CommandNotifyRoom:
		h.handleNotifyRoom(ctx, cmd)
	default:
		if c != nil {
			c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
		}
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, cmd *Command) {
	if c == nil {
		return
	}
	if cmd.Channel == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "channel is required")})
		return
	}

	// A connection lives in at most one room; joining another implies
	// leaving the previous one first.
	if current, ok := h.registry.RoomByConn(c.ConnID); ok && current.Channel != cmd.Channel {
		h.leaveRoom(ctx, c)
	}

	room := h.registry.GetOrCreate(cmd.Channel)
	if cmd.RoomID != "" {
		room.RoomID = cmd.RoomID
	}

	participantID := cmd.ParticipantID
	if participantID == "" {
		participantID = c.ConnID
	}

	p := NewParticipant(participantID, c.UserID, c.ConnID, c.Username, c.Role)
	replaced := room.Upsert(p)
	room.Subscribe(c)
	h.registry.BindConn(c.ConnID, cmd.Channel)

	room.Status = room.Status.Advance(p.Role)

	// Durable attendance first; failure must not stall the live view.
	h.recordJoin(ctx, room.Channel, p)

	room.Broadcast(&Event{Kind: EventUserJoined, Channel: room.Channel, ParticipantID: p.ParticipantID, UserID: p.UserID, Username: p.Username})
	room.Broadcast(&Event{Kind: EventUserList, Channel: room.Channel, Roster: room.Roster()})
	room.Broadcast(&Event{Kind: EventMeetingStatus, Channel: room.Channel, Status: room.Status})

	h.log.Debug().
		Str("channel", room.Channel).
		Str("participant_id", p.ParticipantID).
		Str("user_id", p.UserID).
		Bool("rejoin", replaced).
		Msg("participant joined")

	// History replay goes to the joining connection only. The fetch is a
	// suspension point: re-check the participant is still present before
	// unicasting, in case a leave was processed for this connection.
	if history := h.fetchHistory(ctx, room); history != nil {
		if room.FindByConn(c.ConnID) != nil {
			c.Send(&Event{Kind: EventChatHistory, Channel: room.Channel, Messages: history})
		}
	}

	if room.ActiveShare != "" {
		if sharer := room.FindByRef(room.ActiveShare); sharer != nil {
			c.Send(&Event{
				Kind:          EventScreenShareStart,
				Channel:       room.Channel,
				ParticipantID: sharer.ParticipantID,
				UserID:        sharer.UserID,
				Username:      sharer.Username,
			})
		}
	}

	joined := &Event{Kind: EventJoined, Channel: room.Channel, ParticipantID: p.ParticipantID, UserID: p.UserID}
	if h.engine != nil {
		info, err := h.engine.JoinToken(ctx, room.Channel, p.ParticipantID, p.Username, p.Role == RoleHost)
		if err != nil {
			h.log.Warn().Err(err).Str("channel", room.Channel).Msg("mint media token")
		} else {
			joined.JoinInfo = info
		}
	}
	c.Send(joined)
}

// leaveRoom removes the connection's participant from its room, broadcasting
// userLeft and releasing a held screen share. Used for both explicit leave
// and transport disconnect.
func (h *Hub) leaveRoom(ctx context.Context, c *Client) {
	if c == nil {
		return
	}
	room, ok := h.registry.RoomByConn(c.ConnID)
	if !ok {
		h.registry.UnbindConn(c.ConnID)
		return
	}

	p := room.RemoveByConn(c.ConnID)
	room.Unsubscribe(c)
	h.registry.UnbindConn(c.ConnID)
	if p == nil {
		h.registry.RemoveIfEmpty(room.Channel)
		return
	}

	if room.ReleaseShare(p.ParticipantID) {
		room.Broadcast(&Event{
			Kind:          EventScreenShareStop,
			Channel:       room.Channel,
			ParticipantID: p.ParticipantID,
			UserID:        p.UserID,
		})
	}

	room.Broadcast(&Event{Kind: EventUserLeft, Channel: room.Channel, ParticipantID: p.ParticipantID, UserID: p.UserID})

	h.recordLeave(ctx, room.Channel, p.UserID)

	h.registry.RemoveIfEmpty(room.Channel)

	h.log.Debug().
		Str("channel", room.Channel).
		Str("participant_id", p.ParticipantID).
		Msg("participant left")
}

func (h *Hub) handleToggleMedia(c *Client, cmd *Command) {
	room, p := h.resolveParticipant(c, cmd)
	if p == nil {
		return
	}

	switch cmd.Media {
	case MediaAudio:
		p.IsMuted = !cmd.Enabled
	case MediaVideo:
		p.IsCameraOn = cmd.Enabled
	default:
		if c != nil {
			c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown media kind")})
		}
		return
	}

	// Downstream consumers render from the roster snapshot, so the delta
	// ships together with the full roster.
	room.Broadcast(&Event{
		Kind:          EventMediaStateChange,
		Channel:       room.Channel,
		ParticipantID: p.ParticipantID,
		UserID:        p.UserID,
		Media:         cmd.Media,
		Enabled:       cmd.Enabled,
		Roster:        room.Roster(),
	})
}

func (h *Hub) handleRaiseHand(c *Client, cmd *Command) {
	room, p := h.resolveParticipant(c, cmd)
	if p == nil {
		return
	}

	p.IsHandRaised = cmd.IsRaised

	// Hand state is advisory UI: delta only, no roster.
	room.Broadcast(&Event{
		Kind:          EventHandUpdate,
		Channel:       room.Channel,
		ParticipantID: p.ParticipantID,
		UserID:        p.UserID,
		IsRaised:      cmd.IsRaised,
	})
}

func (h *Hub) handleChatMessage(ctx context.Context, c *Client, cmd *Command) {
	if c == nil {
		return
	}
	if cmd.Text == "" {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "message is required")})
		return
	}

	room, ok := h.registry.RoomByConn(c.ConnID)
	if !ok {
		c.Send(&Event{Kind: EventError, Error: coreError(ErrCodeNotInRoom, "join a room before sending messages")})
		return
	}

	username := c.Username
	if p := room.FindByConn(c.ConnID); p != nil {
		username = p.Username
	}

	msg := &store.ChatMessage{
		RoomID:    room.chatRoomID(),
		SessionID: room.chatSessionID(),
		UserID:    c.UserID,
		UserName:  username,
		Body:      cmd.Text,
		CreatedAt: time.Now().UTC(),
	}

	saved := msg
	if h.store != nil {
		sctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
		appended, err := h.store.AppendMessage(sctx, msg)
		cancel()
		if err != nil {
			// Chat favors consistency: nothing that failed to persist is
			// broadcast. The sender retries; other participants never see it.
			h.log.Error().Err(err).Str("channel", room.Channel).Msg("append chat message")
			c.Send(&Event{Kind: EventError, Channel: room.Channel, Error: coreError(ErrCodeChatFailed, "message could not be saved")})
			return
		}
		saved = appended
	}

	// The append was a suspension point; the room may have emptied since.
	current, ok := h.registry.Lookup(room.Channel)
	if !ok || current != room {
		return
	}
	room.Broadcast(&Event{Kind: EventChatMessage, Channel: room.Channel, Message: saved})
}

func (h *Hub) handleReaction(c *Client, cmd *Command) {
	room, p := h.resolveParticipant(c, cmd)
	if p == nil {
		return
	}

	room.Broadcast(&Event{
		Kind:    EventReaction,
		Channel: room.Channel,
		Reaction: &Reaction{
			ID:            utils.NewID(),
			ParticipantID: p.ParticipantID,
			Type:          cmd.Text,
		},
	})
}

func (h *Hub) handleScreenShareStart(c *Client, cmd *Command) {
	room, p := h.resolveParticipant(c, cmd)
	if p == nil {
		return
	}

	// Last requester wins: the current holder is force-stopped before the
	// new share is granted.
	if preempted := room.GrantShare(p); preempted != nil {
		room.Broadcast(&Event{
			Kind:          EventScreenShareStop,
			Channel:       room.Channel,
			ParticipantID: preempted.ParticipantID,
			UserID:        preempted.UserID,
		})
	}

	username := cmd.DisplayName
	if username == "" {
		username = p.Username
	}
	room.Broadcast(&Event{
		Kind:          EventScreenShareStart,
		Channel:       room.Channel,
		ParticipantID: p.ParticipantID,
		UserID:        p.UserID,
		Username:      username,
	})
}

func (h *Hub) handleScreenShareStop(c *Client, cmd *Command) {
	room, p := h.resolveParticipant(c, cmd)
	if p == nil {
		return
	}

	// Only the holder releases the slot; a stale stop from anyone else is a
	// no-op and must not clear another participant's share.
	if !room.ReleaseShare(p.ParticipantID) {
		return
	}

	room.Broadcast(&Event{
		Kind:          EventScreenShareStop,
		Channel:       room.Channel,
		ParticipantID: p.ParticipantID,
		UserID:        p.UserID,
	})
}

func (h *Hub) handleRequestRoomState(c *Client, cmd *Command) {
	if c == nil {
		return
	}
	channel := cmd.Channel
	if channel == "" {
		if room, ok := h.registry.RoomByConn(c.ConnID); ok {
			channel = room.Channel
		}
	}

	room, ok := h.registry.Lookup(channel)
	if !ok {
		// No live room: answer with an empty lobby snapshot rather than an
		// error, so reconnecting clients can render a consistent default.
		c.Send(&Event{Kind: EventRoomState, Channel: channel, Status: StatusLobby, Roster: []Participant{}})
		return
	}

	ev := &Event{
		Kind:    EventRoomState,
		Channel: room.Channel,
		Status:  room.Status,
		Roster:  room.Roster(),
	}
	if room.ActiveShare != "" {
		if sharer := room.FindByRef(room.ActiveShare); sharer != nil {
			ev.ParticipantID = sharer.ParticipantID
			ev.UserID = sharer.UserID
			ev.Username = sharer.Username
		}
	}
	c.Send(ev)
}

func (h *Hub) handleNotifyRoom(ctx context.Context, cmd *Command) {
	if h.store == nil || cmd.Notification == nil {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	defer cancel()

	room, err := h.store.GetRoom(sctx, cmd.RoomID)
	if err != nil {
		h.log.Warn().Err(err).Str("room_id", cmd.RoomID).Msg("resolve room for notification")
		return
	}
	enrolled, err := h.store.ListEnrolled(sctx, cmd.RoomID)
	if err != nil {
		h.log.Warn().Err(err).Str("room_id", cmd.RoomID).Msg("list enrolled for notification")
		enrolled = nil
	}

	h.deliverToUser(room.HostID, cmd.Notification)
	for _, userID := range enrolled {
		if userID == room.HostID {
			continue
		}
		h.deliverToUser(userID, cmd.Notification)
	}
}

func (h *Hub) deliverToUser(userID string, n *Notification) {
	if n == nil || userID == "" {
		return
	}
	for c := range h.userClients[userID] {
		c.Send(&Event{Kind: EventNotification, Notification: n})
	}
}

// resolveParticipant finds the room and participant a media/share command
// addresses. The connection id is the primary lookup; the explicit reference
// in the command is consulted only when the connection mapping misses.
func (h *Hub) resolveParticipant(c *Client, cmd *Command) (*Room, *Participant) {
	if c != nil {
		if room, ok := h.registry.RoomByConn(c.ConnID); ok {
			if p := room.FindByConn(c.ConnID); p != nil {
				return room, p
			}
			if cmd.TargetRef != "" {
				if p := room.FindByRef(cmd.TargetRef); p != nil {
					return room, p
				}
			}
		}
	}
	if cmd.Channel != "" && cmd.TargetRef != "" {
		if room, ok := h.registry.Lookup(cmd.Channel); ok {
			if p := room.FindByRef(cmd.TargetRef); p != nil {
				return room, p
			}
		}
	}
	return nil, nil
}

func (h *Hub) recordJoin(ctx context.Context, sessionID string, p *Participant) {
	if h.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	defer cancel()

	err := h.store.UpsertAttendee(sctx, sessionID, &store.Attendee{
		ParticipantID:  p.ParticipantID,
		UserID:         p.UserID,
		Username:       p.Username,
		Role:           string(p.Role),
		IsMuted:        p.IsMuted,
		IsCameraOn:     p.IsCameraOn,
		IsHandRaised:   p.IsHandRaised,
		IsScreenShared: p.IsScreenSharing,
	})
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Str("user_id", p.UserID).Msg("record attendance join")
	}
}

func (h *Hub) recordLeave(ctx context.Context, sessionID, userID string) {
	if h.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	defer cancel()

	if err := h.store.RemoveAttendee(sctx, sessionID, userID); err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Str("user_id", userID).Msg("record attendance leave")
	}
}

func (h *Hub) fetchHistory(ctx context.Context, room *Room) []*store.ChatMessage {
	if h.store == nil {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	defer cancel()

	history, err := h.store.ListMessages(sctx, room.chatRoomID(), room.chatSessionID())
	if err != nil {
		h.log.Warn().Err(err).Str("channel", room.Channel).Msg("fetch chat history")
		return nil
	}
	if history == nil {
		history = []*store.ChatMessage{}
	}
	return history
}
