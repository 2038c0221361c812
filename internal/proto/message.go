package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin             = "join"
	InboundTypeLeave            = "leave"
	InboundTypeToggleMedia      = "toggleMedia"
	InboundTypeRaiseHand        = "raiseHand"
	InboundTypeChatMessage      = "chatMessage"
	InboundTypeReaction         = "reaction"
	InboundTypeScreenShareStart = "screenShareStart"
	InboundTypeScreenShareStop  = "screenShareStop"
	InboundTypeRequestRoomState = "requestRoomState"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventJoined           = "joined"
	EventUserJoined       = "userJoined"
	EventUserList         = "userList"
	EventMeetingStatus    = "meetingStatus"
	EventMediaStateChange = "mediaStateChange"
	EventHandUpdate       = "handUpdate"
	EventChatMessage      = "chatMessage"
	EventChatHistory      = "chatHistory"
	EventReaction         = "reaction"
	EventScreenShareStart = "screenShareStart"
	EventScreenShareStop  = "screenShareStop"
	EventUserLeft         = "userLeft"
	EventRoomState        = "roomState"
	EventNotification     = "notification"
)

// JoinData enters a channel. RoomID links the channel to its marketplace
// room for chat scoping and is optional for legacy rooms.
type JoinData struct {
	ChannelID     string `json:"channelId"`
	ParticipantID string `json:"participantId"`
	RoomID        string `json:"roomId,omitempty"`
}

// ToggleMediaData flips a mute/camera flag. UserID is a fallback reference
// for stale connection mappings.
type ToggleMediaData struct {
	ChannelID string `json:"channelId,omitempty"`
	Kind      string `json:"kind"`
	Enabled   bool   `json:"enabled"`
	UserID    string `json:"userId,omitempty"`
}

// RaiseHandData flips the advisory hand flag.
type RaiseHandData struct {
	IsRaised bool `json:"isRaised"`
}

// ChatMessageData is a chat message from the client.
type ChatMessageData struct {
	Text string `json:"text"`
}

// ReactionData is an ephemeral emote.
type ReactionData struct {
	Type string `json:"type"`
}

// ScreenShareData starts or stops a screen share.
type ScreenShareData struct {
	ChannelID string `json:"channelId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
}

// RoomStateRequest pulls a full snapshot for the requesting connection.
type RoomStateRequest struct {
	ChannelID string `json:"channelId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Participant mirrors the roster entry clients render from.
type Participant struct {
	ParticipantID   string `json:"participantId"`
	UserID          string `json:"userId"`
	Username        string `json:"username"`
	Role            string `json:"role"`
	IsMuted         bool   `json:"isMuted"`
	IsCameraOn      bool   `json:"isCameraOn"`
	IsHandRaised    bool   `json:"isHandRaised"`
	IsScreenSharing bool   `json:"isScreenSharing"`
}

// JoinedData acknowledges a join, with media credentials when configured.
type JoinedData struct {
	ChannelID     string     `json:"channelId"`
	ParticipantID string     `json:"participantId"`
	Media         *MediaJoin `json:"media,omitempty"`
}

// MediaJoin carries RTC backend credentials.
type MediaJoin struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	RoomName string `json:"roomName"`
	Identity string `json:"identity"`
}

// UserJoinedData announces a new roster entry.
type UserJoinedData struct {
	ChannelID     string `json:"channelId"`
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	Username      string `json:"username"`
}

// UserListData is the full roster snapshot.
type UserListData struct {
	ChannelID string        `json:"channelId"`
	Users     []Participant `json:"users"`
}

// MeetingStatusData announces lobby/live.
type MeetingStatusData struct {
	ChannelID string `json:"channelId"`
	Status    string `json:"status"`
}

// MediaStateChangeData is the mute/camera delta plus the roster snapshot.
type MediaStateChangeData struct {
	ChannelID     string        `json:"channelId"`
	ParticipantID string        `json:"participantId"`
	UserID        string        `json:"userId"`
	Kind          string        `json:"kind"`
	Enabled       bool          `json:"enabled"`
	Users         []Participant `json:"users"`
}

// HandUpdateData is the hand-raise delta.
type HandUpdateData struct {
	ChannelID     string `json:"channelId"`
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	IsHandRaised  bool   `json:"isHandRaised"`
}

// ChatMessageEvent is a durably appended message.
type ChatMessageEvent struct {
	ID        int64  `json:"id"`
	RoomID    string `json:"roomId"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"`
}

// ChatHistoryData replays the log to a joining connection.
type ChatHistoryData struct {
	ChannelID string             `json:"channelId"`
	Messages  []ChatMessageEvent `json:"messages"`
}

// ReactionEvent is an ephemeral emote broadcast.
type ReactionEvent struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	Type          string `json:"type"`
}

// ScreenShareEvent announces a share start or stop.
type ScreenShareEvent struct {
	ChannelID     string `json:"channelId"`
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	Username      string `json:"username,omitempty"`
}

// UserLeftData announces a roster removal.
type UserLeftData struct {
	ChannelID     string `json:"channelId"`
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
}

// RoomStateData answers a requestRoomState pull.
type RoomStateData struct {
	ChannelID         string        `json:"channelId"`
	ScreenShareUserID string        `json:"screenShareUserId,omitempty"`
	MeetingStatus     string        `json:"meetingStatus"`
	Users             []Participant `json:"users"`
}

// NotificationData is an externally published notification.
type NotificationData struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"createdAt"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
