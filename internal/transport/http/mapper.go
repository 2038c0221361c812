package http

import (
	"encoding/json"

	"github.com/sessionly/liveroom-server/internal/core"
	"github.com/sessionly/liveroom-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.ChannelID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "channelId is required"}, nil
		}
		return &core.Command{
			Kind:          core.CommandJoin,
			Channel:       join.ChannelID,
			ParticipantID: join.ParticipantID,
			RoomID:        join.RoomID,
		}, nil, nil
	case proto.InboundTypeLeave:
		return &core.Command{Kind: core.CommandLeave}, nil, nil
	case proto.InboundTypeToggleMedia:
		var toggle proto.ToggleMediaData
		if err := json.Unmarshal(inbound.Data, &toggle); err != nil {
			return nil, nil, err
		}
		kind := core.MediaKind(toggle.Kind)
		if kind != core.MediaAudio && kind != core.MediaVideo {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "kind must be audio or video"}, nil
		}
		return &core.Command{
			Kind:      core.CommandToggleMedia,
			Channel:   toggle.ChannelID,
			Media:     kind,
			Enabled:   toggle.Enabled,
			TargetRef: toggle.UserID,
		}, nil, nil
	case proto.InboundTypeRaiseHand:
		var hand proto.RaiseHandData
		if err := json.Unmarshal(inbound.Data, &hand); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandRaiseHand, IsRaised: hand.IsRaised}, nil, nil
	case proto.InboundTypeChatMessage:
		var msg proto.ChatMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, nil, err
		}
		if msg.Text == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "text is required"}, nil
		}
		return &core.Command{Kind: core.CommandChatMessage, Text: msg.Text}, nil, nil
	case proto.InboundTypeReaction:
		var reaction proto.ReactionData
		if err := json.Unmarshal(inbound.Data, &reaction); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandReaction, Text: reaction.Type}, nil, nil
	case proto.InboundTypeScreenShareStart:
		var share proto.ScreenShareData
		if err := json.Unmarshal(inbound.Data, &share); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:        core.CommandScreenShareStart,
			Channel:     share.ChannelID,
			TargetRef:   share.UserID,
			DisplayName: share.Username,
		}, nil, nil
	case proto.InboundTypeScreenShareStop:
		var share proto.ScreenShareData
		if err := json.Unmarshal(inbound.Data, &share); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind:      core.CommandScreenShareStop,
			Channel:   share.ChannelID,
			TargetRef: share.UserID,
		}, nil, nil
	case proto.InboundTypeRequestRoomState:
		var req proto.RoomStateRequest
		if err := json.Unmarshal(inbound.Data, &req); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandRequestRoomState, Channel: req.ChannelID}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func rosterToProto(roster []core.Participant) []proto.Participant {
	users := make([]proto.Participant, 0, len(roster))
	for _, p := range roster {
		users = append(users, proto.Participant{
			ParticipantID:   p.ParticipantID,
			UserID:          p.UserID,
			Username:        p.Username,
			Role:            string(p.Role),
			IsMuted:         p.IsMuted,
			IsCameraOn:      p.IsCameraOn,
			IsHandRaised:    p.IsHandRaised,
			IsScreenSharing: p.IsScreenSharing,
		})
	}
	return users
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventJoined:
		data := proto.JoinedData{
			ChannelID:     event.Channel,
			ParticipantID: event.ParticipantID,
		}
		if event.JoinInfo != nil {
			data.Media = &proto.MediaJoin{
				URL:      event.JoinInfo.URL,
				Token:    event.JoinInfo.Token,
				RoomName: event.JoinInfo.RoomName,
				Identity: event.JoinInfo.Identity,
			}
		}
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventJoined, Data: data}
	case core.EventUserJoined:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventUserJoined, Data: proto.UserJoinedData{
			ChannelID:     event.Channel,
			ParticipantID: event.ParticipantID,
			UserID:        event.UserID,
			Username:      event.Username,
		}}
	case core.EventUserList:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventUserList, Data: proto.UserListData{
			ChannelID: event.Channel,
			Users:     rosterToProto(event.Roster),
		}}
	case core.EventMeetingStatus:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventMeetingStatus, Data: proto.MeetingStatusData{
			ChannelID: event.Channel,
			Status:    string(event.Status),
		}}
	case core.EventMediaStateChange:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventMediaStateChange, Data: proto.MediaStateChangeData{
			ChannelID:     event.Channel,
			ParticipantID: event.ParticipantID,
			UserID:        event.UserID,
			Kind:          string(event.Media),
			Enabled:       event.Enabled,
			Users:         rosterToProto(event.Roster),
		}}
	case core.EventHandUpdate:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventHandUpdate, Data: proto.HandUpdateData{
			ChannelID:     event.Channel,
			ParticipantID: event.ParticipantID,
			UserID:        event.UserID,
			IsHandRaised:  event.IsRaised,
		}}
	case core.EventChatMessage:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventChatMessage, Data: chatMessageToProto(event)}
	case core.EventChatHistory:
		messages := make([]proto.ChatMessageEvent, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, proto.ChatMessageEvent{
				ID:        msg.ID,
				RoomID:    msg.RoomID,
				SessionID: msg.SessionID,
				UserID:    msg.UserID,
				UserName:  msg.UserName,
				Message:   msg.Body,
				CreatedAt: msg.CreatedAt.UnixMilli(),
			})
		}
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventChatHistory, Data: proto.ChatHistoryData{
			ChannelID: event.Channel,
			Messages:  messages,
		}}
	case core.EventReaction:
		data := proto.ReactionEvent{}
		if event.Reaction != nil {
			data = proto.ReactionEvent{
				ID:            event.Reaction.ID,
				ParticipantID: event.Reaction.ParticipantID,
				Type:          event.Reaction.Type,
			}
		}
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventReaction, Data: data}
	case core.EventScreenShareStart:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventScreenShareStart, Data: proto.ScreenShareEvent{
			ChannelID:     event.Channel,
			ParticipantID: event.ParticipantID,
			UserID:        event.UserID,
			Username:      event.Username,
		}}
	case core.EventScreenShareStop:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventScreenShareStop, Data: proto.ScreenShareEvent{
			ChannelID:     event.Channel,
			ParticipantID: event.ParticipantID,
			UserID:        event.UserID,
		}}
	case core.EventUserLeft:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventUserLeft, Data: proto.UserLeftData{
			ChannelID:     event.Channel,
			ParticipantID: event.ParticipantID,
			UserID:        event.UserID,
		}}
	case core.EventRoomState:
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventRoomState, Data: proto.RoomStateData{
			ChannelID:         event.Channel,
			ScreenShareUserID: event.ParticipantID,
			MeetingStatus:     string(event.Status),
			Users:             rosterToProto(event.Roster),
		}}
	case core.EventNotification:
		data := proto.NotificationData{}
		if event.Notification != nil {
			data = proto.NotificationData{
				ID:        event.Notification.ID,
				Type:      event.Notification.Type,
				Title:     event.Notification.Title,
				Body:      event.Notification.Body,
				CreatedAt: event.Notification.CreatedAt.UnixMilli(),
			}
		}
		return proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventNotification, Data: data}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message}}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func chatMessageToProto(event *core.Event) proto.ChatMessageEvent {
	if event.Message == nil {
		return proto.ChatMessageEvent{}
	}
	return proto.ChatMessageEvent{
		ID:        event.Message.ID,
		RoomID:    event.Message.RoomID,
		SessionID: event.Message.SessionID,
		UserID:    event.Message.UserID,
		UserName:  event.Message.UserName,
		Message:   event.Message.Body,
		CreatedAt: event.Message.CreatedAt.UnixMilli(),
	}
}
