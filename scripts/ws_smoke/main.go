package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sessionly/liveroom-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "smoke-tester", "user id to connect as")
	username := flag.String("username", "Smoke Tester", "display name")
	role := flag.String("role", "host", "role: host or audience")
	channel := flag.String("channel", "smoke-channel", "channel to join")
	text := flag.String("text", "hello from smoke test", "chat message to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	dialURL := fmt.Sprintf("%s?userId=%s&username=%s&role=%s",
		*addr, url.QueryEscape(*user), url.QueryEscape(*username), url.QueryEscape(*role))

	conn, _, err := websocket.Dial(ctx, dialURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msgType, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", msgType, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoin, proto.JoinData{ChannelID: *channel}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeChatMessage, proto.ChatMessageData{Text: *text}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error: %s (%s)", outbound.Error.Msg, outbound.Error.Code)
		}

		switch outbound.Event {
		case proto.EventUserList:
			var evt proto.UserListData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Roster: channel=%s users=%d\n", evt.ChannelID, len(evt.Users))
			}
		case proto.EventMeetingStatus:
			var evt proto.MeetingStatusData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Status: channel=%s status=%s\n", evt.ChannelID, evt.Status)
			}
		case proto.EventChatMessage:
			var evt proto.ChatMessageEvent
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(outbound.Data))
				return fmt.Errorf("unmarshal chat message: %w", err)
			}
			fmt.Printf("Chat: id=%d user=%s text=%q\n", evt.ID, evt.UserName, evt.Message)
			return nil
		default:
			// keep looping until the chat echo arrives
		}
	}
}
