package core

import (
	"context"
	"testing"

	"github.com/sessionly/liveroom-server/internal/store"
)

func TestHostJoinGoesLive(t *testing.T) {
	hub := startHub(t, nil)

	host := NewClient("c-host", "u1", "alice", RoleHost)
	hub.RegisterClient(host)
	host.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "p1"}

	joinEv := mustEvent(t, host.Events, EventUserJoined)
	if joinEv.ParticipantID != "p1" || joinEv.Channel != "R1" {
		t.Fatalf("unexpected join event: %+v", joinEv)
	}

	listEv := mustEvent(t, host.Events, EventUserList)
	if len(listEv.Roster) != 1 || listEv.Roster[0].Username != "alice" {
		t.Fatalf("unexpected roster: %+v", listEv.Roster)
	}
	if !listEv.Roster[0].IsMuted || listEv.Roster[0].IsCameraOn {
		t.Fatalf("expected default media flags, got %+v", listEv.Roster[0])
	}

	statusEv := mustEvent(t, host.Events, EventMeetingStatus)
	if statusEv.Status != StatusLive {
		t.Fatalf("expected live status, got %s", statusEv.Status)
	}

	// The joined ack arrives last; no screen share unicast precedes it in an
	// empty room.
	events := collectUntil(t, host.Events, EventJoined)
	for _, ev := range events {
		if ev.Kind == EventScreenShareStart {
			t.Fatalf("unexpected screen share start for empty room")
		}
	}
}

func TestAudienceWaitsInLobbyUntilHostJoins(t *testing.T) {
	hub := startHub(t, nil)

	audience := NewClient("c-aud", "u2", "bob", RoleAudience)
	hub.RegisterClient(audience)
	audience.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "p2"}

	statusEv := mustEvent(t, audience.Events, EventMeetingStatus)
	if statusEv.Status != StatusLobby {
		t.Fatalf("expected lobby before host, got %s", statusEv.Status)
	}
	mustEvent(t, audience.Events, EventJoined)

	host := NewClient("c-host", "u1", "alice", RoleHost)
	hub.RegisterClient(host)
	host.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "p1"}

	// The pre-existing audience member sees the flip to live too.
	statusEv = mustEvent(t, audience.Events, EventMeetingStatus)
	if statusEv.Status != StatusLive {
		t.Fatalf("expected live after host join, got %s", statusEv.Status)
	}
}

func TestDistinctJoinsGrowRoster(t *testing.T) {
	hub := startHub(t, nil)

	clients := []*Client{
		NewClient("c1", "u1", "alice", RoleHost),
		NewClient("c2", "u2", "bob", RoleAudience),
		NewClient("c3", "u3", "carol", RoleAudience),
	}
	pids := []string{"p1", "p2", "p3"}

	for i, c := range clients {
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: pids[i]}
		mustEvent(t, c.Events, EventJoined)
	}

	clients[0].Commands <- &Command{Kind: CommandRequestRoomState, Channel: "R1"}
	stateEv := mustEvent(t, clients[0].Events, EventRoomState)
	if len(stateEv.Roster) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(stateEv.Roster))
	}
	for i, p := range stateEv.Roster {
		if p.ParticipantID != pids[i] {
			t.Fatalf("roster order broken: expected %s at %d, got %s", pids[i], i, p.ParticipantID)
		}
	}
}

func TestRejoinSameParticipantReplacesInPlace(t *testing.T) {
	hub := startHub(t, nil)

	first := NewClient("c1", "u1", "alice", RoleAudience)
	hub.RegisterClient(first)
	first.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "p1"}
	mustEvent(t, first.Events, EventJoined)

	// Same participant identity reconnects on a new connection.
	second := NewClient("c2", "u1", "alice2", RoleAudience)
	hub.RegisterClient(second)
	second.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "p1"}
	mustEvent(t, second.Events, EventJoined)

	second.Commands <- &Command{Kind: CommandRequestRoomState, Channel: "R1"}
	stateEv := mustEvent(t, second.Events, EventRoomState)
	if len(stateEv.Roster) != 1 {
		t.Fatalf("expected replaced entry, roster size %d", len(stateEv.Roster))
	}
	if stateEv.Roster[0].Username != "alice2" || stateEv.Roster[0].ConnID != "c2" {
		t.Fatalf("roster entry not replaced: %+v", stateEv.Roster[0])
	}
}

func TestScreenSharePreemption(t *testing.T) {
	hub := startHub(t, nil)

	a := NewClient("ca", "ua", "alice", RoleHost)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)
	hub.RegisterClient(b)
	b.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}
	mustEvent(t, b.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandScreenShareStart}
	// Drain A's own grant broadcast so only the preemption pair remains.
	mustEvent(t, a.Events, EventScreenShareStart)
	startEv := mustEvent(t, b.Events, EventScreenShareStart)
	if startEv.ParticipantID != "pa" {
		t.Fatalf("expected pa sharing, got %s", startEv.ParticipantID)
	}

	// B preempts: A must be stopped first, then B granted.
	b.Commands <- &Command{Kind: CommandScreenShareStart}

	events := collectUntil(t, a.Events, EventScreenShareStart)
	var sawStopForA bool
	for _, ev := range events {
		switch ev.Kind {
		case EventScreenShareStop:
			if ev.ParticipantID != "pa" {
				t.Fatalf("stop for wrong participant: %s", ev.ParticipantID)
			}
			sawStopForA = true
		case EventScreenShareStart:
			if !sawStopForA {
				t.Fatal("share granted to B before A was stopped")
			}
			if ev.ParticipantID != "pb" {
				t.Fatalf("expected pb granted, got %s", ev.ParticipantID)
			}
		}
	}

	a.Commands <- &Command{Kind: CommandRequestRoomState, Channel: "R1"}
	stateEv := mustEvent(t, a.Events, EventRoomState)
	if stateEv.ParticipantID != "pb" {
		t.Fatalf("expected pb as active sharer, got %q", stateEv.ParticipantID)
	}
	for _, p := range stateEv.Roster {
		if p.ParticipantID == "pa" && p.IsScreenSharing {
			t.Fatal("preempted participant still flagged as sharing")
		}
	}
}

func TestScreenShareStopByNonHolderIsNoOp(t *testing.T) {
	hub := startHub(t, nil)

	a := NewClient("ca", "ua", "alice", RoleHost)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)
	hub.RegisterClient(b)
	b.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}
	mustEvent(t, b.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandScreenShareStart}
	mustEvent(t, b.Events, EventScreenShareStart)

	b.Commands <- &Command{Kind: CommandScreenShareStop}
	b.Commands <- &Command{Kind: CommandRequestRoomState, Channel: "R1"}

	events := collectUntil(t, b.Events, EventRoomState)
	for _, ev := range events {
		if ev.Kind == EventScreenShareStop {
			t.Fatal("stop by non-holder must not broadcast")
		}
	}
	stateEv := events[len(events)-1]
	if stateEv.ParticipantID != "pa" {
		t.Fatalf("share cleared by non-holder: active sharer %q", stateEv.ParticipantID)
	}
}

func TestRequestRoomStateIdempotent(t *testing.T) {
	hub := startHub(t, nil)

	c := NewClient("c1", "u1", "alice", RoleHost)
	hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "p1"}
	mustEvent(t, c.Events, EventJoined)

	c.Commands <- &Command{Kind: CommandRequestRoomState, Channel: "R1"}
	first := mustEvent(t, c.Events, EventRoomState)
	c.Commands <- &Command{Kind: CommandRequestRoomState, Channel: "R1"}
	second := mustEvent(t, c.Events, EventRoomState)

	if first.Status != second.Status || first.ParticipantID != second.ParticipantID {
		t.Fatalf("snapshots differ: %+v vs %+v", first, second)
	}
	if len(first.Roster) != len(second.Roster) {
		t.Fatalf("roster size differs: %d vs %d", len(first.Roster), len(second.Roster))
	}
	for i := range first.Roster {
		if first.Roster[i] != second.Roster[i] {
			t.Fatalf("roster entry %d differs", i)
		}
	}
}

func TestRoomRemovedWhenLastParticipantDisconnects(t *testing.T) {
	hub := startHub(t, nil)

	host := NewClient("c1", "u1", "alice", RoleHost)
	hub.RegisterClient(host)
	host.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "p1"}
	statusEv := mustEvent(t, host.Events, EventMeetingStatus)
	if statusEv.Status != StatusLive {
		t.Fatalf("expected live, got %s", statusEv.Status)
	}
	mustEvent(t, host.Events, EventJoined)

	hub.UnregisterClient(host)
	<-host.done // wait until the hub has processed the disconnect

	// A fresh join to the same channel must see a fresh lobby room, not the
	// stale live one.
	late := NewClient("c2", "u2", "bob", RoleAudience)
	hub.RegisterClient(late)
	late.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "p2"}

	statusEv = mustEvent(t, late.Events, EventMeetingStatus)
	if statusEv.Status != StatusLobby {
		t.Fatalf("expected fresh lobby room after GC, got %s", statusEv.Status)
	}
	listEv := mustEvent(t, late.Events, EventUserList)
	if len(listEv.Roster) != 1 {
		t.Fatalf("stale roster survived GC: %+v", listEv.Roster)
	}
}

func TestDisconnectBroadcastsUserLeftAndReleasesShare(t *testing.T) {
	hub := startHub(t, nil)

	a := NewClient("ca", "ua", "alice", RoleHost)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)
	hub.RegisterClient(b)
	b.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}
	mustEvent(t, b.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandScreenShareStart}
	mustEvent(t, b.Events, EventScreenShareStart)

	hub.UnregisterClient(a)

	stopEv := mustEvent(t, b.Events, EventScreenShareStop)
	if stopEv.ParticipantID != "pa" {
		t.Fatalf("expected share released for pa, got %s", stopEv.ParticipantID)
	}
	leftEv := mustEvent(t, b.Events, EventUserLeft)
	if leftEv.ParticipantID != "pa" {
		t.Fatalf("expected userLeft for pa, got %s", leftEv.ParticipantID)
	}
}

func TestToggleMediaBroadcastsDeltaWithRoster(t *testing.T) {
	hub := startHub(t, nil)

	a := NewClient("ca", "ua", "alice", RoleHost)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)
	hub.RegisterClient(b)
	b.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}
	mustEvent(t, b.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandToggleMedia, Media: MediaAudio, Enabled: true}

	ev := mustEvent(t, b.Events, EventMediaStateChange)
	if ev.ParticipantID != "pa" || ev.Media != MediaAudio || !ev.Enabled {
		t.Fatalf("unexpected media delta: %+v", ev)
	}
	if len(ev.Roster) != 2 {
		t.Fatalf("media change must carry the full roster, got %d entries", len(ev.Roster))
	}
	for _, p := range ev.Roster {
		if p.ParticipantID == "pa" && p.IsMuted {
			t.Fatal("unmute not applied to roster snapshot")
		}
	}
}

func TestRaiseHandBroadcastsDeltaOnly(t *testing.T) {
	hub := startHub(t, nil)

	a := NewClient("ca", "ua", "alice", RoleAudience)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)
	hub.RegisterClient(b)
	b.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}
	mustEvent(t, b.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandRaiseHand, IsRaised: true}

	ev := mustEvent(t, b.Events, EventHandUpdate)
	if ev.ParticipantID != "pa" || !ev.IsRaised {
		t.Fatalf("unexpected hand update: %+v", ev)
	}
	if len(ev.Roster) != 0 {
		t.Fatal("hand update is a delta event, no roster expected")
	}
}

func TestChatMessageBroadcastAfterDurableAppend(t *testing.T) {
	st := newFakeStore()
	hub := startHub(t, st)

	a := NewClient("ca", "ua", "alice", RoleHost)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)
	hub.RegisterClient(b)
	b.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}
	mustEvent(t, b.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandChatMessage, Text: "hello"}

	msgEv := mustEvent(t, b.Events, EventChatMessage)
	if msgEv.Message == nil || msgEv.Message.Body != "hello" || msgEv.Message.ID == 0 {
		t.Fatalf("expected durably appended message with id, got %+v", msgEv.Message)
	}
	if msgEv.Message.UserName != "alice" {
		t.Fatalf("unexpected sender name: %s", msgEv.Message.UserName)
	}
}

func TestChatHistoryReplayedInOrderToLateJoiner(t *testing.T) {
	st := newFakeStore()
	hub := startHub(t, st)

	a := NewClient("ca", "ua", "alice", RoleHost)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandChatMessage, Text: "first"}
	mustEvent(t, a.Events, EventChatMessage)
	a.Commands <- &Command{Kind: CommandChatMessage, Text: "second"}
	mustEvent(t, a.Events, EventChatMessage)

	late := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(late)
	late.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}

	histEv := mustEvent(t, late.Events, EventChatHistory)
	if len(histEv.Messages) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(histEv.Messages))
	}
	if histEv.Messages[0].Body != "first" || histEv.Messages[1].Body != "second" {
		t.Fatalf("history out of order: %q, %q", histEv.Messages[0].Body, histEv.Messages[1].Body)
	}
}

func TestChatAppendFailureSuppressesBroadcast(t *testing.T) {
	st := newFakeStore()
	st.setFailAppend(true)
	hub := startHub(t, st)

	a := NewClient("ca", "ua", "alice", RoleHost)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)
	hub.RegisterClient(b)
	b.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}
	mustEvent(t, b.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandChatMessage, Text: "doomed"}

	errEv := mustEvent(t, a.Events, EventError)
	if errEv.Error == nil || errEv.Error.Code != ErrCodeChatFailed {
		t.Fatalf("expected chat_failed ack, got %+v", errEv)
	}

	// Fence: the roomState answer arrives after any (wrongly) broadcast
	// message would have.
	b.Commands <- &Command{Kind: CommandRequestRoomState, Channel: "R1"}
	events := collectUntil(t, b.Events, EventRoomState)
	for _, ev := range events {
		if ev.Kind == EventChatMessage {
			t.Fatal("failed append must not be broadcast")
		}
	}

	history, err := st.ListMessages(context.Background(), "R1", "")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("failed message leaked into history: %d", len(history))
	}
}

func TestEmptyChatMessageRejected(t *testing.T) {
	hub := startHub(t, newFakeStore())

	a := NewClient("ca", "ua", "alice", RoleHost)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandChatMessage, Text: ""}
	errEv := mustEvent(t, a.Events, EventError)
	if errEv.Error == nil || errEv.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", errEv)
	}
}

func TestJoinWithoutChannelRejected(t *testing.T) {
	hub := startHub(t, nil)

	c := NewClient("c1", "u1", "alice", RoleAudience)
	hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandJoin, ParticipantID: "p1"}

	errEv := mustEvent(t, c.Events, EventError)
	if errEv.Error == nil || errEv.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", errEv)
	}
}

func TestReactionIsEphemeral(t *testing.T) {
	st := newFakeStore()
	hub := startHub(t, st)

	a := NewClient("ca", "ua", "alice", RoleHost)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)
	hub.RegisterClient(b)
	b.Commands <- &Command{Kind: CommandJoin, Channel: "R1", ParticipantID: "pb"}
	mustEvent(t, b.Events, EventJoined)

	a.Commands <- &Command{Kind: CommandReaction, Text: "clap"}

	ev := mustEvent(t, b.Events, EventReaction)
	if ev.Reaction == nil || ev.Reaction.Type != "clap" || ev.Reaction.ParticipantID != "pa" {
		t.Fatalf("unexpected reaction: %+v", ev.Reaction)
	}

	history, err := st.ListMessages(context.Background(), "R1", "")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(history) != 0 {
		t.Fatal("reactions must not be persisted")
	}
}

func TestAttendanceRecordedOnJoinAndLeave(t *testing.T) {
	st := newFakeStore()
	hub := startHub(t, st)

	a := NewClient("ca", "ua", "alice", RoleHost)
	hub.RegisterClient(a)
	a.Commands <- &Command{Kind: CommandJoin, Channel: "S1", ParticipantID: "pa"}
	mustEvent(t, a.Events, EventJoined)

	waitFor(t, func() bool { return st.attendeeCount("S1") == 1 }, "join not recorded")

	a.Commands <- &Command{Kind: CommandLeave}
	waitFor(t, func() bool { return st.attendeeCount("S1") == 0 }, "leave not recorded")
}

func TestNotifyUserReachesOnlyThatUser(t *testing.T) {
	hub := startHub(t, nil)

	a := NewClient("ca", "ua", "alice", RoleAudience)
	b := NewClient("cb", "ub", "bob", RoleAudience)
	hub.RegisterClient(a)
	hub.RegisterClient(b)

	hub.NotifyUser("ua", &Notification{ID: "n1", Type: "feedback", Body: "new feedback"})

	ev := mustEvent(t, a.Events, EventNotification)
	if ev.Notification == nil || ev.Notification.ID != "n1" {
		t.Fatalf("unexpected notification: %+v", ev.Notification)
	}

	// Fence for b: a second targeted notification confirms b received
	// nothing from the first.
	hub.NotifyUser("ub", &Notification{ID: "n2"})
	ev = mustEvent(t, b.Events, EventNotification)
	if ev.Notification.ID != "n2" {
		t.Fatalf("notification leaked across users: %+v", ev.Notification)
	}
}

func TestNotifyRoomFansOutToHostAndEnrolled(t *testing.T) {
	st := newFakeStore()
	if err := st.CreateRoom(context.Background(), &store.Room{ID: "room-1", Title: "Go Workshop", HostID: "uh"}); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	if err := st.Enroll(context.Background(), "room-1", "ue"); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	hub := startHub(t, st)

	host := NewClient("ch", "uh", "hana", RoleHost)
	enrollee := NewClient("ce", "ue", "eli", RoleAudience)
	stranger := NewClient("cs", "us", "sam", RoleAudience)
	hub.RegisterClient(host)
	hub.RegisterClient(enrollee)
	hub.RegisterClient(stranger)

	hub.NotifyRoom("room-1", &Notification{ID: "n1", Type: "schedule", Body: "moved to 6pm"})

	if ev := mustEvent(t, host.Events, EventNotification); ev.Notification.ID != "n1" {
		t.Fatalf("host missed fan-out: %+v", ev.Notification)
	}
	if ev := mustEvent(t, enrollee.Events, EventNotification); ev.Notification.ID != "n1" {
		t.Fatalf("enrollee missed fan-out: %+v", ev.Notification)
	}

	hub.NotifyUser("us", &Notification{ID: "fence"})
	if ev := mustEvent(t, stranger.Events, EventNotification); ev.Notification.ID != "fence" {
		t.Fatalf("fan-out leaked to non-participant: %+v", ev.Notification)
	}
}
