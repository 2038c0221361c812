package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sessionly/liveroom-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// collectUntil drains events until one of the given kind arrives, returning
// everything received up to and including it.
func collectUntil(t *testing.T, ch <-chan *Event, kind EventKind) []*Event {
	t.Helper()

	var events []*Event
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			events = append(events, ev)
			if ev.Kind == kind {
				return events
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received; got %d events", kind, len(events))
	return nil
}

func startHub(t *testing.T, st store.Store) *Hub {
	t.Helper()

	hub := NewHub(st, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// fakeStore is an in-memory store.Store for hub tests. failAppend simulates
// a durable-write outage for chat.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	messages   map[string][]*store.ChatMessage
	attendees  map[string]map[string]*store.Attendee
	rooms      map[string]*store.Room
	enrolled   map[string][]string
	failAppend bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages:  make(map[string][]*store.ChatMessage),
		attendees: make(map[string]map[string]*store.Attendee),
		rooms:     make(map[string]*store.Room),
		enrolled:  make(map[string][]string),
	}
}

func logKey(roomID, sessionID string) string { return roomID + "\x00" + sessionID }

func (f *fakeStore) AppendMessage(_ context.Context, msg *store.ChatMessage) (*store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend {
		return nil, errors.New("store unavailable")
	}
	f.nextID++
	saved := *msg
	saved.ID = f.nextID
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}
	key := logKey(msg.RoomID, msg.SessionID)
	f.messages[key] = append(f.messages[key], &saved)
	return &saved, nil
}

func (f *fakeStore) ListMessages(_ context.Context, roomID, sessionID string) ([]*store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	src := f.messages[logKey(roomID, sessionID)]
	out := make([]*store.ChatMessage, len(src))
	copy(out, src)
	return out, nil
}

func (f *fakeStore) UpsertAttendee(_ context.Context, sessionID string, a *store.Attendee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.attendees[sessionID]
	if !ok {
		set = make(map[string]*store.Attendee)
		f.attendees[sessionID] = set
	}
	cp := *a
	set[a.UserID] = &cp
	return nil
}

func (f *fakeStore) RemoveAttendee(_ context.Context, sessionID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attendees[sessionID], userID)
	return nil
}

func (f *fakeStore) ListAttendees(_ context.Context, sessionID string) ([]*store.Attendee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.Attendee
	for _, a := range f.attendees[sessionID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) GetRoom(_ context.Context, id string) (*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *room
	return &cp, nil
}

func (f *fakeStore) ListEnrolled(_ context.Context, roomID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.enrolled[roomID]))
	copy(out, f.enrolled[roomID])
	return out, nil
}

func (f *fakeStore) CreateRoom(_ context.Context, room *store.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *room
	f.rooms[room.ID] = &cp
	return nil
}

func (f *fakeStore) Enroll(_ context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrolled[roomID] = append(f.enrolled[roomID], userID)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) attendeeCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attendees[sessionID])
}

func (f *fakeStore) setFailAppend(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAppend = fail
}

var _ store.Store = (*fakeStore)(nil)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
