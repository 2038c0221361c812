package core

// Registry owns every live Room, keyed by channel. Entries are created
// lazily on first join and garbage-collected when the roster empties; memory
// is reference-counted purely by presence, there is no TTL.
//
// A secondary index maps connection ids to channels so a disconnect, which
// does not announce its channel, resolves its room without scanning.
type Registry struct {
	rooms  map[string]*Room
	byConn map[string]string
}

// NewRegistry constructs an empty registry. Each registry instance is
// independent; callers inject it where needed.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		byConn: make(map[string]string),
	}
}

// GetOrCreate returns the room for channel, creating it if absent. Repeated
// calls with the same channel return the same room.
func (g *Registry) GetOrCreate(channel string) *Room {
	if room, ok := g.rooms[channel]; ok {
		return room
	}
	room := NewRoom(channel)
	g.rooms[channel] = room
	return room
}

// Lookup returns the room for channel without creating it.
func (g *Registry) Lookup(channel string) (*Room, bool) {
	room, ok := g.rooms[channel]
	return room, ok
}

// RemoveIfEmpty deletes the room iff its roster is empty. Returns true if
// the entry was deleted.
func (g *Registry) RemoveIfEmpty(channel string) bool {
	room, ok := g.rooms[channel]
	if !ok || !room.Empty() {
		return false
	}
	delete(g.rooms, channel)
	return true
}

// BindConn records which channel a connection joined. Maintained alongside
// every roster mutation.
func (g *Registry) BindConn(connID, channel string) {
	g.byConn[connID] = channel
}

// UnbindConn drops the connection's channel binding.
func (g *Registry) UnbindConn(connID string) {
	delete(g.byConn, connID)
}

// RoomByConn resolves the room a connection is joined to, if any.
func (g *Registry) RoomByConn(connID string) (*Room, bool) {
	channel, ok := g.byConn[connID]
	if !ok {
		return nil, false
	}
	room, ok := g.rooms[channel]
	return room, ok
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	return len(g.rooms)
}
