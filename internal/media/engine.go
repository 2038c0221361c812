package media

import "context"

// JoinInfo contains the credentials a participant needs to attach to the
// media backend for a live room.
type JoinInfo struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	RoomName string `json:"room_name"`
	Identity string `json:"identity"`
}

// Engine abstracts the RTC media backend. The coordinator only mints join
// credentials; room lifecycle on the media side is driven by the clients.
type Engine interface {
	// JoinToken creates join credentials for a participant. host controls
	// publish permissions on backends that distinguish presenter roles.
	JoinToken(ctx context.Context, channel, identity, displayName string, host bool) (*JoinInfo, error)
}
