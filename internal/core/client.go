package core

// Client is one socket connection as seen by the hub. Identity fields are
// fixed at handshake time; Commands carries inbound actions in connection
// order, Events carries outbound notifications.
type Client struct {
	ConnID   string
	UserID   string
	Username string
	Role     Role

	Commands chan *Command
	Events   chan *Event

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(connID, userID, username string, role Role) *Client {
	if username == "" {
		username = userID
	}
	return &Client{
		ConnID:   connID,
		UserID:   userID,
		Username: username,
		Role:     role,
		Commands: make(chan *Command, 8),
		// Events is buffered generously: a single join emits a burst of
		// roster, status, history and share events before the write loop
		// catches up.
		Events: make(chan *Event, 64),
		done:   make(chan struct{}),
	}
}

// Send delivers an event to the client, dropping it if the consumer is slow.
func (c *Client) Send(event *Event) {
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
