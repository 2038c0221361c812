package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotInRoom    = "not_in_room"
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeChatFailed   = "chat_failed"
	ErrCodeUnauthorized = "unauthorized"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotInRoom    = errors.New("not in room")
	ErrRoomNotFound = errors.New("room not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
