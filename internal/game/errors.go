package game

import "errors"

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRateLimited    = errors.New("rate limited")
	ErrInvalidState   = errors.New("invalid state")
)

// RoomError is a rejection the sender is told about through a roomError
// event. Kind is one of the sentinel errors above, so errors.Is still works.
type RoomError struct {
	Kind    error
	Type    string
	Message string
}

func (e *RoomError) Error() string {
	return e.Kind.Error() + ": " + e.Message
}

func (e *RoomError) Unwrap() error {
	return e.Kind
}

func roomNotFound() *RoomError {
	return &RoomError{Kind: ErrNotFound, Type: "room_not_found", Message: "room does not exist"}
}

func invalidData(msg string) *RoomError {
	return &RoomError{Kind: ErrInvalidPayload, Type: "invalid_data", Message: msg}
}
