package relay

import "errors"

var (
	// ErrInvalidRole means a role outside the configured pair was claimed.
	ErrInvalidRole = errors.New("relay: role is not one of the recognized pair")

	// ErrNotJoined means an event arrived from a connection that has not
	// claimed a role yet.
	ErrNotJoined = errors.New("relay: connection has not joined the room")

	// ErrInvalidPayload means an event payload could not be decoded into
	// its expected shape.
	ErrInvalidPayload = errors.New("relay: malformed event payload")
)

// Wire error codes sent back in error acknowledgments.
const (
	CodeInvalidRole    = "invalid-role"
	CodeNotJoined      = "not-joined"
	CodeInvalidPayload = "invalid-payload"
	CodeUnknownEvent   = "unknown-event"
)
