package hub

import "errors"

var (
	// ErrDuplicateConnection is returned when a connection id is registered
	// twice. The original registration wins.
	ErrDuplicateConnection = errors.New("hub: duplicate connection")

	// ErrUnknownConnection is returned when an operation references a
	// connection id that is not in the registry. Late-arriving messages after
	// a disconnect are expected to hit this; callers treat it as a no-op.
	ErrUnknownConnection = errors.New("hub: unknown connection")

	// ErrNotAuthenticated is returned when a connection tries to subscribe
	// before authenticating.
	ErrNotAuthenticated = errors.New("hub: connection not authenticated")

	// ErrHubClosed is returned once shutdown has begun; no new registrations
	// or events are accepted.
	ErrHubClosed = errors.New("hub: closed")
)
