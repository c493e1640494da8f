package bridge

import "github.com/trendlab/pulse/src/types"

// Bridge relays events between server instances so a client connected to
// one instance still sees events submitted on another.
type Bridge interface {
	// Publish sends an event to all other instances.
	Publish(ev types.Event) error

	// Start begins listening for events from other instances.
	Start() error

	// Stop shuts down the bridge connection.
	Stop() error

	// Available reports whether the bridge is connected and operational.
	Available() bool
}

// EventTarget is implemented by the hub to receive relayed events. Relayed
// events are dispatched locally only; they are never re-published.
type EventTarget interface {
	SubmitLocal(ev types.Event) error
}
