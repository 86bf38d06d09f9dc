// Package push provides the client side of the real-time fan-out channel:
// a long-lived WebSocket carrying typed JSON envelopes. Delivery is
// at-most-once, best-effort; missed messages are not replayed after a
// reconnect, so consumers must treat messages as hints and re-fetch
// authoritative state on their own schedule.
package push

import "encoding/json"

// Message is the wire envelope for one push event.
type Message struct {
	// Type routes the message to subscribed handlers, e.g. "group.count".
	Type string `json:"type"`

	// Data is the type-specific payload, decoded by the handler.
	Data json.RawMessage `json:"data"`
}

// State represents the connection state of the channel.
type State int

const (
	// StateDisconnected means no connection is established.
	StateDisconnected State = iota
	// StateConnecting means a connection attempt is in progress.
	StateConnecting
	// StateConnected means the channel is live.
	StateConnected
	// StateClosed means the channel was closed and will not reconnect.
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
