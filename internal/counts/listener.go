// Package counts tracks live aggregate favorite counts broadcast over the
// push channel. The override table is a display hint only: it is never
// persisted, never shrinks, and never affects the visitor's own favorite
// membership. A full page load re-fetches true counts from the catalog.
package counts

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/openmeet/favsync/internal/push"
)

// MessageType is the push message type carrying count changes.
const MessageType = "group.count"

// countEvent is the payload of a group.count message.
type countEvent struct {
	GroupID  string `json:"groupId"`
	NewCount int    `json:"newCount"`
}

// Subscriber is the part of the push channel the listener needs.
type Subscriber interface {
	On(msgType string, fn func(push.Message)) (unsubscribe func())
}

// Listener subscribes to count-changed broadcasts and keeps the latest
// known count per group, last write wins. No ordering is assumed from
// the channel; a stale count self-corrects on the next message.
type Listener struct {
	mu        sync.RWMutex
	overrides map[string]int
	unsub     func()
	logger    *log.Logger
	onUpdate  func()
}

// Option configures a Listener.
type Option func(*Listener)

// WithUpdateHook registers fn to run after every accepted count update.
// The view layer uses it to schedule a re-render.
func WithUpdateHook(fn func()) Option {
	return func(l *Listener) {
		l.onUpdate = fn
	}
}

// NewListener subscribes to the channel immediately. Close must be
// called on view teardown to release the subscription.
func NewListener(sub Subscriber, logger *log.Logger, opts ...Option) *Listener {
	if logger == nil {
		logger = log.Default()
	}
	l := &Listener{
		overrides: make(map[string]int),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.unsub = sub.On(MessageType, l.handle)
	return l
}

func (l *Listener) handle(msg push.Message) {
	var ev countEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		l.logger.Debug("count event not decodable, skipping", "err", err)
		return
	}
	if ev.GroupID == "" {
		return
	}

	// Unknown group IDs are stored anyway; they have no visible effect
	// until a matching card is rendered.
	l.mu.Lock()
	l.overrides[ev.GroupID] = ev.NewCount
	l.mu.Unlock()

	if l.onUpdate != nil {
		l.onUpdate()
	}
}

// Get returns the latest broadcast count for a group, if any arrived
// during this view's lifetime.
func (l *Listener) Get(groupID string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.overrides[groupID]
	return n, ok
}

// Len returns the number of groups with an override.
func (l *Listener) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.overrides)
}

// Close unsubscribes from the push channel. Idempotent.
func (l *Listener) Close() {
	l.mu.Lock()
	unsub := l.unsub
	l.unsub = nil
	l.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
