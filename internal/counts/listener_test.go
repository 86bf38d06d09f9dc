package counts

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"github.com/openmeet/favsync/internal/push"
)

// fakeChannel implements Subscriber and lets tests inject messages.
type fakeChannel struct {
	handlers map[string][]func(push.Message)
	unsubbed int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[string][]func(push.Message))}
}

func (f *fakeChannel) On(msgType string, fn func(push.Message)) func() {
	f.handlers[msgType] = append(f.handlers[msgType], fn)
	return func() { f.unsubbed++ }
}

func (f *fakeChannel) emit(msgType string, data string) {
	for _, fn := range f.handlers[msgType] {
		fn(push.Message{Type: msgType, Data: json.RawMessage(data)})
	}
}

func TestListener_TracksLatestCount(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(ch, log.New(io.Discard))
	defer l.Close()

	_, ok := l.Get("tampa-js")
	assert.False(t, ok, "no override until a message arrives")

	ch.emit(MessageType, `{"groupId": "tampa-js", "newCount": 12}`)

	n, ok := l.Get("tampa-js")
	assert.True(t, ok)
	assert.Equal(t, 12, n)
}

func TestListener_LastWriteWins(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(ch, log.New(io.Discard))
	defer l.Close()

	ch.emit(MessageType, `{"groupId": "grp-1", "newCount": 5}`)
	ch.emit(MessageType, `{"groupId": "grp-1", "newCount": 3}`)

	// No ordering validation: the last applied message wins even if it
	// carries a lower count.
	n, _ := l.Get("grp-1")
	assert.Equal(t, 3, n)
}

func TestListener_UnknownGroupIsStoredSilently(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(ch, log.New(io.Discard))
	defer l.Close()

	ch.emit(MessageType, `{"groupId": "never-rendered", "newCount": 7}`)

	n, ok := l.Get("never-rendered")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	assert.Equal(t, 1, l.Len())
}

func TestListener_MalformedPayloadIsSkipped(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(ch, log.New(io.Discard))
	defer l.Close()

	ch.emit(MessageType, `not json`)
	ch.emit(MessageType, `{"newCount": 9}`) // missing groupId

	assert.Zero(t, l.Len())
}

func TestListener_UpdateHook(t *testing.T) {
	ch := newFakeChannel()

	var updates int
	l := NewListener(ch, log.New(io.Discard), WithUpdateHook(func() { updates++ }))
	defer l.Close()

	ch.emit(MessageType, `{"groupId": "grp-1", "newCount": 1}`)
	ch.emit(MessageType, `{"groupId": "grp-1", "newCount": 2}`)
	ch.emit(MessageType, `bogus`)

	assert.Equal(t, 2, updates, "the hook fires only for accepted updates")
}

func TestListener_CloseUnsubscribes(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(ch, log.New(io.Discard))

	l.Close()
	assert.Equal(t, 1, ch.unsubbed)

	// Idempotent.
	l.Close()
	assert.Equal(t, 1, ch.unsubbed)
}
