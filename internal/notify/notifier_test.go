package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_PublishIsSynchronous(t *testing.T) {
	n := NewNotifier()

	var calls int
	n.Subscribe(func() { calls++ })

	n.Publish()
	assert.Equal(t, 1, calls, "subscribers run before Publish returns")

	n.Publish()
	assert.Equal(t, 2, calls)
}

func TestNotifier_MultipleSubscribers(t *testing.T) {
	n := NewNotifier()

	var a, b int
	n.Subscribe(func() { a++ })
	n.Subscribe(func() { b++ })

	n.Publish()
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := NewNotifier()

	var calls int
	unsubscribe := n.Subscribe(func() { calls++ })

	n.Publish()
	unsubscribe()
	n.Publish()

	assert.Equal(t, 1, calls)
	assert.Zero(t, n.Len())

	// Unsubscribing twice is safe.
	unsubscribe()
}

func TestNotifier_PublishWithNoSubscribers(t *testing.T) {
	n := NewNotifier()
	n.Publish() // must not panic
}

func TestNotifier_SubscribeDuringPublish(t *testing.T) {
	n := NewNotifier()

	var late int
	n.Subscribe(func() {
		// A subscriber registering another subscriber must not
		// deadlock the notifier.
		n.Subscribe(func() { late++ })
	})

	n.Publish()
	assert.Zero(t, late)

	n.Publish()
	assert.Equal(t, 1, late)
}
