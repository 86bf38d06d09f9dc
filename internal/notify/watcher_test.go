package notify

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

// fakeSource is a VersionSource whose version tests bump by hand.
type fakeSource struct {
	version atomic.Int64
}

func (f *fakeSource) DataVersion(_ context.Context) (int64, error) {
	return f.version.Load(), nil
}

func waitForSignal(t *testing.T, ch <-chan struct{}) bool {
	t.Helper()
	select {
	case <-ch:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

func TestWatcher_PublishesOnVersionChange(t *testing.T) {
	src := &fakeSource{}
	notifier := NewNotifier()

	signaled := make(chan struct{}, 1)
	notifier.Subscribe(func() {
		select {
		case signaled <- struct{}{}:
		default:
		}
	})

	w := NewWatcher(src, notifier, 10*time.Millisecond, log.New(io.Discard))
	w.Start()
	defer w.Stop()

	// No change, no signal.
	select {
	case <-signaled:
		t.Fatal("watcher published without a version change")
	case <-time.After(50 * time.Millisecond):
	}

	src.version.Add(1)
	assert.True(t, waitForSignal(t, signaled), "watcher must publish after a foreign write")

	src.version.Add(1)
	assert.True(t, waitForSignal(t, signaled))
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(&fakeSource{}, NewNotifier(), 10*time.Millisecond, log.New(io.Discard))
	w.Start()

	w.Stop()
	w.Stop()

	// Start after Stop stays stopped.
	w.Start()
}
