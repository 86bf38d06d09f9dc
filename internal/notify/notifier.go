// Package notify fans out "the favorite set changed" signals. The signal
// carries no payload: observers re-read the store on receipt, so it does
// not matter which channel delivered it.
package notify

import "sync"

// Notifier is the same-process change channel. Publish invokes every
// subscriber synchronously, so a mutation made in this process is
// observable by its own components immediately, without waiting for the
// cross-process watcher (which never sees our own writes).
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func())}
}

// Subscribe registers fn to run on every Publish. The returned function
// removes the subscription; calling it more than once is safe.
func (n *Notifier) Subscribe(fn func()) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Publish invokes every subscriber synchronously, in no particular order.
func (n *Notifier) Publish() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
