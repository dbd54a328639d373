// Package notifier fans state-change pings out to open SSE streams.
package notifier

import "sync"

// Subscription is one listener. C receives a ping when the watched state has
// changed; the listener re-reads the state itself, so pings carry no data and
// coalesce while C is full.
type Subscription struct {
	C <-chan struct{}

	ch    chan struct{}
	n     *Notifier
	close sync.Once
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.close.Do(func() {
		s.n.mu.Lock()
		delete(s.n.listeners, s)
		s.n.mu.Unlock()
	})
}

// Notifier pings every open subscription.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[*Subscription]struct{}
}

// New creates a Notifier with no listeners.
func New() *Notifier {
	return &Notifier{listeners: make(map[*Subscription]struct{})}
}

// Subscribe opens a subscription. Callers must Close it.
func (n *Notifier) Subscribe() *Subscription {
	ch := make(chan struct{}, 1)
	s := &Subscription{C: ch, ch: ch, n: n}
	n.mu.Lock()
	n.listeners[s] = struct{}{}
	n.mu.Unlock()
	return s
}

// Broadcast pings every listener without blocking and returns how many
// listeners there were.
func (n *Notifier) Broadcast() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for s := range n.listeners {
		select {
		case s.ch <- struct{}{}:
		default:
			// already pending
		}
	}
	return len(n.listeners)
}

// Listeners returns the number of open subscriptions.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
