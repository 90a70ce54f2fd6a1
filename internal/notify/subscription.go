package notify

import "sync"

// Subscription is the handle for one live subscription. Closing it
// unregisters the listener; the owning component ties the handle's lifetime
// to its own instead of doing manual unregister bookkeeping.
type Subscription struct {
	topic    string
	once     sync.Once
	unsub    func()
	done     chan struct{}
	doneOnce sync.Once
}

func newSubscription(topic string, unsub func()) *Subscription {
	return &Subscription{
		topic: topic,
		unsub: unsub,
		done:  make(chan struct{}),
	}
}

// Topic names the subscribed channel, for logging.
func (s *Subscription) Topic() string {
	return s.topic
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.unsub)
}

// Done is closed once the receive loop has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
