package feedback

import (
	"context"
	"sync"
)

// Repository is the storage contract of the feedback board. Every method
// returns either nil or an *Error of kind Validation, Schema or Connection.
type Repository interface {
	// ListAll returns every entry, newest first. An empty table yields an
	// empty slice and no error.
	ListAll(ctx context.Context) ([]Entry, error)

	// Insert validates its input locally and then stores one entry.
	Insert(ctx context.Context, name, message string, rating int) error

	// SubscribeInserts calls fn once per row inserted after registration, in
	// the order the store delivers them. Closing the returned handle stops
	// delivery.
	SubscribeInserts(ctx context.Context, fn func(Entry)) (*Subscription, error)
}

// Subscription is a live insert registration. Close is idempotent, safe to
// call from any goroutine other than the callback itself, and once it
// returns no further callback runs.
type Subscription struct {
	mu     sync.RWMutex
	closed bool
	once   sync.Once
	stop   func()
}

// NewSubscription wraps a backend's release function. stop runs exactly
// once, after delivery has been shut off.
func NewSubscription(stop func()) *Subscription {
	return &Subscription{stop: stop}
}

// Deliver runs fn unless the subscription is closed and reports whether it
// ran. Backends route every callback through Deliver.
func (s *Subscription) Deliver(fn func()) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

// Close releases the subscription. It waits for a callback already in
// progress to return.
func (s *Subscription) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.stop != nil {
			s.stop()
		}
	})
	return nil
}

// Closed reports whether Close has been called.
func (s *Subscription) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
