package feedback

import "sync"

// Broker fans inserts out to in-process subscribers. Backends without a
// native change feed publish through it after a successful insert.
// Each subscriber has its own unbounded queue and delivery goroutine, so a
// slow callback never drops or reorders events for itself or others.
type Broker struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]*brokerSub
}

type brokerSub struct {
	fn    func(Entry)
	sub   *Subscription
	mu    sync.Mutex
	queue []Entry
	wake  chan struct{}
	quit  chan struct{}
	done  chan struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]*brokerSub)}
}

// Subscribe registers fn for every entry published after this call.
func (b *Broker) Subscribe(fn func(Entry)) *Subscription {
	bs := &brokerSub{
		fn:   fn,
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = bs
	b.mu.Unlock()

	bs.sub = NewSubscription(func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(bs.quit)
		<-bs.done
	})
	go bs.run()
	return bs.sub
}

// Publish queues e for every current subscriber.
func (b *Broker) Publish(e Entry) {
	b.mu.Lock()
	targets := make([]*brokerSub, 0, len(b.subs))
	for _, s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		s.push(e)
	}
}

// Len returns the number of live subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (s *brokerSub) push(e Entry) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *brokerSub) pop() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return Entry{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

func (s *brokerSub) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}
		for {
			e, ok := s.pop()
			if !ok {
				break
			}
			if !s.sub.Deliver(func() { s.fn(e) }) {
				return
			}
		}
	}
}
