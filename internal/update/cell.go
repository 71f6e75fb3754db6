package update

import "sync"

// StateCell holds the current State for a single writer and any number of
// readers.
//
// Current never blocks on the writer. Every subscriber receives the value
// current at subscription time followed by each later Set, in order and
// without loss. Each subscriber has its own unbounded queue, so a slow
// reader delays only itself.
type StateCell struct {
	mu      sync.RWMutex
	current State
	subs    map[*subscriber]struct{}
}

type subscriber struct {
	mu     sync.Mutex
	queue  []State
	notify chan struct{}
	done   chan struct{}
	out    chan State
	once   sync.Once
}

// NewStateCell returns a cell holding initial (Idle when nil).
func NewStateCell(initial State) *StateCell {
	if initial == nil {
		initial = Idle{}
	}
	return &StateCell{
		current: initial,
		subs:    make(map[*subscriber]struct{}),
	}
}

// Current returns the latest value.
func (c *StateCell) Current() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set replaces the current value and queues it for every subscriber.
func (c *StateCell) Set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
	for sub := range c.subs {
		sub.push(s)
	}
}

// Subscribe returns a stream of values starting with the current one, and a
// cancel func that detaches the subscriber and closes the stream. Cancel is
// safe to call more than once.
func (c *StateCell) Subscribe() (<-chan State, func()) {
	sub := &subscriber{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan State),
	}

	c.mu.Lock()
	sub.push(c.current)
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	go sub.pump()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, sub)
		c.mu.Unlock()
		sub.stop()
	}
	return sub.out, cancel
}

// Subscribers returns the number of attached subscribers.
func (c *StateCell) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// closeAll detaches every subscriber, closing their streams.
func (c *StateCell) closeAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[*subscriber]struct{})
	c.mu.Unlock()

	for sub := range subs {
		sub.stop()
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) push(st State) {
	s.mu.Lock()
	s.queue = append(s.queue, st)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- next:
		case <-s.done:
			return
		}
	}
}
