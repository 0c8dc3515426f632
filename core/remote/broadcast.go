package remote

import "sync"

type notice struct {
	event   AuthEvent
	session *Session
}

// Broadcaster fans session-change notifications out to subscribers.
// Every subscriber gets its own goroutine and receives notices in emission order;
// Emit never blocks on a slow listener.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber
}

func (b *Broadcaster) Subscribe(listener AuthListener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[int]*subscriber)
	}
	b.next++
	sub := &subscriber{
		id:       b.next,
		b:        b,
		listener: listener,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	b.subs[sub.id] = sub
	go sub.run()
	return sub
}

func (b *Broadcaster) Emit(event AuthEvent, session *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.push(notice{event: event, session: session.Clone()})
	}
}

// Len returns the number of live subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(id int) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

type subscriber struct {
	id       int
	b        *Broadcaster
	listener AuthListener

	mu    sync.Mutex
	queue []notice
	wake  chan struct{}
	quit  chan struct{}
	once  sync.Once
}

func (s *subscriber) push(n notice) {
	s.mu.Lock()
	s.queue = append(s.queue, n)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pop() (notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return notice{}, false
	}
	n := s.queue[0]
	s.queue = s.queue[1:]
	return n, true
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.quit:
			return
		case <-s.wake:
		}
		for {
			n, ok := s.pop()
			if !ok {
				break
			}
			select {
			case <-s.quit:
				return
			default:
			}
			s.listener(n.event, n.session)
		}
	}
}

func (s *subscriber) Unsubscribe() {
	s.once.Do(func() {
		s.b.remove(s.id)
		close(s.quit)
	})
}

// SessionState holds the current session of an Auth implementation and notifies subscribers of its changes.
type SessionState struct {
	Broadcaster

	mu      sync.RWMutex
	current *Session
}

func (st *SessionState) Get() *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current.Clone()
}

// Set replaces the current session and emits event.
func (st *SessionState) Set(event AuthEvent, s *Session) {
	st.mu.Lock()
	st.current = s.Clone()
	st.mu.Unlock()
	st.Emit(event, s)
}

// Clear drops the current session and emits EventSignedOut if there was one.
func (st *SessionState) Clear() {
	st.mu.Lock()
	had := st.current != nil
	st.current = nil
	st.mu.Unlock()
	if had {
		st.Emit(EventSignedOut, nil)
	}
}
