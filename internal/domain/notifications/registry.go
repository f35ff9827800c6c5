package notifications

import "sync"

// Registry tracks live sessions per user and fans notifications out to them.
// Publishing never blocks: a session whose buffer is full misses the event and
// catches up from the inbox.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
	buffer   int
}

type Session struct {
	UserID string
	ch     chan Notification
	once   sync.Once
}

// C delivers notifications until the session is closed.
func (s *Session) C() <-chan Notification {
	return s.ch
}

func NewRegistry(buffer int) *Registry {
	if buffer <= 0 {
		buffer = 16
	}
	return &Registry{sessions: map[string]map[*Session]struct{}{}, buffer: buffer}
}

func (r *Registry) Subscribe(userID string) *Session {
	s := &Session{UserID: userID, ch: make(chan Notification, r.buffer)}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[userID] == nil {
		r.sessions[userID] = map[*Session]struct{}{}
	}
	r.sessions[userID][s] = struct{}{}
	return s
}

func (r *Registry) Unsubscribe(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(s)
}

func (r *Registry) remove(s *Session) {
	if set, ok := r.sessions[s.UserID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(r.sessions, s.UserID)
		}
	}
	s.once.Do(func() { close(s.ch) })
}

// Publish returns the number of sessions that received n.
func (r *Registry) Publish(userID string, n Notification) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	delivered := 0
	for s := range r.sessions[userID] {
		select {
		case s.ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID])
}

// Close ends every session, e.g. on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, set := range r.sessions {
		for s := range set {
			r.remove(s)
		}
	}
}
