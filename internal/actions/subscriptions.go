package actions

import (
	"sync"

	"newsboard/internal/realtime"
)

// Subscriptions tracks the standing profile listeners attached by the auth
// watcher. At most one listener is kept per uid.
type Subscriptions struct {
	mu       sync.Mutex
	profiles map[string]*realtime.Listener
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{profiles: make(map[string]*realtime.Listener)}
}

// AttachProfile records l as the profile listener of uid, detaching the one
// it replaces.
func (s *Subscriptions) AttachProfile(uid string, l *realtime.Listener) {
	s.mu.Lock()
	old := s.profiles[uid]
	s.profiles[uid] = l
	s.mu.Unlock()

	if old != nil && old != l {
		old.Off()
	}
}

// DetachProfiles detaches every profile listener.
func (s *Subscriptions) DetachProfiles() {
	s.mu.Lock()
	ls := s.profiles
	s.profiles = make(map[string]*realtime.Listener)
	s.mu.Unlock()

	for _, l := range ls {
		l.Off()
	}
}

func (s *Subscriptions) Profiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}
