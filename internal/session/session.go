// Package session holds the shopper's bearer token and broadcasts login and
// logout transitions.
package session

import (
	"sort"
	"sync"

	"storefront/internal/domain"
)

// Listener receives the authentication state after every login or logout.
type Listener func(authenticated bool)

type Session struct {
	mu        sync.RWMutex
	token     string
	customer  *domain.Customer
	listeners map[int]Listener
	nextID    int
}

func New() *Session {
	return &Session{listeners: make(map[int]Listener)}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Customer() *domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customer
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Restore loads a previously issued token without notifying listeners.
func (s *Session) Restore(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Login stores the token and notifies listeners. Every call notifies, even
// when the session was already authenticated.
func (s *Session) Login(token string, customer *domain.Customer) {
	s.mu.Lock()
	s.token = token
	s.customer = customer
	s.mu.Unlock()
	s.notify(true)
}

func (s *Session) Logout() {
	s.mu.Lock()
	s.token = ""
	s.customer = nil
	s.mu.Unlock()
	s.notify(false)
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(authenticated bool) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Ints(ids)
	for _, id := range ids {
		s.mu.RLock()
		fn, ok := s.listeners[id]
		s.mu.RUnlock()
		if ok {
			fn(authenticated)
		}
	}
}
