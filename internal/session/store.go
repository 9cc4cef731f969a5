package session

import (
	"sync"

	"github.com/sabowaryan/sabowaryantech/internal/platform/metrics"
)

const storeName = "session"

// State is the authentication state of a Store.
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// Store holds at most one signed-in user. A held session implies StateAuthenticated.
type Store struct {
	mu      sync.RWMutex
	user    *User
	session *Session
	metrics *metrics.Metrics
}

// NewStore creates an anonymous Store.
func NewStore(m *metrics.Metrics) *Store {
	return &Store{metrics: m}
}

// Login signs user in. Logging in while authenticated replaces the current user.
func (s *Store) Login(user User, session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Mutation(storeName, "login")
	s.user = &user
	s.session = &session
}

// Logout signs the current user out. It does nothing when anonymous.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Mutation(storeName, "logout")
	s.user = nil
	s.session = nil
}

// Current returns the signed-in user and session.
func (s *Store) Current() (User, Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, Session{}, false
	}
	return *s.user, *s.session, true
}

func (s *Store) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return StateAnonymous
	}
	return StateAuthenticated
}
