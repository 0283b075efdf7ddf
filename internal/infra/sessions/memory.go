package sessions

import (
	"context"
	"sync"
	"time"

	domainauth "tradepost/internal/domain/auth"
	domainuser "tradepost/internal/domain/user"
)

// MemoryStore is the single-process session store used in dev and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[domainauth.Token]*domainauth.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[domainauth.Token]*domainauth.Session{}}
}

func (s *MemoryStore) Save(_ context.Context, session *domainauth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	copied.Roles = append([]domainuser.Role(nil), session.Roles...)
	s.sessions[session.Token] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok || session.Expired(time.Now()) {
		return nil, domainauth.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

var _ domainauth.SessionStore = (*MemoryStore)(nil)
