package memory

import (
	"context"
	"sync"

	domainuser "tradepost/internal/domain/user"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[domainuser.ID]*domainuser.User
	byEmail map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    map[domainuser.ID]*domainuser.User{},
		byEmail: map[string]domainuser.ID{},
	}
}

func (r *UserRepository) ByID(_ context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *UserRepository) ByEmail(_ context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return r.get(id)
}

func (r *UserRepository) Save(_ context.Context, u *domainuser.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byEmail[u.Email]; ok && existing != u.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	copied := *u
	copied.Roles = append([]domainuser.Role(nil), u.Roles...)
	r.byID[u.ID] = &copied
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) get(id domainuser.ID) (*domainuser.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	copied := *u
	copied.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &copied, nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
