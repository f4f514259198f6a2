package memory

import (
	"context"
	"strings"
	"sync"

	"codegaming-service/internal/domain"
)

// UserRepository is an in-memory implementation of auth.UserRepository.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

func (r *UserRepository) CreateUser(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.Username)
	if _, ok := r.users[key]; ok {
		return domain.ErrUsernameTaken
	}
	r.nextID++
	user.ID = r.nextID
	r.users[key] = *user
	return nil
}

func (r *UserRepository) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[strings.ToLower(username)]
	if !ok {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}
