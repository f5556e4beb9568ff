package auth

import (
	"context"
	"strings"
	"sync"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// Create stores a new user. Returns ErrUsernameTaken on a duplicate username.
	Create(ctx context.Context, user *User) error

	// FindByID finds a user by ID.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByUsername finds a user by username.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Update saves username, password hash and updated_at.
	// Returns ErrUsernameTaken on a duplicate username.
	Update(ctx context.Context, user *User) error
}

// InMemoryUserRepository is an in-memory implementation of UserRepository.
type InMemoryUserRepository struct {
	mu         sync.RWMutex
	users      map[string]*User  // keyed by user ID
	byUsername map[string]string // lowercased username -> user ID
}

var _ UserRepository = (*InMemoryUserRepository)(nil)

// NewInMemoryUserRepository creates a new in-memory user repository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:      make(map[string]*User),
		byUsername: make(map[string]string),
	}
}

// Create creates a new user.
func (r *InMemoryUserRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, taken := r.byUsername[key]; taken {
		return ErrUsernameTaken
	}

	userCopy := *user
	r.users[user.ID] = &userCopy
	r.byUsername[key] = user.ID
	return nil
}

// FindByID finds a user by their ID.
func (r *InMemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

// FindByUsername finds a user by username, ignoring case.
func (r *InMemoryUserRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, ErrUserNotFound
	}
	userCopy := *r.users[id]
	return &userCopy, nil
}

// Update saves changes to an existing user.
func (r *InMemoryUserRepository) Update(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}

	oldKey := strings.ToLower(existing.Username)
	newKey := strings.ToLower(user.Username)
	if newKey != oldKey {
		if _, taken := r.byUsername[newKey]; taken {
			return ErrUsernameTaken
		}
		delete(r.byUsername, oldKey)
		r.byUsername[newKey] = user.ID
	}

	userCopy := *user
	r.users[user.ID] = &userCopy
	return nil
}
