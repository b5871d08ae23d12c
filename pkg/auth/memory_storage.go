package auth

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStorage is an in-process Storage for development and tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	users map[string]*User
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{users: make(map[string]*User)}
}

func (s *MemoryStorage) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrEmailAlreadyExists
		}
	}
	cp := *user
	cp.PasswordHash = slices.Clone(user.PasswordHash)
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			cp.PasswordHash = slices.Clone(u.PasswordHash)
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStorage) UpdatePasswordHash(_ context.Context, userID string, hash []byte, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = slices.Clone(hash)
	u.UpdatedAt = updatedAt
	return nil
}
