package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kycgate/internal/auth/models"
	"kycgate/pkg/sentinel"
)

// InMemoryStore stores users in memory for tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User // keyed by email
}

// NewMemory constructs an empty in-memory user store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]*models.User)}
}

func (s *InMemoryStore) Create(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	copyUser := *user
	if copyUser.CreatedAt.IsZero() {
		copyUser.CreatedAt = time.Now()
	}
	s.users[user.Email] = &copyUser
	return nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[email]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	copyUser := *user
	return &copyUser, nil
}

func (s *InMemoryStore) LinkVerificationClient(_ context.Context, email, verificationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return false, nil
	}
	if user.VerificationID != "" {
		return false, nil
	}
	user.VerificationID = verificationID
	return true, nil
}
