package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kycgate/internal/checks/models"
	"kycgate/pkg/sentinel"
)

// InMemoryStore keeps the check ledger in memory for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	checks map[string]*models.Check // keyed by provider check id
}

// NewMemory constructs an empty in-memory check store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{checks: make(map[string]*models.Check)}
}

func (s *InMemoryStore) Record(_ context.Context, check *models.Check) error {
	if check == nil {
		return fmt.Errorf("check is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(check)
	return nil
}

func (s *InMemoryStore) RecordPair(_ context.Context, first, second *models.Check) error {
	if first == nil || second == nil {
		return fmt.Errorf("both checks are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(first)
	s.record(second)
	return nil
}

func (s *InMemoryStore) record(check *models.Check) {
	copyCheck := *check
	now := time.Now()
	if copyCheck.CreatedAt.IsZero() {
		copyCheck.CreatedAt = now
	}
	if copyCheck.UpdatedAt.IsZero() {
		copyCheck.UpdatedAt = now
	}
	s.checks[check.CheckID] = &copyCheck
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, checkID string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	check, ok := s.checks[checkID]
	if !ok {
		return fmt.Errorf("check %s not found: %w", checkID, sentinel.ErrNotFound)
	}
	check.Status = status
	check.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) FindByCheckID(_ context.Context, checkID string) (*models.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	check, ok := s.checks[checkID]
	if !ok {
		return nil, fmt.Errorf("check %s not found: %w", checkID, sentinel.ErrNotFound)
	}
	copyCheck := *check
	return &copyCheck, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var checks []*models.Check
	for _, check := range s.checks {
		if check.UserID == userID {
			copyCheck := *check
			checks = append(checks, &copyCheck)
		}
	}
	sort.Slice(checks, func(i, j int) bool {
		return checks[i].CreatedAt.After(checks[j].CreatedAt)
	})
	return checks, nil
}
