package store

import (
	"context"

	"kycgate/internal/auth/models"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrConflict when a uniqueness constraint is violated
// - Return wrapped errors with context for infrastructure failures

// Store persists user records.
type Store interface {
	// Create inserts a new user. Fails with sentinel.ErrConflict when the
	// email is already registered.
	Create(ctx context.Context, user *models.User) error

	// FindByEmail returns the stored record or sentinel.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// LinkVerificationClient sets the verification client identifier if and
	// only if none is set yet, as a single atomic conditional write. It
	// reports whether the link was applied; false means another writer won
	// the race and the caller should re-read the stored identifier.
	LinkVerificationClient(ctx context.Context, email, verificationID string) (bool, error)
}
