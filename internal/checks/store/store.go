// Package store persists the verification check ledger.
package store

import (
	"context"

	"github.com/google/uuid"

	"kycgate/internal/checks/models"
)

// Store records verification checks and applies status transitions reported
// by the provider.
type Store interface {
	// Record inserts one ledger entry.
	Record(ctx context.Context, check *models.Check) error
	// RecordPair inserts two ledger entries atomically; either both rows
	// land or neither does.
	RecordPair(ctx context.Context, first, second *models.Check) error
	// UpdateStatus sets the status of the check with the given provider
	// check id. Returns sentinel.ErrNotFound when no such check exists.
	UpdateStatus(ctx context.Context, checkID string, status models.Status) error
	// FindByCheckID looks up a ledger entry by provider check id.
	FindByCheckID(ctx context.Context, checkID string) (*models.Check, error)
	// ListByUser returns a user's checks, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Check, error)
}
