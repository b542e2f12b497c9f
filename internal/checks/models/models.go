package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a verification check as reported by the
// provider. Values mirror the provider's webhook event vocabulary.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusCompleted      Status = "COMPLETED"
	StatusCompletedClear Status = "COMPLETED_CLEAR"
	StatusMatchedConfirm Status = "MATCHED_CONFIRM"
	StatusFailed         Status = "FAILED"
)

// Check is one ledger entry for a provider-side verification check.
// CheckID is the provider's identifier and is the key webhook updates
// arrive under; ID is our own row identity.
type Check struct {
	ID                       uuid.UUID
	ClientID                 string
	DocumentID               string
	UserID                   uuid.UUID
	CheckID                  string
	DocumentType             string
	IsStandardScreeningCheck bool
	IsDocumentCheck          bool
	Status                   Status
	CreatedAt                time.Time
	UpdatedAt                time.Time
}
