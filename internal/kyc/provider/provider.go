// Package provider defines the interface to the external identity
// verification provider and its HTTP implementation.
package provider

import "context"

// Check types accepted by the provider.
const (
	CheckTypeStandardScreening = "standard_screening_check"
	CheckTypeDocument          = "document_check"
)

// NewClient holds the identity details needed to create a provider-side client.
type NewClient struct {
	FirstName string
	LastName  string
	Email     string
}

// CheckRequest describes a verification check to run against a client.
// DocumentID is only set for document checks.
type CheckRequest struct {
	ClientID   string
	Type       string
	DocumentID string
}

// CheckResult is the provider's acknowledgement of a created check.
type CheckResult struct {
	ID     string
	Status string
}

// Provider is the outbound surface of the verification provider.
//
//go:generate mockgen -source=provider.go -destination=mocks/provider_mock.go -package=mocks
type Provider interface {
	// CreateClient registers a person with the provider and returns the
	// provider's client id.
	CreateClient(ctx context.Context, client NewClient) (string, error)

	// GenerateToken mints a short-lived capture token scoped to a client.
	GenerateToken(ctx context.Context, clientID, referrer string) (string, error)

	// CreateCheck starts a verification check against a client.
	CreateCheck(ctx context.Context, req CheckRequest) (*CheckResult, error)
}
