// Package service orchestrates verification flows against the external
// provider: linking users to provider clients, minting capture tokens, and
// running document submissions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	authmodels "kycgate/internal/auth/models"
	authstore "kycgate/internal/auth/store"
	checkmodels "kycgate/internal/checks/models"
	checkstore "kycgate/internal/checks/store"
	"kycgate/internal/kyc/provider"
	"kycgate/internal/platform/metrics"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/sentinel"
)

// Service implements the verification workflows.
type Service struct {
	users    authstore.Store
	checks   checkstore.Store
	provider provider.Provider
	referrer string
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// linkGroup collapses concurrent client creations for the same user
	// within this process. The database's conditional update remains the
	// cross-process authority.
	linkGroup singleflight.Group
}

// New creates a verification Service. referrer is the origin pattern embedded
// in capture tokens so the provider's web SDK accepts them.
func New(users authstore.Store, checks checkstore.Store, p provider.Provider, referrer string, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		users:    users,
		checks:   checks,
		provider: p,
		referrer: referrer,
		logger:   logger,
		metrics:  m,
	}
}

// AccessToken returns a capture token for the user's verification client,
// creating and linking the client on first use.
func (s *Service) AccessToken(ctx context.Context, email string) (string, error) {
	clientID, err := s.ensureClient(ctx, email)
	if err != nil {
		return "", err
	}

	token, err := s.provider.GenerateToken(ctx, clientID, s.referrer)
	if err != nil {
		return "", err
	}

	s.metrics.IncrementTokenRequests()
	return token, nil
}

// CaptureResult is the outcome of a document submission: the two checks the
// provider acknowledged.
type CaptureResult struct {
	ScreeningCheck *provider.CheckResult
	DocumentCheck  *provider.CheckResult
}

// CaptureDocument runs a standard screening check and a document check
// against the user's linked client, and records both in the ledger
// atomically. Users without a linked client are rejected before any
// provider call.
func (s *Service) CaptureDocument(ctx context.Context, email, documentID, documentType string) (*CaptureResult, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.HasVerificationClient() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no verification client linked; request an access token first")
	}

	screening, err := s.provider.CreateCheck(ctx, provider.CheckRequest{
		ClientID: user.VerificationID,
		Type:     provider.CheckTypeStandardScreening,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementChecksCreated(provider.CheckTypeStandardScreening)

	document, err := s.provider.CreateCheck(ctx, provider.CheckRequest{
		ClientID:   user.VerificationID,
		Type:       provider.CheckTypeDocument,
		DocumentID: documentID,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementChecksCreated(provider.CheckTypeDocument)

	screeningEntry := &checkmodels.Check{
		ID:                       uuid.New(),
		ClientID:                 user.VerificationID,
		UserID:                   user.ID,
		CheckID:                  screening.ID,
		DocumentType:             documentType,
		IsStandardScreeningCheck: true,
		Status:                   checkmodels.StatusPending,
	}
	documentEntry := &checkmodels.Check{
		ID:              uuid.New(),
		ClientID:        user.VerificationID,
		DocumentID:      documentID,
		UserID:          user.ID,
		CheckID:         document.ID,
		DocumentType:    documentType,
		IsDocumentCheck: true,
		Status:          checkmodels.StatusPending,
	}
	if err := s.checks.RecordPair(ctx, screeningEntry, documentEntry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record checks",
			"screening_check_id", screening.ID,
			"document_check_id", document.ID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not record checks")
	}

	return &CaptureResult{ScreeningCheck: screening, DocumentCheck: document}, nil
}

// Checks returns the user's ledger entries, newest first.
func (s *Service) Checks(ctx context.Context, email string) ([]*checkmodels.Check, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	list, err := s.checks.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list checks")
	}
	return list, nil
}

// ensureClient returns the provider client id linked to the user, creating
// one if the user has none yet. Creation is create-once-reuse: the
// conditional link write decides the winner, and a loser discards its
// provider client and adopts the stored id.
func (s *Service) ensureClient(ctx context.Context, email string) (string, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return "", err
	}
	if user.HasVerificationClient() {
		return user.VerificationID, nil
	}

	v, err, _ := s.linkGroup.Do(email, func() (any, error) {
		return s.createAndLinkClient(ctx, user)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Service) createAndLinkClient(ctx context.Context, user *authmodels.User) (string, error) {
	clientID, err := s.provider.CreateClient(ctx, provider.NewClient{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	})
	if err != nil {
		return "", err
	}

	linked, err := s.users.LinkVerificationClient(ctx, user.Email, clientID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not link verification client")
	}
	if linked {
		s.logger.InfoContext(ctx, "verification client linked",
			"user_id", user.ID,
			"client_id", clientID,
		)
		return clientID, nil
	}

	// Lost the race: another request linked a client first. The stored id
	// wins; the client we just created is orphaned on the provider side.
	current, err := s.findUser(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if !current.HasVerificationClient() {
		return "", dErrors.New(dErrors.CodeInternal, fmt.Sprintf("verification client link lost for user %s but none stored", user.ID))
	}
	s.logger.WarnContext(ctx, "discarding duplicate verification client",
		"user_id", user.ID,
		"orphaned_client_id", clientID,
		"linked_client_id", current.VerificationID,
	)
	return current.VerificationID, nil
}

func (s *Service) findUser(ctx context.Context, email string) (*authmodels.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up user")
	}
	return user, nil
}
