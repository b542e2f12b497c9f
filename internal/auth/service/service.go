package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"kycgate/internal/auth/models"
	"kycgate/internal/auth/store"
	"kycgate/internal/platform/metrics"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/secrets"
	"kycgate/pkg/sentinel"
)

// Service implements registration, login, and profile lookup over the user store.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an auth Service.
func New(store store.Store, logger *slog.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Register stores a new user with a bcrypt-hashed password.
// A duplicate email fails with CodeConflict; the uniqueness constraint
// guarantees a second registration never creates a second row.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create user")
	}

	s.metrics.IncrementUsersRegistered()
	return user, nil
}

// Login verifies credentials against the stored hash. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementAuthFailures()
			return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up user")
	}

	if err := secrets.Verify(req.Password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.metrics.IncrementAuthFailures()
			return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication failed")
		}
		return nil, err
	}

	return user, nil
}

// Profile returns the current record for the given email.
func (s *Service) Profile(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up user")
	}
	return user, nil
}
