//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/auth/models"
	"kycgate/pkg/sentinel"
	"kycgate/pkg/testutil/containers"
)

func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	pc := containers.GetManager().GetPostgres(t)
	require.NoError(t, pc.TruncateAll(context.Background()))
	return NewPostgres(pc.DB)
}

func pgUser(email string) *models.User {
	return &models.User{
		ID:           uuid.New(),
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        email,
		PasswordHash: "hash",
	}
}

func TestPostgresStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)

	user := pgUser("jane@example.com")
	require.NoError(t, s.Create(ctx, user))

	got, err := s.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Jane", got.FirstName)
	assert.Empty(t, got.VerificationID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestPostgresStore_CreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)

	require.NoError(t, s.Create(ctx, pgUser("jane@example.com")))
	err := s.Create(ctx, pgUser("jane@example.com"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestPostgresStore_FindMissing(t *testing.T) {
	s := setupPostgres(t)

	_, err := s.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_LinkVerificationClientSetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)

	require.NoError(t, s.Create(ctx, pgUser("jane@example.com")))

	linked, err := s.LinkVerificationClient(ctx, "jane@example.com", "client_1")
	require.NoError(t, err)
	assert.True(t, linked)

	// A second write must lose and leave the first id in place.
	linked, err = s.LinkVerificationClient(ctx, "jane@example.com", "client_2")
	require.NoError(t, err)
	assert.False(t, linked)

	got, err := s.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "client_1", got.VerificationID)
}
