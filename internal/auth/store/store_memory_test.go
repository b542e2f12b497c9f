package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/auth/models"
	"kycgate/pkg/sentinel"
)

func newUser(email string) *models.User {
	return &models.User{
		ID:           uuid.New(),
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        email,
		PasswordHash: "hash",
	}
}

func TestInMemoryStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Create(ctx, newUser("jane@example.com")))

	got, err := s.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.FirstName)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestInMemoryStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Create(ctx, newUser("jane@example.com")))
	err := s.Create(ctx, newUser("jane@example.com"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStore_FindMissing(t *testing.T) {
	s := NewMemory()

	_, err := s.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_LinkVerificationClient(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Create(ctx, newUser("jane@example.com")))

	linked, err := s.LinkVerificationClient(ctx, "jane@example.com", "client_1")
	require.NoError(t, err)
	assert.True(t, linked)

	got, err := s.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "client_1", got.VerificationID)
}

func TestInMemoryStore_LinkVerificationClientOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Create(ctx, newUser("jane@example.com")))

	linked, err := s.LinkVerificationClient(ctx, "jane@example.com", "client_1")
	require.NoError(t, err)
	require.True(t, linked)

	// Second attempt loses: the stored id must not change.
	linked, err = s.LinkVerificationClient(ctx, "jane@example.com", "client_2")
	require.NoError(t, err)
	assert.False(t, linked)

	got, err := s.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "client_1", got.VerificationID)
}

func TestInMemoryStore_LinkVerificationClientUnknownUser(t *testing.T) {
	s := NewMemory()

	linked, err := s.LinkVerificationClient(context.Background(), "ghost@example.com", "client_1")
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestInMemoryStore_FindReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Create(ctx, newUser("jane@example.com")))

	first, err := s.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	first.FirstName = "Mutated"

	second, err := s.FindByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", second.FirstName)
}
