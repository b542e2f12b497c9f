package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/auth/models"
	"kycgate/internal/auth/store"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/secrets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func registerReq(email string) *models.RegisterRequest {
	return &models.RegisterRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  "correct horse battery",
	}
}

func TestRegister(t *testing.T) {
	svc := New(store.NewMemory(), testLogger(), nil)

	user, err := svc.Register(context.Background(), registerReq("jane@example.com"))
	require.NoError(t, err)
	assert.NotEqual(t, "", user.ID.String())
	assert.Equal(t, "jane@example.com", user.Email)

	// The stored hash verifies against the original password and is not the
	// password itself.
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)
	assert.NoError(t, secrets.Verify("correct horse battery", user.PasswordHash))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := New(store.NewMemory(), testLogger(), nil)

	_, err := svc.Register(context.Background(), registerReq("jane@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), registerReq("jane@example.com"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestLogin(t *testing.T) {
	svc := New(store.NewMemory(), testLogger(), nil)

	registered, err := svc.Register(context.Background(), registerReq("jane@example.com"))
	require.NoError(t, err)

	user, err := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "jane@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := New(store.NewMemory(), testLogger(), nil)

	_, err := svc.Register(context.Background(), registerReq("jane@example.com"))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), &models.LoginRequest{
		Email:    "jane@example.com",
		Password: "wrong password",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestLogin_UnknownEmailIndistinguishable(t *testing.T) {
	svc := New(store.NewMemory(), testLogger(), nil)

	_, err := svc.Register(context.Background(), registerReq("jane@example.com"))
	require.NoError(t, err)

	_, wrongPass := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "jane@example.com",
		Password: "wrong password",
	})
	_, unknown := svc.Login(context.Background(), &models.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})

	require.Error(t, wrongPass)
	require.Error(t, unknown)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

func TestProfile(t *testing.T) {
	svc := New(store.NewMemory(), testLogger(), nil)

	_, err := svc.Register(context.Background(), registerReq("jane@example.com"))
	require.NoError(t, err)

	user, err := svc.Profile(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, "Doe", user.LastName)
}

func TestProfile_Unknown(t *testing.T) {
	svc := New(store.NewMemory(), testLogger(), nil)

	_, err := svc.Profile(context.Background(), "ghost@example.com")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
