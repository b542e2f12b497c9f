package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/platform/middleware"
	dErrors "kycgate/pkg/domain-errors"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("test-signing-key", time.Hour)

	token, err := issuer.Issue("jane@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestVerify_EmptyToken(t *testing.T) {
	issuer := NewIssuer("test-signing-key", time.Hour)

	_, err := issuer.Verify("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestVerify_ExpiredToken(t *testing.T) {
	issuer := NewIssuer("test-signing-key", -time.Minute)

	token, err := issuer.Issue("jane@example.com")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestVerify_WrongKey(t *testing.T) {
	issuer := NewIssuer("test-signing-key", time.Hour)
	other := NewIssuer("different-key", time.Hour)

	token, err := issuer.Issue("jane@example.com")
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestVerify_GarbageToken(t *testing.T) {
	issuer := NewIssuer("test-signing-key", time.Hour)

	_, err := issuer.Verify("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestSetCookie(t *testing.T) {
	issuer := NewIssuer("test-signing-key", time.Hour)
	rec := httptest.NewRecorder()

	issuer.SetCookie(rec, "tok_1")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, middleware.SessionCookieName, cookie.Name)
	assert.Equal(t, "tok_1", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)
}

func TestClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()

	ClearCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
