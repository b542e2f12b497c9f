package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/auth/models"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/session"
	dErrors "kycgate/pkg/domain-errors"
)

type stubAuth struct {
	user *models.User
	err  error

	gotRegister *models.RegisterRequest
	gotLogin    *models.LoginRequest
	gotEmail    string
}

func (s *stubAuth) Register(_ context.Context, req *models.RegisterRequest) (*models.User, error) {
	s.gotRegister = req
	return s.user, s.err
}

func (s *stubAuth) Login(_ context.Context, req *models.LoginRequest) (*models.User, error) {
	s.gotLogin = req
	return s.user, s.err
}

func (s *stubAuth) Profile(_ context.Context, email string) (*models.User, error) {
	s.gotEmail = email
	return s.user, s.err
}

type stubIssuer struct {
	token string
	err   error
}

func (s *stubIssuer) Issue(string) (string, error) {
	return s.token, s.err
}

func (s *stubIssuer) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{Name: middleware.SessionCookieName, Value: token})
}

func newRouter(auth Service, issuer SessionIssuer) chi.Router {
	h := New(auth, issuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterProtected(r)
	return r
}

func testUser() *models.User {
	return &models.User{
		ID:        uuid.New(),
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
	}
}

func TestHandleRegister(t *testing.T) {
	auth := &stubAuth{user: testUser()}
	router := newRouter(auth, &stubIssuer{token: "tok_1"})

	body := bytes.NewBufferString(`{"firstName":"Jane","lastName":"Doe","email":"JANE@Example.com","password":"long enough"}`)
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	// Email normalized before reaching the service.
	require.NotNil(t, auth.gotRegister)
	assert.Equal(t, "jane@example.com", auth.gotRegister.Email)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "tok_1", cookies[0].Value)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Signup successful", resp["message"])
}

func TestHandleRegister_ValidationFailure(t *testing.T) {
	auth := &stubAuth{}
	router := newRouter(auth, &stubIssuer{token: "tok_1"})

	body := bytes.NewBufferString(`{"firstName":"Jane","lastName":"Doe","email":"not-an-email","password":"long enough"}`)
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, auth.gotRegister)
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	auth := &stubAuth{err: dErrors.New(dErrors.CodeConflict, "email already registered")}
	router := newRouter(auth, &stubIssuer{token: "tok_1"})

	body := bytes.NewBufferString(`{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"long enough"}`)
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandleLogin(t *testing.T) {
	auth := &stubAuth{user: testUser()}
	router := newRouter(auth, &stubIssuer{token: "tok_2"})

	body := bytes.NewBufferString(`{"email":"jane@example.com","password":"long enough"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "tok_2", cookies[0].Value)
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	auth := &stubAuth{err: dErrors.New(dErrors.CodeUnauthorized, "authentication failed")}
	router := newRouter(auth, &stubIssuer{token: "tok_2"})

	body := bytes.NewBufferString(`{"email":"jane@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandleLogin_IssuerFailure(t *testing.T) {
	auth := &stubAuth{user: testUser()}
	router := newRouter(auth, &stubIssuer{err: errors.New("signing failed")})

	body := bytes.NewBufferString(`{"email":"jane@example.com","password":"long enough"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleLogout_ClearsCookie(t *testing.T) {
	router := newRouter(&stubAuth{}, &stubIssuer{})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestHandleUser_EchoesSession(t *testing.T) {
	router := newRouter(&stubAuth{}, &stubIssuer{})

	now := time.Now()
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), &middleware.SessionClaims{
		Email:     "jane@example.com",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "jane@example.com", resp["email"])
}

func TestHandleUserProfile(t *testing.T) {
	auth := &stubAuth{user: testUser()}
	router := newRouter(auth, &stubIssuer{})

	req := httptest.NewRequest(http.MethodGet, "/user-profile", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), &middleware.SessionClaims{Email: "jane@example.com"}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane@example.com", auth.gotEmail)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Jane", resp["firstName"])
	assert.Equal(t, "Doe", resp["lastName"])
}

// Session gating end to end: the middleware plus a real token issuer.
func TestProtectedRoutes_RequireSession(t *testing.T) {
	issuer := session.NewIssuer("test-signing-key", time.Hour)
	auth := &stubAuth{user: testUser()}
	h := New(auth, issuer, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(issuer, slog.New(slog.NewTextHandler(io.Discard, nil))))
		h.RegisterProtected(r)
	})

	t.Run("missing cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "garbage"})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := issuer.Issue("jane@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
