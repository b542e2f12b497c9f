package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/auth/device"
	"kycgate/internal/auth/models"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/session"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/httputil"
)

// Service defines the auth operations the handler depends on.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, error)
	Profile(ctx context.Context, email string) (*models.User, error)
}

// SessionIssuer creates session tokens and writes them as cookies.
type SessionIssuer interface {
	Issue(email string) (string, error)
	SetCookie(w http.ResponseWriter, token string)
}

// Handler handles registration, login, logout, and profile endpoints.
type Handler struct {
	auth     Service
	sessions SessionIssuer
	logger   *slog.Logger
}

// New creates a new auth Handler.
func New(auth Service, sessions SessionIssuer, logger *slog.Logger) *Handler {
	return &Handler{
		auth:     auth,
		sessions: sessions,
		logger:   logger,
	}
}

// Register mounts the public auth routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

// RegisterProtected mounts the session-gated routes.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/user", h.handleUser)
	r.Get("/user-profile", h.handleUserProfile)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[models.RegisterRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	user, err := h.auth.Register(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"user_id", user.ID,
		"device", device.ParseUserAgent(r.UserAgent()),
	)

	if !h.issueSession(ctx, w, requestID, user.Email) {
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.MessageResponse{Message: "Signup successful"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[models.LoginRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	user, err := h.auth.Login(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"email", req.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		"request_id", requestID,
		"user_id", user.ID,
		"device", device.ParseUserAgent(r.UserAgent()),
	)

	if !h.issueSession(ctx, w, requestID, user.Email) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "Login successful"})
}

// handleLogout clears the session cookie. The token itself stays valid until
// expiry; there is no server-side revocation list.
func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	session.ClearCookie(w)
	httputil.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "Logout successful"})
}

// handleUser echoes the decoded session identity.
func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middleware.GetSession(ctx)
	if claims == nil {
		h.logger.ErrorContext(ctx, "session missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"email": claims.Email,
		"iat":   claims.IssuedAt.Unix(),
		"exp":   claims.ExpiresAt.Unix(),
	})
}

// handleUserProfile re-reads the user's current record rather than trusting
// the token payload.
func (h *Handler) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	claims := middleware.GetSession(ctx)
	if claims == nil {
		h.logger.ErrorContext(ctx, "session missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	user, err := h.auth.Profile(ctx, claims.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to fetch user profile",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.ProfileResponse{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

func (h *Handler) issueSession(ctx context.Context, w http.ResponseWriter, requestID, email string) bool {
	token, err := h.sessions.Issue(email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return false
	}
	h.sessions.SetCookie(w, token)
	return true
}
