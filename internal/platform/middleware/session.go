package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "token"

// SessionVerifier validates a signed session token and resolves its claims.
type SessionVerifier interface {
	Verify(token string) (*SessionClaims, error)
}

// SessionClaims is the identity embedded in a session token.
type SessionClaims struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type contextKeySession struct{}

// GetSession retrieves the verified session claims from the context.
func GetSession(ctx context.Context) *SessionClaims {
	claims, ok := ctx.Value(contextKeySession{}).(*SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithSession returns a context carrying the given session claims. Test helper.
func WithSession(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, contextKeySession{}, claims)
}

// RequireSession gates protected routes on a valid session cookie.
// A missing cookie yields 401; an invalid or expired token yields 403.
// Handlers re-read the user's current record rather than trusting token payload state.
func RequireSession(verifier SessionVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				logger.WarnContext(ctx, "unauthorized access - missing session cookie",
					"request_id", requestID,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Missing session cookie"}`))
				return
			}

			claims, err := verifier.Verify(cookie.Value)
			if err != nil {
				logger.WarnContext(ctx, "forbidden access - invalid session token",
					"error", err,
					"request_id", requestID,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"Invalid or expired session token"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, claims)))
		})
	}
}
