// Package session issues and validates signed session tokens bound to an
// HTTP-only cookie. Logout only clears the cookie: there is no server-side
// revocation list, so a still-valid token remains usable until expiry.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kycgate/internal/platform/middleware"
	dErrors "kycgate/pkg/domain-errors"
)

// Claims represents the JWT claims embedded in a session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer creates and validates session tokens.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
}

// NewIssuer constructs a session Issuer with the given signing key and token TTL.
func NewIssuer(signingKey string, ttl time.Duration) *Issuer {
	return &Issuer{
		signingKey: []byte(signingKey),
		ttl:        ttl,
	}
}

// TTL returns the configured session lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue produces a signed token embedding the user's email, expiring after the
// configured TTL.
func (i *Issuer) Issue(email string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})

	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign session token")
	}
	return signed, nil
}

// Verify validates a session token and resolves the embedded identity.
// Expired or tampered tokens fail with CodeForbidden.
func (i *Issuer) Verify(tokenString string) (*middleware.SessionClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty session token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeForbidden, "session token expired")
		}
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid session token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeForbidden, "invalid session token")
	}

	resolved := &middleware.SessionClaims{Email: claims.Email}
	if claims.IssuedAt != nil {
		resolved.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		resolved.ExpiresAt = claims.ExpiresAt.Time
	}
	return resolved, nil
}

// SetCookie writes the session token as an HTTP-only cookie.
func (i *Issuer) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(i.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
