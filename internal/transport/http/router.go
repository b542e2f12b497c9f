// Package httptransport wires the public HTTP surface: middleware stack,
// route table, and session gating.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "kycgate/internal/auth/handler"
	ipintel "kycgate/internal/ipintel"
	kychandler "kycgate/internal/kyc/handler"
	"kycgate/internal/platform/health"
	"kycgate/internal/platform/middleware"
	"kycgate/internal/webhook"
)

// Deps carries everything the router mounts.
type Deps struct {
	Auth     *authhandler.Handler
	KYC      *kychandler.Handler
	IPIntel  *ipintel.Handler
	Webhook  *webhook.Handler
	Health   *health.Handler
	Sessions middleware.SessionVerifier

	AllowedOrigin string
	Logger        *slog.Logger
}

// NewRouter assembles the middleware stack and route table.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.CORS(deps.AllowedOrigin))

	// Plaintext liveness at the root for load balancers that expect a 200
	// without JSON negotiation.
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	})

	deps.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	deps.Auth.Register(r)
	deps.IPIntel.Register(r)
	deps.Webhook.Register(r)

	// Session-gated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(deps.Sessions, deps.Logger))
		deps.Auth.RegisterProtected(r)
		deps.KYC.Register(r)
	})

	return r
}
