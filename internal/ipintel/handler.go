package ipintel

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/httputil"
)

// Handler exposes IP reputation lookups.
type Handler struct {
	client  Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler creates an IP reputation Handler.
func NewHandler(client Client, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{client: client, logger: logger, metrics: m}
}

// Register mounts the lookup route.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ipaddress", h.handleLookup)
}

type lookupResult struct {
	IsProxy bool `json:"is_proxy"`
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	// The address to look up comes from the ip query parameter; without it
	// the lookup falls back to the requester's own address.
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		ip = clientIP(r)
	}
	if ip == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not determine address to look up"))
		return
	}

	rep, err := h.client.Lookup(ctx, ip)
	if err != nil {
		h.logger.ErrorContext(ctx, "ip reputation lookup failed",
			"request_id", requestID,
			"error", err,
		)
		h.metrics.IncrementIPLookups("error")
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "reputation lookup failed"))
		return
	}

	outcome := "clean"
	if rep.IsProxy {
		outcome = "proxy"
	}
	h.metrics.IncrementIPLookups(outcome)

	httputil.WriteJSON(w, http.StatusOK, lookupResult{IsProxy: rep.IsProxy})
}

// clientIP resolves the requester's address, preferring the first
// X-Forwarded-For hop set by the fronting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
