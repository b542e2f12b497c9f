// Package webhook receives check lifecycle events from the verification
// provider and reconciles them into the check ledger.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/checks/models"
	"kycgate/internal/checks/store"
	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/middleware"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/httputil"
	"kycgate/pkg/sentinel"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// statusByEvent maps provider event types onto ledger statuses. Events not
// listed here are rejected.
var statusByEvent = map[string]models.Status{
	"check.pending":                   models.StatusPending,
	"check.completed":                 models.StatusCompleted,
	"check.completed.clear":           models.StatusCompletedClear,
	"check.completed.match_confirmed": models.StatusMatchedConfirm,
	"check.failed":                    models.StatusFailed,
}

// Handler verifies and applies provider webhook deliveries.
type Handler struct {
	secret  []byte
	checks  store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a webhook Handler. secret is the shared HMAC key configured
// with the provider.
func New(secret string, checks store.Store, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		secret:  []byte(secret),
		checks:  checks,
		logger:  logger,
		metrics: m,
	}
}

// Register mounts the webhook route. It sits outside session auth; the HMAC
// signature is its only authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhook", h.handleEvent)
}

type event struct {
	Type    string       `json:"type"`
	Payload eventPayload `json:"payload"`
}

type eventPayload struct {
	ID string `json:"id"`
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read request body"))
		return
	}

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		h.logger.WarnContext(ctx, "webhook signature verification failed",
			"request_id", requestID,
		)
		h.metrics.IncrementWebhookEvents("unknown", "bad_signature")
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
		return
	}

	var evt event
	if err := json.Unmarshal(body, &evt); err != nil {
		h.metrics.IncrementWebhookEvents("unknown", "malformed")
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed event payload"))
		return
	}

	if err := h.apply(ctx, evt); err != nil {
		h.logger.WarnContext(ctx, "webhook event rejected",
			"request_id", requestID,
			"event_type", evt.Type,
			"check_id", evt.Payload.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.metrics.IncrementWebhookEvents(evt.Type, "applied")
	h.logger.InfoContext(ctx, "webhook event applied",
		"request_id", requestID,
		"event_type", evt.Type,
		"check_id", evt.Payload.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) apply(ctx context.Context, evt event) error {
	status, ok := statusByEvent[evt.Type]
	if !ok {
		h.metrics.IncrementWebhookEvents(evt.Type, "unknown_type")
		return dErrors.New(dErrors.CodeBadRequest, "unknown event type")
	}
	if evt.Payload.ID == "" {
		h.metrics.IncrementWebhookEvents(evt.Type, "malformed")
		return dErrors.New(dErrors.CodeBadRequest, "event payload missing check id")
	}

	if err := h.checks.UpdateStatus(ctx, evt.Payload.ID, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			h.metrics.IncrementWebhookEvents(evt.Type, "unknown_check")
			return dErrors.New(dErrors.CodeBadRequest, "unknown check id")
		}
		h.metrics.IncrementWebhookEvents(evt.Type, "error")
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not update check status")
	}
	return nil
}

// verifySignature compares the received signature against the HMAC-SHA256 of
// the raw body in constant time.
func (h *Handler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	received, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(received, mac.Sum(nil))
}

// Sign computes the hex signature for a body. Exported for tests and the
// local mock provider.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
