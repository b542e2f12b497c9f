package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/checks/models"
	"kycgate/internal/kyc/provider"
	"kycgate/internal/kyc/service"
	"kycgate/internal/platform/middleware"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/httputil"
)

// Service defines the verification operations the handler depends on.
type Service interface {
	AccessToken(ctx context.Context, email string) (string, error)
	CaptureDocument(ctx context.Context, email, documentID, documentType string) (*service.CaptureResult, error)
	Checks(ctx context.Context, email string) ([]*models.Check, error)
}

// Handler exposes the verification endpoints.
type Handler struct {
	kyc    Service
	logger *slog.Logger
}

// New creates a verification Handler.
func New(kyc Service, logger *slog.Logger) *Handler {
	return &Handler{kyc: kyc, logger: logger}
}

// Register mounts the session-gated verification routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/kyc-token", h.handleToken)
	r.Post("/capture_document", h.handleCaptureDocument)
	r.Get("/checks", h.handleChecks)
}

// captureRequest mirrors the client SDK payload, which nests the document
// fields under a documentCapture key.
type captureRequest struct {
	DocumentCapture documentCapture `json:"documentCapture"`
}

type documentCapture struct {
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
}

func (c *captureRequest) Validate() error {
	if strings.TrimSpace(c.DocumentCapture.DocumentID) == "" {
		return dErrors.New(dErrors.CodeValidation, "documentCapture.documentId is required")
	}
	if strings.TrimSpace(c.DocumentCapture.DocumentType) == "" {
		return dErrors.New(dErrors.CodeValidation, "documentCapture.documentType is required")
	}
	return nil
}

type tokenResponse struct {
	KYCToken string `json:"kycToken"`
}

type captureResponse struct {
	Response captureChecks `json:"response"`
}

type captureChecks struct {
	ScreeningCheckID string `json:"screeningCheckId"`
	DocumentCheckID  string `json:"documentCheckId"`
	Status           string `json:"status"`
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	claims := middleware.GetSession(ctx)
	if claims == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	token, err := h.kyc.AccessToken(ctx, claims.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue verification token",
			"request_id", requestID,
			"error", err,
		)
		h.writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{KYCToken: token})
}

func (h *Handler) handleCaptureDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	claims := middleware.GetSession(ctx)
	if claims == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	req, ok := httputil.DecodeJSON[captureRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	capture := req.DocumentCapture

	result, err := h.kyc.CaptureDocument(ctx, claims.Email, capture.DocumentID, capture.DocumentType)
	if err != nil {
		h.logger.ErrorContext(ctx, "document capture failed",
			"request_id", requestID,
			"document_type", capture.DocumentType,
			"error", err,
		)
		h.writeError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, captureResponse{
		Response: captureChecks{
			ScreeningCheckID: result.ScreeningCheck.ID,
			DocumentCheckID:  result.DocumentCheck.ID,
			Status:           result.DocumentCheck.Status,
		},
	})
}

type checkSummary struct {
	CheckID      string    `json:"checkId"`
	Type         string    `json:"type"`
	DocumentID   string    `json:"documentId,omitempty"`
	DocumentType string    `json:"documentType,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type checksResponse struct {
	Checks []checkSummary `json:"checks"`
}

func (h *Handler) handleChecks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	claims := middleware.GetSession(ctx)
	if claims == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	checks, err := h.kyc.Checks(ctx, claims.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list checks",
			"request_id", requestID,
			"error", err,
		)
		h.writeError(w, err)
		return
	}

	resp := checksResponse{Checks: make([]checkSummary, 0, len(checks))}
	for _, c := range checks {
		resp.Checks = append(resp.Checks, checkSummary{
			CheckID:      c.CheckID,
			Type:         checkType(c),
			DocumentID:   c.DocumentID,
			DocumentType: c.DocumentType,
			Status:       string(c.Status),
			CreatedAt:    c.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func checkType(c *models.Check) string {
	switch {
	case c.IsStandardScreeningCheck:
		return provider.CheckTypeStandardScreening
	case c.IsDocumentCheck:
		return provider.CheckTypeDocument
	default:
		return ""
	}
}

// writeError relays provider rejections with their upstream status so SDK
// errors surface to the client unchanged; everything else goes through the
// domain error translation.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if pe, ok := provider.AsError(err); ok {
		if pe.StatusCode >= 400 {
			httputil.WriteJSON(w, pe.StatusCode, map[string]string{
				"code":              "provider_rejected",
				"error_description": pe.Message,
			})
			return
		}
		// The request never completed (timeout, connection failure).
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "verification provider unavailable"))
		return
	}
	httputil.WriteError(w, err)
}
