package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/tracer"
)

// HTTPClient implements Provider against the verification provider's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracer     tracer.Tracer
	metrics    *metrics.Metrics
}

var _ Provider = (*HTTPClient)(nil)

// HTTPClientOption configures the HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithTracer sets the tracer used to span outbound calls.
func WithTracer(t tracer.Tracer) HTTPClientOption {
	return func(c *HTTPClient) {
		c.tracer = t
	}
}

// WithMetrics sets the metrics sink for provider latency.
func WithMetrics(m *metrics.Metrics) HTTPClientOption {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// NewHTTPClient creates a provider client. The API key is sent verbatim in
// the Authorization header, which is the scheme the provider uses.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type clientRequest struct {
	Type          string        `json:"type"`
	Email         string        `json:"email"`
	PersonDetails personDetails `json:"personDetails"`
}

type personDetails struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type clientResponse struct {
	ID string `json:"id"`
}

type tokenRequest struct {
	ClientID string `json:"clientId"`
	Referrer string `json:"referrer"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type checkRequest struct {
	ClientID   string `json:"clientId"`
	Type       string `json:"type"`
	DocumentID string `json:"documentId,omitempty"`
}

type checkResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// errorResponse is the provider's error envelope.
type errorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// CreateClient registers a person with the provider.
func (c *HTTPClient) CreateClient(ctx context.Context, client NewClient) (string, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanClientCreate)

	var resp clientResponse
	err := c.post(ctx, "clients", "create_client", clientRequest{
		Type:  "person",
		Email: client.Email,
		PersonDetails: personDetails{
			FirstName: client.FirstName,
			LastName:  client.LastName,
		},
	}, &resp)
	span.End(err)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", NewError(ErrorBadData, "create_client", 0, "provider returned empty client id", nil)
	}
	return resp.ID, nil
}

// GenerateToken mints a capture token for an existing client.
func (c *HTTPClient) GenerateToken(ctx context.Context, clientID, referrer string) (string, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanTokenGenerate,
		tracer.String(tracer.AttrClientID, clientID),
	)

	var resp tokenResponse
	err := c.post(ctx, "tokens", "generate_token", tokenRequest{
		ClientID: clientID,
		Referrer: referrer,
	}, &resp)
	span.End(err)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", NewError(ErrorBadData, "generate_token", 0, "provider returned empty token", nil)
	}
	return resp.Token, nil
}

// CreateCheck starts a verification check.
func (c *HTTPClient) CreateCheck(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanCheckCreate,
		tracer.String(tracer.AttrClientID, req.ClientID),
		tracer.String(tracer.AttrCheckType, req.Type),
	)

	var resp checkResponse
	err := c.post(ctx, "checks", "create_check", checkRequest{
		ClientID:   req.ClientID,
		Type:       req.Type,
		DocumentID: req.DocumentID,
	}, &resp)
	if err != nil {
		span.End(err)
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrCheckID, resp.ID))
	span.End(nil)

	if resp.ID == "" {
		return nil, NewError(ErrorBadData, "create_check", 0, "provider returned empty check id", nil)
	}
	return &CheckResult{ID: resp.ID, Status: resp.Status}, nil
}

// post sends one JSON request to the provider and decodes the response into out.
func (c *HTTPClient) post(ctx context.Context, path, operation string, body, out any) error {
	start := time.Now()
	defer func() {
		c.metrics.ObserveProviderLatency(operation, time.Since(start).Seconds())
	}()

	reqBody, err := json.Marshal(body)
	if err != nil {
		return NewError(ErrorInternal, operation, 0, "failed to marshal request", err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return NewError(ErrorInternal, operation, 0, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return NewError(ErrorTimeout, operation, 0, "request timeout", err)
		}
		return NewError(ErrorOutage, operation, 0, "failed to execute request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(ErrorInternal, operation, 0, "failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(operation, resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return NewError(ErrorBadData, operation, 0, "failed to parse response", err)
	}
	return nil
}

// errorFromResponse maps an upstream failure onto the error taxonomy while
// preserving the upstream status and message for passthrough.
func (c *HTTPClient) errorFromResponse(operation string, statusCode int, body []byte) error {
	message := fmt.Sprintf("unexpected status code: %d", statusCode)
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		message = errResp.Message
	}

	category := ErrorInternal
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		category = ErrorAuthentication
	case statusCode == http.StatusTooManyRequests:
		category = ErrorRateLimited
	case statusCode >= 400 && statusCode < 500:
		category = ErrorBadData
	case statusCode == http.StatusServiceUnavailable || statusCode == http.StatusGatewayTimeout:
		category = ErrorOutage
	}

	return NewError(category, operation, statusCode, message, nil)
}
