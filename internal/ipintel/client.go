// Package ipintel looks up IP reputation against an external proxy-detection
// service.
package ipintel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"kycgate/internal/platform/tracer"
)

// Reputation is the verdict for a single address.
type Reputation struct {
	IP      string
	IsProxy bool
}

// Client performs IP reputation lookups.
type Client interface {
	Lookup(ctx context.Context, ip string) (*Reputation, error)
}

// HTTPClient implements Client against the reputation service's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracer     tracer.Tracer
}

var _ Client = (*HTTPClient)(nil)

// HTTPClientOption configures the HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithTracer sets the tracer used to span lookups.
func WithTracer(t tracer.Tracer) HTTPClientOption {
	return func(c *HTTPClient) {
		c.tracer = t
	}
}

// NewHTTPClient creates a reputation client.
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

// lookupResponse is the upstream response envelope.
type lookupResponse struct {
	Proxy bool `json:"proxy"`
}

// Lookup queries the reputation service for one address. Every upstream
// failure surfaces as an error; there is no cached or degraded answer.
func (c *HTTPClient) Lookup(ctx context.Context, ip string) (*Reputation, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanIPLookup,
		tracer.String(tracer.AttrIPHash, hashIP(ip)),
	)

	rep, err := c.lookup(ctx, ip)
	span.End(err)
	return rep, err
}

func (c *HTTPClient) lookup(ctx context.Context, ip string) (*Reputation, error) {
	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("ip", ip)
	query.Set("format", "json")

	lookupURL := fmt.Sprintf("%s/check?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create reputation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute reputation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read reputation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reputation service returned status %d", resp.StatusCode)
	}

	var lookupResp lookupResponse
	if err := json.Unmarshal(body, &lookupResp); err != nil {
		return nil, fmt.Errorf("parse reputation response: %w", err)
	}

	return &Reputation{IP: ip, IsProxy: lookupResp.Proxy}, nil
}

// hashIP keeps addresses out of traces while preserving correlation.
func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
