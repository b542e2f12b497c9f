package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"time"

	authhandler "kycgate/internal/auth/handler"
	authservice "kycgate/internal/auth/service"
	authstore "kycgate/internal/auth/store"
	checkstore "kycgate/internal/checks/store"
	"kycgate/internal/ipintel"
	kychandler "kycgate/internal/kyc/handler"
	"kycgate/internal/kyc/provider"
	kycservice "kycgate/internal/kyc/service"
	"kycgate/internal/platform/health"
	"kycgate/internal/session"
	httptransport "kycgate/internal/transport/http"
	"kycgate/internal/webhook"
)

const webhookSecret = "e2e-webhook-secret"

// TestContext holds one in-process gateway instance plus the mock upstreams
// it talks to, and state shared between steps.
type TestContext struct {
	Server     *httptest.Server
	HTTPClient *http.Client

	Users  authstore.Store
	Checks checkstore.Store

	LastResponse     *http.Response
	LastResponseBody []byte
	LastCheckID      string

	mockProvider *httptest.Server
	mockIPIntel  *httptest.Server

	mu       sync.Mutex
	checkSeq int
}

// NewTestContext boots a gateway wired to in-memory stores and mock upstreams.
func NewTestContext() *TestContext {
	tc := &TestContext{
		Users:  authstore.NewMemory(),
		Checks: checkstore.NewMemory(),
	}

	tc.mockProvider = httptest.NewServer(http.HandlerFunc(tc.serveProvider))
	tc.mockIPIntel = httptest.NewServer(http.HandlerFunc(tc.serveIPIntel))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewIssuer("e2e-signing-key", time.Hour)

	kycProvider := provider.NewHTTPClient(tc.mockProvider.URL, "e2e-api-key", 5*time.Second)
	kycSvc := kycservice.New(tc.Users, tc.Checks, kycProvider, "http://localhost:3000/*", logger, nil)
	ipClient := ipintel.NewHTTPClient(tc.mockIPIntel.URL, "e2e-ip-key", 5*time.Second)
	authSvc := authservice.New(tc.Users, logger, nil)

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:          authhandler.New(authSvc, sessions, logger),
		KYC:           kychandler.New(kycSvc, logger),
		IPIntel:       ipintel.NewHandler(ipClient, logger, nil),
		Webhook:       webhook.New(webhookSecret, tc.Checks, logger, nil),
		Health:        health.New(),
		Sessions:      sessions,
		AllowedOrigin: "http://localhost:3000",
		Logger:        logger,
	})

	tc.Server = httptest.NewServer(router)

	jar, _ := cookiejar.New(nil)
	tc.HTTPClient = &http.Client{
		Timeout: 10 * time.Second,
		Jar:     jar,
	}

	return tc
}

// Close shuts the gateway and its mock upstreams down.
func (tc *TestContext) Close() {
	tc.Server.Close()
	tc.mockProvider.Close()
	tc.mockIPIntel.Close()
}

// Reset clears per-scenario state. The gateway and its stores stay up, so
// scenarios must use distinct emails.
func (tc *TestContext) Reset() {
	tc.ClearCookies()
	tc.LastResponse = nil
	tc.LastResponseBody = nil
	tc.mu.Lock()
	tc.LastCheckID = ""
	tc.mu.Unlock()
}

// serveProvider is a minimal verification provider: every client, token, and
// check request succeeds with fresh ids.
func (tc *TestContext) serveProvider(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/clients":
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "client_e2e"})
	case "/tokens":
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok_e2e"})
	case "/checks":
		tc.mu.Lock()
		tc.checkSeq++
		id := fmt.Sprintf("chk_e2e_%d", tc.checkSeq)
		tc.LastCheckID = id
		tc.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "status": "pending"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// serveIPIntel flags one documented test prefix as a proxy.
func (tc *TestContext) serveIPIntel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	proxy := r.URL.Query().Get("ip") == "203.0.113.9"
	_ = json.NewEncoder(w).Encode(map[string]bool{"proxy": proxy})
}

// POST makes a JSON POST and stores the response.
func (tc *TestContext) POST(path string, body any) error {
	return tc.POSTWithHeaders(path, body, nil)
}

// POSTWithHeaders makes a JSON POST with optional headers.
func (tc *TestContext) POSTWithHeaders(path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.Server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return tc.do(req)
}

// POSTRaw sends a raw body, used for signed webhook payloads.
func (tc *TestContext) POSTRaw(path string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.Server.URL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

// GET makes a GET request and stores the response.
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.Server.URL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a top-level field from the JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response", field)
	}
	return value, nil
}

// ClearCookies drops the session by replacing the cookie jar.
func (tc *TestContext) ClearCookies() {
	jar, _ := cookiejar.New(nil)
	tc.HTTPClient.Jar = jar
}
