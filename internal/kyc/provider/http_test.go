package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_CreateClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/clients", r.URL.Path)
		require.Equal(t, "test-api-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "person", body["type"])
		assert.Equal(t, "jane@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "client_abc"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-api-key", 5*time.Second)

	id, err := c.CreateClient(context.Background(), NewClient{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "client_abc", id)
}

func TestHTTPClient_CreateClientEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", 5*time.Second)

	_, err := c.CreateClient(context.Background(), NewClient{Email: "jane@example.com"})
	require.Error(t, err)

	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorBadData, pe.Category)
}

func TestHTTPClient_GenerateToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tokens", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_abc", body["clientId"])
		assert.Equal(t, "http://localhost:3000/*", body["referrer"])

		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok_123"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", 5*time.Second)

	token, err := c.GenerateToken(context.Background(), "client_abc", "http://localhost:3000/*")
	require.NoError(t, err)
	assert.Equal(t, "tok_123", token)
}

func TestHTTPClient_CreateCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checks", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_abc", body["clientId"])
		assert.Equal(t, CheckTypeDocument, body["type"])
		assert.Equal(t, "doc_1", body["documentId"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "chk_9", "status": "pending"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", 5*time.Second)

	result, err := c.CreateCheck(context.Background(), CheckRequest{
		ClientID:   "client_abc",
		Type:       CheckTypeDocument,
		DocumentID: "doc_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "chk_9", result.ID)
	assert.Equal(t, "pending", result.Status)
}

func TestHTTPClient_CreateCheckOmitsEmptyDocumentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, present := body["documentId"]
		assert.False(t, present)

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "chk_1", "status": "pending"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", 5*time.Second)

	_, err := c.CreateCheck(context.Background(), CheckRequest{
		ClientID: "client_abc",
		Type:     CheckTypeStandardScreening,
	})
	require.NoError(t, err)
}

func TestHTTPClient_UpstreamErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"type":    "invalid_request",
			"message": "documentId does not exist",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "key", 5*time.Second)

	_, err := c.CreateCheck(context.Background(), CheckRequest{
		ClientID:   "client_abc",
		Type:       CheckTypeDocument,
		DocumentID: "doc_bogus",
	})
	require.Error(t, err)

	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, pe.StatusCode)
	assert.Equal(t, "documentId does not exist", pe.Message)
	assert.Equal(t, ErrorBadData, pe.Category)
}

func TestHTTPClient_AuthenticationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid api key"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "bad-key", 5*time.Second)

	_, err := c.GenerateToken(context.Background(), "client_abc", "ref")
	require.Error(t, err)

	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorAuthentication, pe.Category)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestHTTPClient_OutageOnConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // force connection errors

	c := NewHTTPClient(srv.URL, "key", time.Second)

	_, err := c.CreateClient(context.Background(), NewClient{Email: "jane@example.com"})
	require.Error(t, err)

	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorOutage, pe.Category)
}
