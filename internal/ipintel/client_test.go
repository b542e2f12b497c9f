package ipintel

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

func TestHTTPClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/check", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "203.0.113.9", r.URL.Query().Get("ip"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		_ = json.NewEncoder(w).Encode(map[string]bool{"proxy": true})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key", 5*time.Second)

	rep, err := c.Lookup(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, rep.IsProxy)
	assert.Equal(t, "203.0.113.9", rep.IP)
}

func TestHTTPClient_LookupClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"proxy": false})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key", 5*time.Second)

	rep, err := c.Lookup(context.Background(), "198.51.100.7")
	require.NoError(t, err)
	assert.False(t, rep.IsProxy)
}

func TestHTTPClient_LookupUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key", 5*time.Second)

	_, err := c.Lookup(context.Background(), "203.0.113.9")
	assert.Error(t, err)
}

func TestHTTPClient_LookupMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key", 5*time.Second)

	_, err := c.Lookup(context.Background(), "203.0.113.9")
	assert.Error(t, err)
}
