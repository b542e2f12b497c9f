// Command kyc-provider is a mock verification provider for local development
// and e2e tests. It implements the clients, tokens, and checks endpoints and
// can push signed webhook events back to the gateway.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultPort      = "8091"
	defaultAPIKey    = "kyc-provider-secret-key"
	defaultLatencyMs = "100"
)

var (
	apiKey        = getEnv("API_KEY", defaultAPIKey)
	latencyMs     = getEnvInt("LATENCY_MS", defaultLatencyMs)
	webhookURL    = getEnv("WEBHOOK_URL", "")
	webhookSecret = getEnv("WEBHOOK_SECRET", "local-webhook-secret")
)

type ClientRequest struct {
	Type          string `json:"type"`
	Email         string `json:"email"`
	PersonDetails struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"personDetails"`
}

type TokenRequest struct {
	ClientID string `json:"clientId"`
	Referrer string `json:"referrer"`
}

type CheckRequest struct {
	ClientID   string `json:"clientId"`
	Type       string `json:"type"`
	DocumentID string `json:"documentId"`
}

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// store remembers issued ids so checks can be validated against known clients.
var store = struct {
	sync.Mutex
	clients map[string]bool
}{clients: map[string]bool{}}

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/clients", handleCreateClient)
	http.HandleFunc("/tokens", handleGenerateToken)
	http.HandleFunc("/checks", handleCreateCheck)

	log.Printf("Mock verification provider starting on port %s", port)
	log.Printf("API key: %s", apiKey)
	log.Printf("Simulated latency: %dms", latencyMs)
	if webhookURL != "" {
		log.Printf("Webhook delivery enabled: %s", webhookURL)
	}

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "kyc-provider",
	})
}

func handleCreateClient(w http.ResponseWriter, r *http.Request) {
	if !accept(w, r) {
		return
	}

	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		sendError(w, "email is required", http.StatusUnprocessableEntity)
		return
	}

	id := "client_" + randomHex(12)
	store.Lock()
	store.clients[id] = true
	store.Unlock()

	log.Printf("Client created: %s (%s)", id, req.Email)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func handleGenerateToken(w http.ResponseWriter, r *http.Request) {
	if !accept(w, r) {
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !knownClient(req.ClientID) {
		sendError(w, "clientId does not exist", http.StatusUnprocessableEntity)
		return
	}

	token := "tok_" + randomHex(24)
	log.Printf("Token generated for %s (referrer %s)", req.ClientID, req.Referrer)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func handleCreateCheck(w http.ResponseWriter, r *http.Request) {
	if !accept(w, r) {
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !knownClient(req.ClientID) {
		sendError(w, "clientId does not exist", http.StatusUnprocessableEntity)
		return
	}
	if req.Type != "standard_screening_check" && req.Type != "document_check" {
		sendError(w, "unsupported check type: "+req.Type, http.StatusUnprocessableEntity)
		return
	}
	// Magic document id for e2e rejection paths.
	if req.Type == "document_check" && req.DocumentID == "doc_REJECT" {
		sendError(w, "documentId does not exist", http.StatusUnprocessableEntity)
		return
	}

	id := "chk_" + randomHex(12)
	log.Printf("Check created: %s (%s for %s)", id, req.Type, req.ClientID)

	// Simulate the async lifecycle: completion arrives over the webhook a
	// moment after the check is acknowledged.
	if webhookURL != "" {
		go deliverWebhook(id, req.DocumentID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id, "status": "pending"})
}

func deliverWebhook(checkID, documentID string) {
	time.Sleep(2 * time.Second)

	eventType := "check.completed.clear"
	if documentID == "doc_MATCH" {
		eventType = "check.completed.match_confirmed"
	}

	body, _ := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": map[string]string{"id": checkID},
	})

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("Webhook build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("Webhook delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()
	log.Printf("Webhook delivered: %s -> %s (%d)", eventType, checkID, resp.StatusCode)
}

func accept(w http.ResponseWriter, r *http.Request) bool {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	log.Printf("Incoming request: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

	if r.Method != http.MethodPost {
		sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if r.Header.Get("Authorization") != apiKey {
		sendError(w, "invalid api key", http.StatusUnauthorized)
		return false
	}
	return true
}

func knownClient(id string) bool {
	store.Lock()
	defer store.Unlock()
	return store.clients[id]
}

func sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Type:    "invalid_request",
		Message: message,
	})
	log.Printf("Error response: %d - %s", code, message)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)[:n]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
