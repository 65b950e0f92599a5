// Package server exposes the chat API over HTTP.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wisecover/quotebot/internal/orchestrator"
	"github.com/wisecover/quotebot/pkg/observability"
)

// ChatRequest is the single inbound request type.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatResponse carries either a prompt string or the raw quote response.
type ChatResponse struct {
	Response json.RawMessage `json:"response"`
}

// Handler answers chat messages.
type Handler struct {
	orch   *orchestrator.Orchestrator
	limits *RateLimiter
}

// NewHandler creates the chat handler. A nil limiter disables throttling.
func NewHandler(orch *orchestrator.Orchestrator, limits *RateLimiter) *Handler {
	return &Handler{orch: orch, limits: limits}
}

// Mount attaches the chat endpoints to the server.
func (h *Handler) Mount(srv *observability.Server) {
	srv.Handle("/chat", http.HandlerFunc(h.handleChat))
	srv.Handle("/", http.HandlerFunc(h.handleRoot))
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		observability.RecordHTTPRequest(r.Method, "/chat", http.StatusText(status), time.Since(start))
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		http.Error(w, "method not allowed", status)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = http.StatusBadRequest
		http.Error(w, "invalid request body", status)
		return
	}
	if req.SessionID == "" || req.Message == "" {
		status = http.StatusBadRequest
		http.Error(w, "message and session_id are required", status)
		return
	}
	if h.limits != nil && !h.limits.Allow(req.SessionID) {
		status = http.StatusTooManyRequests
		http.Error(w, "too many requests", status)
		return
	}

	requestID := uuid.NewString()
	log.Printf("server: request %s: message for session %s", requestID, req.SessionID)

	// Orchestrator failures are fail-soft: the reply is an apology, never
	// a non-200 status.
	reply := h.orch.Handle(r.Context(), req.SessionID, req.Message)

	preview := reply.ResponseJSON()
	if len(preview) > 100 {
		preview = preview[:100]
	}
	log.Printf("server: request %s: responding to session %s: %s...", requestID, req.SessionID, preview)

	writeJSON(w, ChatResponse{Response: reply.ResponseJSON()})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{"status": "Quote bot API is running"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: writing response: %v", err)
	}
}
