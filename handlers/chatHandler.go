package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"

	"studybuddy/models"
	"studybuddy/services"
	"studybuddy/store"
	"studybuddy/web"

	"github.com/gorilla/mux"
)

const (
	newSessionHint      = "Use this session_id in your next request to maintain conversation context"
	existingSessionHint = "Continuing conversation with existing context"
)

type ChatHandler struct {
	sessions  *services.SessionService
	chat      *services.ChatService
	gate      *services.RateGate
	agentName string
}

func NewChatHandler(sessions *services.SessionService, chat *services.ChatService, gate *services.RateGate, agentName string) *ChatHandler {
	return &ChatHandler{
		sessions:  sessions,
		chat:      chat,
		gate:      gate,
		agentName: agentName,
	}
}

func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/query", h.ProcessQuery).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/info", h.Info).Methods("GET")
	router.HandleFunc("/", h.ChatInterface).Methods("GET")
}

func (h *ChatHandler) ProcessQuery(w http.ResponseWriter, r *http.Request) {
	clientKey := clientAddr(r)

	if !h.gate.Admit(clientKey) {
		log.Printf("[INFO] Client %s rejected: %v", clientKey, services.ErrRateLimited)
		h.writeErrorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded, try again later")
		return
	}

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[ERROR] Failed to decode query request JSON: %v", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Query is required")
		return
	}

	session, isNew, err := h.sessions.Resolve(services.DefaultOwnerID, req.SessionID)
	if err != nil {
		log.Printf("[ERROR] Failed to resolve session: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	reply, err := h.chat.Submit(r.Context(), session, req.Query)
	if errors.Is(err, store.ErrUnknownSession) {
		// Session evicted between resolve and submit. Start a fresh one
		// instead of failing the turn.
		log.Printf("[INFO] Session %s disappeared mid-turn, retrying with a fresh session", session.ID)
		session, isNew, err = h.sessions.Resolve(services.DefaultOwnerID, "")
		if err == nil {
			reply, err = h.chat.Submit(r.Context(), session, req.Query)
		}
	}
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			h.writeErrorResponse(w, http.StatusBadRequest, "Query is required")
			return
		}
		log.Printf("[ERROR] Turn processing failed: %v", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	message := existingSessionHint
	if isNew {
		message = newSessionHint
	}

	h.writeJSONResponse(w, http.StatusOK, models.QueryResponse{
		Response:   reply,
		SessionID:  session.ID,
		NewSession: isNew,
		Message:    message,
	})
}

func (h *ChatHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"agent":  h.agentName,
	})
}

func (h *ChatHandler) Info(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]any{
		"name":        "StudyBuddy API",
		"version":     "1.0.0",
		"description": "Conversational study helper service",
		"agent":       h.agentName,
		"endpoints": map[string]string{
			"chat":   "/ - StudyBuddy chat interface",
			"query":  "/query - Main API endpoint to interact with StudyBuddy",
			"health": "/health - Health check",
			"info":   "/info - This endpoint",
		},
	})
}

func (h *ChatHandler) ChatInterface(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(web.IndexHTML)
}

// clientAddr picks the address the rate gate counts against, preferring
// the first X-Forwarded-For hop when the service sits behind a proxy.
func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if key := strings.TrimSpace(parts[0]); key != "" {
			return key
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *ChatHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *ChatHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
