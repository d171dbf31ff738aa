package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"fluxo/internal/domain/connection"
	"fluxo/internal/shared/middleware"
)

// ConnectionService is the lifecycle surface the HTTP layer needs.
type ConnectionService interface {
	CreateConnectToken(ctx context.Context, userID, connectionID string) (string, error)
	RegisterItem(ctx context.Context, userID, itemID string) (*connection.Connection, error)
	ListConnections(ctx context.Context, userID string) ([]*connection.Connection, error)
	HandleItemEvent(ctx context.Context, event, itemID string) error
	Disconnect(ctx context.Context, userID, connectionID string) error
}

type ConnectionHandler struct {
	service       ConnectionService
	webhookSecret string
}

func NewConnectionHandler(service ConnectionService, webhookSecret string) *ConnectionHandler {
	return &ConnectionHandler{
		service:       service,
		webhookSecret: webhookSecret,
	}
}

type registerItemRequest struct {
	ItemID string `json:"itemId"`
}

// HandleConnections lists the user's connections (GET) or registers a
// freshly linked provider item as a new connection (POST).
func (h *ConnectionHandler) HandleConnections(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		connections, err := h.service.ListConnections(r.Context(), userID)
		if err != nil {
			log.Printf("Error listing connections for user %s: %v", userID, err)
			http.Error(w, "Failed to list connections", http.StatusInternalServerError)
			return
		}
		if connections == nil {
			connections = []*connection.Connection{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(connections)

	case http.MethodPost:
		var req registerItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ItemID == "" {
			http.Error(w, "itemId is required", http.StatusBadRequest)
			return
		}

		conn, err := h.service.RegisterItem(r.Context(), userID, req.ItemID)
		if err != nil {
			log.Printf("Error registering item %s for user %s: %v", req.ItemID, userID, err)
			http.Error(w, "Failed to register connection", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(conn)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleDisconnect removes a connection: DELETE /api/connections/{id}.
func (h *ConnectionHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	connectionID := strings.TrimPrefix(r.URL.Path, "/api/connections/")
	if connectionID == "" {
		http.Error(w, "Connection ID is required", http.StatusBadRequest)
		return
	}

	err := h.service.Disconnect(r.Context(), userID, connectionID)
	switch {
	case errors.Is(err, connection.ErrNotFound):
		http.Error(w, "Connection not found", http.StatusNotFound)
	case errors.Is(err, connection.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case err != nil:
		log.Printf("Error disconnecting %s for user %s: %v", connectionID, userID, err)
		http.Error(w, "Failed to disconnect", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type connectTokenRequest struct {
	ConnectionID string `json:"connectionId,omitempty"`
}

type connectTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// HandleConnectToken issues a widget token for linking a new bank or
// re-authenticating an existing connection.
func (h *ConnectionHandler) HandleConnectToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req connectTokenRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	token, err := h.service.CreateConnectToken(r.Context(), userID, req.ConnectionID)
	switch {
	case errors.Is(err, connection.ErrNotFound):
		http.Error(w, "Connection not found", http.StatusNotFound)
		return
	case errors.Is(err, connection.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	case err != nil:
		log.Printf("Error creating connect token for user %s: %v", userID, err)
		http.Error(w, "Failed to create connect token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(connectTokenResponse{AccessToken: token})
}

type webhookPayload struct {
	Event  string `json:"event"`
	ItemID string `json:"itemId"`
}

// HandleWebhook receives provider item events. The route is unauthenticated;
// when a webhook secret is configured the X-Webhook-Secret header must match.
func (h *ConnectionHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.webhookSecret != "" {
		provided := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Event == "" || payload.ItemID == "" {
		http.Error(w, "event and itemId are required", http.StatusBadRequest)
		return
	}

	if err := h.service.HandleItemEvent(r.Context(), payload.Event, payload.ItemID); err != nil {
		log.Printf("Error handling webhook %s for item %s: %v", payload.Event, payload.ItemID, err)
		http.Error(w, "Failed to process event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"received":true}`))
}
