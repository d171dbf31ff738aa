package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"fluxo/internal/shared/auth"
	"fluxo/internal/shared/middleware"
)

type APIKeyHandler struct {
	repo auth.APIKeyRepository
}

func NewAPIKeyHandler(repo auth.APIKeyRepository) *APIKeyHandler {
	return &APIKeyHandler{repo: repo}
}

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

type createAPIKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"` // plaintext, shown only at creation
	CreatedAt time.Time `json:"createdAt"`
}

// HandleAPIKeys lists the user's API keys (GET) or issues a new one (POST).
// The plaintext key appears only in the creation response; only its hash is
// stored.
func (h *APIKeyHandler) HandleAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		keys, err := h.repo.ListByUserID(r.Context(), userID)
		if err != nil {
			log.Printf("Error listing API keys for user %s: %v", userID, err)
			http.Error(w, "Failed to list API keys", http.StatusInternalServerError)
			return
		}
		if keys == nil {
			keys = []*auth.APIKey{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(keys)

	case http.MethodPost:
		var req createAPIKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		key, plaintext, err := auth.GenerateAPIKey(userID, req.Name)
		if err != nil {
			log.Printf("Error generating API key for user %s: %v", userID, err)
			http.Error(w, "Failed to create API key", http.StatusInternalServerError)
			return
		}
		if err := h.repo.Create(r.Context(), key); err != nil {
			log.Printf("Error storing API key for user %s: %v", userID, err)
			http.Error(w, "Failed to create API key", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(createAPIKeyResponse{
			ID:        key.ID,
			Name:      key.Name,
			Key:       plaintext,
			CreatedAt: key.CreatedAt,
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRevokeAPIKey revokes a key: DELETE /api/keys/{id}. Revoked keys stay
// listed so their history remains visible.
func (h *APIKeyHandler) HandleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	keyID := strings.TrimPrefix(r.URL.Path, "/api/keys/")
	if keyID == "" {
		http.Error(w, "Key ID is required", http.StatusBadRequest)
		return
	}

	key, err := h.repo.GetByID(r.Context(), keyID)
	if err != nil {
		log.Printf("Error getting API key %s: %v", keyID, err)
		http.Error(w, "Failed to get API key", http.StatusInternalServerError)
		return
	}
	if key == nil {
		http.Error(w, "API key not found", http.StatusNotFound)
		return
	}
	if key.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.repo.Revoke(r.Context(), keyID, time.Now()); err != nil {
		log.Printf("Error revoking API key %s: %v", keyID, err)
		http.Error(w, "Failed to revoke API key", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
