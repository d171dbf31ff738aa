package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fluxo/internal/shared/auth"
)

// MockAPIKeyRepo implements auth.APIKeyRepository for testing
type MockAPIKeyRepo struct {
	CreateFunc        func(ctx context.Context, key *auth.APIKey) error
	GetByIDFunc       func(ctx context.Context, id string) (*auth.APIKey, error)
	ListByUserIDFunc  func(ctx context.Context, userID string) ([]*auth.APIKey, error)
	TouchLastUsedFunc func(ctx context.Context, id string, at time.Time) error
	RevokeFunc        func(ctx context.Context, id string, at time.Time) error
}

func (m *MockAPIKeyRepo) Create(ctx context.Context, key *auth.APIKey) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, key)
	}
	return nil
}

func (m *MockAPIKeyRepo) GetByID(ctx context.Context, id string) (*auth.APIKey, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockAPIKeyRepo) ListByUserID(ctx context.Context, userID string) ([]*auth.APIKey, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockAPIKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if m.TouchLastUsedFunc != nil {
		return m.TouchLastUsedFunc(ctx, id, at)
	}
	return nil
}

func (m *MockAPIKeyRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, id, at)
	}
	return nil
}

func TestHandleAPIKeys_Create(t *testing.T) {
	var stored *auth.APIKey
	repo := &MockAPIKeyRepo{
		CreateFunc: func(ctx context.Context, key *auth.APIKey) error {
			stored = key
			return nil
		},
	}
	handler := NewAPIKeyHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleAPIKeys(rr, authedJSONRequest(http.MethodPost, "/api/keys", "user-1", map[string]string{"name": "ci"}))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if stored == nil || stored.UserID != "user-1" || stored.Name != "ci" {
		t.Fatalf("stored key = %+v", stored)
	}

	var resp createAPIKeyResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	// Plaintext is <keyID>.<secret> and is never persisted as-is.
	if !strings.HasPrefix(resp.Key, resp.ID+".") {
		t.Errorf("plaintext %q does not carry key ID %q", resp.Key, resp.ID)
	}
	if strings.Contains(stored.SecretHash, strings.TrimPrefix(resp.Key, resp.ID+".")) {
		t.Error("secret stored in plaintext")
	}
}

func TestHandleAPIKeys_CreateRequiresName(t *testing.T) {
	handler := NewAPIKeyHandler(&MockAPIKeyRepo{})

	rr := httptest.NewRecorder()
	handler.HandleAPIKeys(rr, authedJSONRequest(http.MethodPost, "/api/keys", "user-1", map[string]string{"name": "  "}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleAPIKeys_List(t *testing.T) {
	repo := &MockAPIKeyRepo{
		ListByUserIDFunc: func(ctx context.Context, userID string) ([]*auth.APIKey, error) {
			return []*auth.APIKey{{ID: "key-1", UserID: userID, Name: "ci", SecretHash: "bcrypt-hash"}}, nil
		},
	}
	handler := NewAPIKeyHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleAPIKeys(rr, authedRequest(http.MethodGet, "/api/keys", "user-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "bcrypt-hash") {
		t.Error("secret hash leaked into listing")
	}
}

func TestHandleRevokeAPIKey(t *testing.T) {
	tests := []struct {
		name           string
		userID         string
		key            *auth.APIKey
		expectedStatus int
	}{
		{
			name:           "success",
			userID:         "user-1",
			key:            &auth.APIKey{ID: "key-1", UserID: "user-1"},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "not found",
			userID:         "user-1",
			key:            nil,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "foreign key",
			userID:         "user-2",
			key:            &auth.APIKey{ID: "key-1", UserID: "user-1"},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revoked := false
			repo := &MockAPIKeyRepo{
				GetByIDFunc: func(ctx context.Context, id string) (*auth.APIKey, error) {
					return tt.key, nil
				},
				RevokeFunc: func(ctx context.Context, id string, at time.Time) error {
					revoked = true
					return nil
				},
			}
			handler := NewAPIKeyHandler(repo)

			rr := httptest.NewRecorder()
			handler.HandleRevokeAPIKey(rr, authedRequest(http.MethodDelete, "/api/keys/key-1", tt.userID))

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
			if tt.expectedStatus == http.StatusNoContent && !revoked {
				t.Error("key was not revoked")
			}
			if tt.expectedStatus != http.StatusNoContent && revoked {
				t.Error("key revoked despite failed precondition")
			}
		})
	}
}
