package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fluxo/internal/domain/snapshot"
)

// MockSnapshotBuilder implements SnapshotBuilder for testing
type MockSnapshotBuilder struct {
	BuildFunc func(ctx context.Context, userID string, now time.Time) (*snapshot.Snapshot, error)
}

func (m *MockSnapshotBuilder) Build(ctx context.Context, userID string, now time.Time) (*snapshot.Snapshot, error) {
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, userID, now)
	}
	return &snapshot.Snapshot{}, nil
}

func TestHandleGetDashboard(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		builder := &MockSnapshotBuilder{
			BuildFunc: func(ctx context.Context, userID string, now time.Time) (*snapshot.Snapshot, error) {
				if userID != "user-1" {
					t.Errorf("userID = %q", userID)
				}
				return &snapshot.Snapshot{
					Summary: snapshot.Summary{MonthIncome: 1000, MonthExpenses: 250, MonthProfit: 750},
				}, nil
			},
		}
		handler := NewDashboardHandler(builder)

		rr := httptest.NewRecorder()
		handler.HandleGetDashboard(rr, authedRequest(http.MethodGet, "/api/dashboard", "user-1"))

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var got snapshot.Snapshot
		if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		if got.Summary.MonthProfit != 750 {
			t.Errorf("monthProfit = %v, want 750", got.Summary.MonthProfit)
		}
	})

	t.Run("build failure", func(t *testing.T) {
		builder := &MockSnapshotBuilder{
			BuildFunc: func(ctx context.Context, userID string, now time.Time) (*snapshot.Snapshot, error) {
				return nil, errors.New("db down")
			},
		}
		handler := NewDashboardHandler(builder)

		rr := httptest.NewRecorder()
		handler.HandleGetDashboard(rr, authedRequest(http.MethodGet, "/api/dashboard", "user-1"))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rr.Code)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		handler := NewDashboardHandler(&MockSnapshotBuilder{})

		rr := httptest.NewRecorder()
		handler.HandleGetDashboard(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		handler := NewDashboardHandler(&MockSnapshotBuilder{})

		rr := httptest.NewRecorder()
		handler.HandleGetDashboard(rr, authedRequest(http.MethodPost, "/api/dashboard", "user-1"))

		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rr.Code)
		}
	})
}
