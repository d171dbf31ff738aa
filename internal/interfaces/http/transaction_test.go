package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fluxo/internal/domain/transaction"
	"fluxo/internal/shared/middleware"
)

// MockTransactionRepo implements transaction.Repository for testing
type MockTransactionRepo struct {
	UpsertFunc              func(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error)
	GetByIDFunc             func(ctx context.Context, id string) (*transaction.Transaction, error)
	ListByUserIDFunc        func(ctx context.Context, userID string) ([]*transaction.Transaction, error)
	ListByUserIDInRangeFunc func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error)
	CountByUserIDFunc       func(ctx context.Context, userID string) (int64, error)
}

func (m *MockTransactionRepo) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockTransactionRepo) ListByUserID(ctx context.Context, userID string) ([]*transaction.Transaction, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockTransactionRepo) ListByUserIDInRange(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
	if m.ListByUserIDInRangeFunc != nil {
		return m.ListByUserIDInRangeFunc(ctx, userID, from, to)
	}
	return nil, nil
}

func (m *MockTransactionRepo) CountByUserID(ctx context.Context, userID string) (int64, error) {
	if m.CountByUserIDFunc != nil {
		return m.CountByUserIDFunc(ctx, userID)
	}
	return 0, nil
}

func authedRequest(method, target, userID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestHandleListTransactions(t *testing.T) {
	category := "food"
	sample := []*transaction.Transaction{
		{
			ID:          "tx-1",
			UserID:      "user-1",
			Description: "Grocery store",
			Amount:      -120.50,
			Date:        time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			Type:        transaction.TypeDebit,
			Category:    &category,
		},
	}

	tests := []struct {
		name           string
		target         string
		userID         string
		mockRepo       func() *MockTransactionRepo
		expectedStatus int
	}{
		{
			name:   "full listing",
			target: "/api/transactions",
			userID: "user-1",
			mockRepo: func() *MockTransactionRepo {
				return &MockTransactionRepo{
					ListByUserIDFunc: func(ctx context.Context, userID string) ([]*transaction.Transaction, error) {
						return sample, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "bounded listing",
			target: "/api/transactions?from=2024-03-01&to=2024-03-31",
			userID: "user-1",
			mockRepo: func() *MockTransactionRepo {
				return &MockTransactionRepo{
					ListByUserIDInRangeFunc: func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
						if from.Day() != 1 || to.Day() != 31 {
							t.Errorf("unexpected range %v..%v", from, to)
						}
						return sample, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "from without to",
			target:         "/api/transactions?from=2024-03-01",
			userID:         "user-1",
			mockRepo:       func() *MockTransactionRepo { return &MockTransactionRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid from",
			target:         "/api/transactions?from=march&to=2024-03-31",
			userID:         "user-1",
			mockRepo:       func() *MockTransactionRepo { return &MockTransactionRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "inverted range",
			target:         "/api/transactions?from=2024-03-31&to=2024-03-01",
			userID:         "user-1",
			mockRepo:       func() *MockTransactionRepo { return &MockTransactionRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unauthenticated",
			target:         "/api/transactions",
			userID:         "",
			mockRepo:       func() *MockTransactionRepo { return &MockTransactionRepo{} },
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(tt.mockRepo())
			req := authedRequest(http.MethodGet, tt.target, tt.userID)

			rr := httptest.NewRecorder()
			handler.HandleListTransactions(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleListTransactions_JSONBody(t *testing.T) {
	repo := &MockTransactionRepo{
		ListByUserIDFunc: func(ctx context.Context, userID string) ([]*transaction.Transaction, error) {
			return []*transaction.Transaction{
				{ID: "tx-1", Amount: 1000, Type: transaction.TypeCredit, Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	handler := NewTransactionHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleListTransactions(rr, authedRequest(http.MethodGet, "/api/transactions", "user-1"))

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got []*transaction.Transaction
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "tx-1" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestHandleListTransactions_CSVExport(t *testing.T) {
	balance := 4300.25
	repo := &MockTransactionRepo{
		ListByUserIDFunc: func(ctx context.Context, userID string) ([]*transaction.Transaction, error) {
			return []*transaction.Transaction{
				{
					ID:          "tx-1",
					Description: "Client payment",
					Amount:      1500,
					Date:        time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
					Type:        transaction.TypeCredit,
					Balance:     &balance,
				},
			}, nil
		},
	}
	handler := NewTransactionHandler(repo)

	rr := httptest.NewRecorder()
	handler.HandleListTransactions(rr, authedRequest(http.MethodGet, "/api/transactions?format=csv", "user-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "transactions.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != "id,date,description,amount,type,category,balance" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "tx-1,2024-03-05,Client payment,1500.00,CREDIT,,4300.25" {
		t.Errorf("row = %q", lines[1])
	}
}
