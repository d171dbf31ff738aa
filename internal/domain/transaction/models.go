package transaction

import (
	"context"
	"errors"
	"time"
)

// Transaction types as reported by the aggregator.
const (
	TypeCredit = "CREDIT"
	TypeDebit  = "DEBIT"
)

// Domain errors
var (
	ErrNotFound     = errors.New("transaction not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Transaction is a single ledger entry in canonical form. Every field has a
// guaranteed type: Amount is a finite float, Date is a calendar date at
// midnight UTC, Type is always CREDIT or DEBIT.
type Transaction struct {
	ID           string     `json:"id"` // Provider's transaction ID (natural key)
	UserID       string     `json:"userId"`
	ConnectionID string     `json:"bankConnectionId"`
	Description  string     `json:"description"`
	Amount       float64    `json:"amount"`
	Date         time.Time  `json:"transactionDate"`
	Type         string     `json:"transactionType"` // CREDIT or DEBIT
	Category     *string    `json:"category,omitempty"`
	Balance      *float64   `json:"balance,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UpsertParams contains parameters for upserting a transaction by its
// provider-issued ID. Re-ingesting the same ID updates the stored record.
type UpsertParams struct {
	ID           string
	UserID       string
	ConnectionID string
	Description  string
	Amount       float64
	Date         time.Time
	Type         string
	Category     *string
	Balance      *float64
}

// Validate validates the upsert parameters.
func (p UpsertParams) Validate() error {
	if p.ID == "" {
		return errors.New("transaction ID is required")
	}
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.ConnectionID == "" {
		return errors.New("connection ID is required")
	}
	if p.Type != TypeCredit && p.Type != TypeDebit {
		return errors.New("transaction type must be CREDIT or DEBIT")
	}
	if p.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	return nil
}

// Repository defines storage operations for transactions.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Transaction, error)
	GetByID(ctx context.Context, id string) (*Transaction, error)
	// ListByUserID returns all transactions for a user ordered by
	// transaction date descending.
	ListByUserID(ctx context.Context, userID string) ([]*Transaction, error)
	// ListByUserIDInRange returns transactions with from <= date <= to,
	// ordered by transaction date descending.
	ListByUserIDInRange(ctx context.Context, userID string, from, to time.Time) ([]*Transaction, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
}
