package creditcard

import (
	"context"
	"errors"
	"time"
)

// Bill statuses as reported by the aggregator.
const (
	BillOpen     = "OPEN"
	BillClosed   = "CLOSED"
	BillPaid     = "PAID"
	BillOverdue  = "OVERDUE"
	BillUpcoming = "UPCOMING"
)

var billStatuses = map[string]struct{}{
	BillOpen:     {},
	BillClosed:   {},
	BillPaid:     {},
	BillOverdue:  {},
	BillUpcoming: {},
}

// Domain errors
var (
	ErrAccountNotFound = errors.New("credit card account not found")
	ErrBillNotFound    = errors.New("credit card bill not found")
	ErrInvalidStatus   = errors.New("invalid bill status")
)

// Account is a credit-card instrument belonging to a bank connection.
type Account struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"userId"`
	ConnectionID         string    `json:"bankConnectionId"`
	ProviderAccountID    string    `json:"pluggyAccountId"` // Provider's account ID (natural key)
	Name                 *string   `json:"name,omitempty"`
	CreditLimit          *float64  `json:"creditLimit,omitempty"`
	AvailableCreditLimit *float64  `json:"availableCreditLimit,omitempty"`
	CloseDay             *int      `json:"closeDay,omitempty"`
	DueDay               *int      `json:"dueDay,omitempty"`
	Brand                *string   `json:"brand,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Bill is one billing cycle (statement) for a card account. The core only
// reads and classifies bills; their state is owned by the sync side.
type Bill struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"creditCardAccountId"`
	ProviderBillID string     `json:"pluggyBillId"` // Provider's bill ID (natural key)
	DueDate        time.Time  `json:"dueDate"`
	CloseDate      *time.Time `json:"closeDate,omitempty"`
	Amount         float64    `json:"amount"`
	OpenAmount     *float64   `json:"openAmount,omitempty"`
	PaidAmount     *float64   `json:"paidAmount,omitempty"`
	MinimumPayment *float64   `json:"minimumPayment,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// IsValidStatus checks if the provided bill status is valid.
func IsValidStatus(s string) bool {
	_, ok := billStatuses[s]
	return ok
}

// UpsertAccountParams contains parameters for upserting a card account by
// its provider account ID.
type UpsertAccountParams struct {
	UserID               string
	ConnectionID         string
	ProviderAccountID    string
	Name                 *string
	CreditLimit          *float64
	AvailableCreditLimit *float64
	CloseDay             *int
	DueDay               *int
	Brand                *string
}

// Validate validates the account upsert parameters.
func (p UpsertAccountParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.ConnectionID == "" {
		return errors.New("connection ID is required")
	}
	if p.ProviderAccountID == "" {
		return errors.New("provider account ID is required")
	}
	return nil
}

// UpsertBillParams contains parameters for upserting a bill by its provider
// bill ID. AccountID must be the internal account ID already resolved by the
// parent upsert phase.
type UpsertBillParams struct {
	AccountID      string
	ProviderBillID string
	DueDate        time.Time
	CloseDate      *time.Time
	Amount         float64
	OpenAmount     *float64
	PaidAmount     *float64
	MinimumPayment *float64
	Status         string
}

// Validate validates the bill upsert parameters.
func (p UpsertBillParams) Validate() error {
	if p.AccountID == "" {
		return errors.New("account ID is required")
	}
	if p.ProviderBillID == "" {
		return errors.New("provider bill ID is required")
	}
	if p.DueDate.IsZero() {
		return errors.New("due date is required")
	}
	if !IsValidStatus(p.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// AccountRepository defines storage operations for card accounts.
type AccountRepository interface {
	Upsert(ctx context.Context, params UpsertAccountParams) (*Account, error)
	GetByProviderAccountID(ctx context.Context, providerAccountID string) (*Account, error)
	ListByUserID(ctx context.Context, userID string) ([]*Account, error)
}

// BillRepository defines storage operations for bills.
type BillRepository interface {
	Upsert(ctx context.Context, params UpsertBillParams) (*Bill, error)
	// ListByUserID returns all bills belonging to the user's card
	// accounts, ordered by due date ascending.
	ListByUserID(ctx context.Context, userID string) ([]*Bill, error)
}
