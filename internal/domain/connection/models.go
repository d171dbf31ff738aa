package connection

import (
	"context"
	"errors"
	"time"
)

// Connection statuses. Transitions are driven by sync outcomes and provider
// webhook events; the snapshot side only reads them.
const (
	StatusActive       = "active"
	StatusSyncing      = "syncing"
	StatusLoginError   = "login_error"
	StatusOutdated     = "outdated"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
)

var validStatuses = map[string]struct{}{
	StatusActive:       {},
	StatusSyncing:      {},
	StatusLoginError:   {},
	StatusOutdated:     {},
	StatusDisconnected: {},
	StatusError:        {},
}

// Domain errors
var (
	ErrNotFound      = errors.New("connection not found")
	ErrForbidden     = errors.New("access forbidden")
	ErrInvalidStatus = errors.New("invalid connection status")
)

// Connection links a user to one authenticated bank login session (the
// provider calls this an "item"). One connection can expose multiple
// accounts at the same institution.
type Connection struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	ItemID     string     `json:"itemId"` // Provider's item ID (UUID string)
	BankName   string     `json:"bankName"`
	Status     string     `json:"status"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// UpsertParams contains parameters for upserting a connection by its
// provider item ID.
type UpsertParams struct {
	UserID   string
	ItemID   string
	BankName string
	Status   string
}

// Validate validates the upsert parameters.
func (p UpsertParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.ItemID == "" {
		return errors.New("item ID is required")
	}
	if p.BankName == "" {
		return errors.New("bank name is required")
	}
	if !IsValidStatus(p.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// IsValidStatus checks if the provided status is valid.
func IsValidStatus(s string) bool {
	_, ok := validStatuses[s]
	return ok
}

// Repository defines storage operations for bank connections.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Connection, error)
	GetByID(ctx context.Context, id string) (*Connection, error)
	GetByItemID(ctx context.Context, itemID string) (*Connection, error)
	ListByUserID(ctx context.Context, userID string) ([]*Connection, error)
	ListActiveByUserID(ctx context.Context, userID string) ([]*Connection, error)
	// ListUserIDs returns the distinct user IDs that have at least one
	// active connection. Used by the scheduler to fan out sync jobs.
	ListUserIDs(ctx context.Context) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	TouchLastSync(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
