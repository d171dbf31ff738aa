package pluggy

import (
	"context"
)

// ClientInterface defines the methods required from the Pluggy API client
type ClientInterface interface {
	GetItem(ctx context.Context, itemID string) (*Item, error)
	DeleteItem(ctx context.Context, itemID string) error
	ListAccounts(ctx context.Context, itemID string) (*AccountResponse, error)
	ListTransactions(ctx context.Context, accountID string, from string) ([]Transaction, error)
	ListBills(ctx context.Context, accountID string) (*BillResponse, error)
	CreateConnectToken(ctx context.Context, itemID string) (*ConnectTokenResponse, error)
}
