package scheduler

import (
	"context"
	"fmt"
	"log"

	"fluxo/internal/domain/sync"
)

// UserSyncJob refreshes one user's stored data from the aggregator:
// transactions first, then credit card accounts and bills.
type UserSyncJob struct {
	userID   string
	txSync   *sync.TransactionSyncService
	cardSync *sync.CardSyncService
}

func NewUserSyncJob(userID string, txSync *sync.TransactionSyncService, cardSync *sync.CardSyncService) *UserSyncJob {
	return &UserSyncJob{
		userID:   userID,
		txSync:   txSync,
		cardSync: cardSync,
	}
}

// Execute runs the transaction sync, then the card sync. A transaction sync
// failure skips the card sync so bills are never reconciled against stale
// connections.
func (j *UserSyncJob) Execute(ctx context.Context) error {
	log.Printf("Starting sync for user %s", j.userID)

	txResult, err := j.txSync.SyncUserTransactions(ctx, j.userID)
	if err != nil {
		return fmt.Errorf("transaction sync failed: %w", err)
	}
	log.Printf("Transaction sync for user %s: connections=%d found=%d created=%d updated=%d skipped=%d errors=%d",
		j.userID, txResult.ConnectionsSynced, txResult.TransactionsFound,
		txResult.Created, txResult.Updated, txResult.Skipped, len(txResult.Errors))

	cardResult, err := j.cardSync.SyncUserCards(ctx, j.userID)
	if err != nil {
		return fmt.Errorf("card sync failed: %w", err)
	}
	log.Printf("Card sync for user %s: accounts=%d bills=%d synced=%d dropped=%d errors=%d",
		j.userID, cardResult.AccountsSynced, cardResult.BillsFound,
		cardResult.BillsSynced, cardResult.BillsDropped, len(cardResult.Errors))

	if n := len(txResult.Errors) + len(cardResult.Errors); n > 0 {
		return fmt.Errorf("sync completed with %d errors", n)
	}
	return nil
}

func (j *UserSyncJob) UserID() string {
	return j.userID
}

func (j *UserSyncJob) Description() string {
	return fmt.Sprintf("Full sync (transactions + cards) for user %s", j.userID)
}

// UserLister provides the users that need syncing.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SyncJobProvider builds one UserSyncJob per user with an active connection.
// Plugged into Config.JobProvider.
func SyncJobProvider(users UserLister, txSync *sync.TransactionSyncService, cardSync *sync.CardSyncService) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		userIDs, err := users.ListUserIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users for sync: %w", err)
		}

		jobs := make([]Job, 0, len(userIDs))
		for _, userID := range userIDs {
			jobs = append(jobs, NewUserSyncJob(userID, txSync, cardSync))
		}
		return jobs, nil
	}
}
