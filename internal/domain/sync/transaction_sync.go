// Package sync ingests connections, transactions and credit card data from
// the Pluggy API into storage. It owns all write-side reconciliation: the
// snapshot side only reads what this package upserts by natural key.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"fluxo/internal/domain/connection"
	"fluxo/internal/domain/period"
	"fluxo/internal/domain/transaction"
	"fluxo/internal/infrastructure/pluggy"
)

// TransactionSyncResult contains the results of a transaction sync operation
type TransactionSyncResult struct {
	UserID            string
	ConnectionsSynced int
	TransactionsFound int
	Created           int
	Updated           int
	Skipped           int // Records that failed normalization
	Errors            []string
}

// TransactionSyncService pulls transactions for every active connection of a
// user, normalizes them and upserts by the provider's transaction ID.
type TransactionSyncService struct {
	client          pluggy.ClientInterface
	connectionRepo  connection.Repository
	transactionRepo transaction.Repository
	retentionDays   int
	now             func() time.Time
}

// NewTransactionSyncService creates a new transaction sync service.
// retentionDays bounds how far back transactions are requested from the
// provider.
func NewTransactionSyncService(
	client pluggy.ClientInterface,
	connectionRepo connection.Repository,
	transactionRepo transaction.Repository,
	retentionDays int,
) *TransactionSyncService {
	if retentionDays < 1 {
		retentionDays = period.DefaultRetentionDays
	}
	return &TransactionSyncService{
		client:          client,
		connectionRepo:  connectionRepo,
		transactionRepo: transactionRepo,
		retentionDays:   retentionDays,
		now:             time.Now,
	}
}

// SyncUserTransactions syncs all transactions for a specific user across all
// of their active connections. A failing connection is marked with an error
// status and recorded in the result; the remaining connections still sync.
func (s *TransactionSyncService) SyncUserTransactions(ctx context.Context, userID string) (*TransactionSyncResult, error) {
	result := &TransactionSyncResult{
		UserID: userID,
		Errors: []string{},
	}

	conns, err := s.connectionRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	// Previous month figures need history beyond the chart retention.
	now := s.now()
	from := period.Rolling(now, s.retentionDays).Start
	if prev := period.PreviousMonth(now).Start; prev.Before(from) {
		from = prev
	}
	fromStr := from.Format("2006-01-02")

	for _, conn := range conns {
		if err := s.syncConnection(ctx, conn, fromStr, result); err != nil {
			errMsg := fmt.Sprintf("connection %s (%s): %v", conn.ID, conn.BankName, err)
			result.Errors = append(result.Errors, errMsg)
			log.Printf("Error: %s", errMsg)
			if statusErr := s.connectionRepo.UpdateStatus(ctx, conn.ID, connection.StatusError); statusErr != nil {
				log.Printf("Warning: failed to mark connection %s as errored: %v", conn.ID, statusErr)
			}
			continue
		}
		result.ConnectionsSynced++
		if err := s.connectionRepo.TouchLastSync(ctx, conn.ID, now); err != nil {
			log.Printf("Warning: failed to update last sync for connection %s: %v", conn.ID, err)
		}
	}

	log.Printf("Transaction sync completed for user %s: connections=%d, found=%d, created=%d, updated=%d, skipped=%d, errors=%d",
		userID, result.ConnectionsSynced, result.TransactionsFound, result.Created, result.Updated, result.Skipped, len(result.Errors))

	return result, nil
}

// syncConnection pulls all bank accounts of one connection and ingests their
// transactions. Credit card accounts are handled by the card sync service.
func (s *TransactionSyncService) syncConnection(ctx context.Context, conn *connection.Connection, from string, result *TransactionSyncResult) error {
	accounts, err := s.client.ListAccounts(ctx, conn.ItemID)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	for _, acc := range accounts.Results {
		if acc.IsCreditCard() {
			continue
		}

		txs, err := s.client.ListTransactions(ctx, acc.ID, from)
		if err != nil {
			return fmt.Errorf("failed to list transactions for account %s: %w", acc.ID, err)
		}
		result.TransactionsFound += len(txs)

		for i := range txs {
			if err := s.processTransaction(ctx, conn, &txs[i], result); err != nil {
				errMsg := fmt.Sprintf("transaction %s: %v", txs[i].ID, err)
				result.Errors = append(result.Errors, errMsg)
				log.Printf("Error: %s", errMsg)
			}
		}
	}

	return nil
}

// processTransaction normalizes and upserts a single provider transaction.
// A record that fails normalization is skipped, not fatal to the batch.
func (s *TransactionSyncService) processTransaction(
	ctx context.Context,
	conn *connection.Connection,
	apiTx *pluggy.Transaction,
	result *TransactionSyncResult,
) error {
	rec := transaction.RawRecord{
		ID:           apiTx.ID,
		UserID:       conn.UserID,
		ConnectionID: conn.ID,
		Description:  apiTx.Description,
		Amount:       apiTx.AmountString,
		Date:         apiTx.DateString,
		Type:         apiTx.Type,
		Category:     apiTx.Category,
		Balance:      apiTx.BalanceString,
	}

	tx, err := transaction.Normalize(rec)
	if err != nil {
		log.Printf("Skipping transaction %s: %v", apiTx.ID, err)
		result.Skipped++
		return nil
	}

	existing, err := s.transactionRepo.GetByID(ctx, tx.ID)
	if err != nil {
		return fmt.Errorf("failed to check existing transaction: %w", err)
	}

	params := transaction.UpsertParams{
		ID:           tx.ID,
		UserID:       tx.UserID,
		ConnectionID: tx.ConnectionID,
		Description:  tx.Description,
		Amount:       tx.Amount,
		Date:         tx.Date,
		Type:         tx.Type,
		Category:     tx.Category,
		Balance:      tx.Balance,
	}
	if _, err := s.transactionRepo.Upsert(ctx, params); err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}

	if existing == nil {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

// SyncAllUsers syncs transactions for every user that has at least one
// active connection. A failing user does not stop the sweep.
func (s *TransactionSyncService) SyncAllUsers(ctx context.Context) ([]*TransactionSyncResult, error) {
	userIDs, err := s.connectionRepo.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with connections: %w", err)
	}

	var results []*TransactionSyncResult
	for _, userID := range userIDs {
		result, err := s.SyncUserTransactions(ctx, userID)
		if err != nil {
			log.Printf("Failed to sync transactions for user %s: %v", userID, err)
			results = append(results, &TransactionSyncResult{
				UserID: userID,
				Errors: []string{err.Error()},
			})
			continue
		}
		results = append(results, result)
	}

	return results, nil
}
