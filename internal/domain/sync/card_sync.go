package sync

import (
	"context"
	"fmt"
	"log"

	"fluxo/internal/domain/connection"
	"fluxo/internal/domain/creditcard"
	"fluxo/internal/infrastructure/pluggy"
)

// CardSyncResult contains the results of a credit card sync operation
type CardSyncResult struct {
	UserID          string
	AccountsSynced  int
	BillsFound      int
	BillsSynced     int
	BillsDropped    int // Bills whose parent account could not be resolved
	InvalidStatuses int
	Errors          []string
}

// CardSyncService ingests credit card accounts and their bills. Accounts are
// upserted first so every bill can resolve its parent; a bill whose account
// is unknown is dropped with a warning rather than stored as an orphan.
type CardSyncService struct {
	client         pluggy.ClientInterface
	connectionRepo connection.Repository
	accountRepo    creditcard.AccountRepository
	billRepo       creditcard.BillRepository
}

// NewCardSyncService creates a new credit card sync service
func NewCardSyncService(
	client pluggy.ClientInterface,
	connectionRepo connection.Repository,
	accountRepo creditcard.AccountRepository,
	billRepo creditcard.BillRepository,
) *CardSyncService {
	return &CardSyncService{
		client:         client,
		connectionRepo: connectionRepo,
		accountRepo:    accountRepo,
		billRepo:       billRepo,
	}
}

// SyncUserCards syncs card accounts and bills for all of a user's active
// connections.
func (s *CardSyncService) SyncUserCards(ctx context.Context, userID string) (*CardSyncResult, error) {
	result := &CardSyncResult{
		UserID: userID,
		Errors: []string{},
	}

	conns, err := s.connectionRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	for _, conn := range conns {
		if err := s.syncConnection(ctx, conn, result); err != nil {
			errMsg := fmt.Sprintf("connection %s (%s): %v", conn.ID, conn.BankName, err)
			result.Errors = append(result.Errors, errMsg)
			log.Printf("Error: %s", errMsg)
		}
	}

	log.Printf("Card sync completed for user %s: accounts=%d, bills found=%d, synced=%d, dropped=%d, errors=%d",
		userID, result.AccountsSynced, result.BillsFound, result.BillsSynced, result.BillsDropped, len(result.Errors))

	return result, nil
}

func (s *CardSyncService) syncConnection(ctx context.Context, conn *connection.Connection, result *CardSyncResult) error {
	accounts, err := s.client.ListAccounts(ctx, conn.ItemID)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	for i := range accounts.Results {
		acc := &accounts.Results[i]
		if !acc.IsCreditCard() {
			continue
		}

		stored, err := s.upsertAccount(ctx, conn, acc)
		if err != nil {
			errMsg := fmt.Sprintf("account %s: %v", acc.ID, err)
			result.Errors = append(result.Errors, errMsg)
			log.Printf("Error: %s", errMsg)
			continue
		}
		result.AccountsSynced++

		if err := s.syncBills(ctx, stored, acc.ID, result); err != nil {
			errMsg := fmt.Sprintf("bills for account %s: %v", acc.ID, err)
			result.Errors = append(result.Errors, errMsg)
			log.Printf("Error: %s", errMsg)
		}
	}

	return nil
}

// upsertAccount stores one provider card account keyed by its provider ID.
func (s *CardSyncService) upsertAccount(ctx context.Context, conn *connection.Connection, acc *pluggy.Account) (*creditcard.Account, error) {
	params := creditcard.UpsertAccountParams{
		UserID:            conn.UserID,
		ConnectionID:      conn.ID,
		ProviderAccountID: acc.ID,
	}
	if acc.Name != "" {
		name := acc.Name
		params.Name = &name
	}
	if cd := acc.CreditData; cd != nil {
		limit, err := cd.GetCreditLimit()
		if err != nil {
			return nil, err
		}
		available, err := cd.GetAvailableCreditLimit()
		if err != nil {
			return nil, err
		}
		params.CreditLimit = limit
		params.AvailableCreditLimit = available
		params.CloseDay = cd.BalanceCloseDay
		params.DueDay = cd.BalanceDueDay
		if cd.Brand != "" {
			brand := cd.Brand
			params.Brand = &brand
		}
	}

	stored, err := s.accountRepo.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}
	return stored, nil
}

// syncBills pulls and upserts the bills of one card account. Each bill is
// tolerated individually: a malformed bill is dropped, not fatal.
func (s *CardSyncService) syncBills(ctx context.Context, stored *creditcard.Account, providerAccountID string, result *CardSyncResult) error {
	bills, err := s.client.ListBills(ctx, providerAccountID)
	if err != nil {
		return fmt.Errorf("failed to list bills: %w", err)
	}
	result.BillsFound += len(bills.Results)

	for i := range bills.Results {
		apiBill := &bills.Results[i]

		if stored == nil {
			log.Printf("Dropping bill %s: no stored account for provider account %s", apiBill.ID, providerAccountID)
			result.BillsDropped++
			continue
		}
		if !creditcard.IsValidStatus(apiBill.Status) {
			log.Printf("Dropping bill %s: unknown status %q", apiBill.ID, apiBill.Status)
			result.InvalidStatuses++
			continue
		}

		params, err := billParams(stored.ID, apiBill)
		if err != nil {
			log.Printf("Dropping bill %s: %v", apiBill.ID, err)
			result.BillsDropped++
			continue
		}

		if _, err := s.billRepo.Upsert(ctx, params); err != nil {
			return fmt.Errorf("failed to upsert bill %s: %w", apiBill.ID, err)
		}
		result.BillsSynced++
	}

	return nil
}

func billParams(accountID string, apiBill *pluggy.Bill) (creditcard.UpsertBillParams, error) {
	dueDate, err := apiBill.GetDueDate()
	if err != nil {
		return creditcard.UpsertBillParams{}, err
	}
	if dueDate == nil {
		return creditcard.UpsertBillParams{}, fmt.Errorf("bill has no due date")
	}
	closeDate, err := apiBill.GetCloseDate()
	if err != nil {
		return creditcard.UpsertBillParams{}, err
	}
	amount, err := apiBill.GetTotalAmount()
	if err != nil {
		return creditcard.UpsertBillParams{}, err
	}
	openAmount, err := apiBill.GetOpenAmount()
	if err != nil {
		return creditcard.UpsertBillParams{}, err
	}
	paidAmount, err := apiBill.GetPaidAmount()
	if err != nil {
		return creditcard.UpsertBillParams{}, err
	}
	minimumPayment, err := apiBill.GetMinimumPayment()
	if err != nil {
		return creditcard.UpsertBillParams{}, err
	}

	return creditcard.UpsertBillParams{
		AccountID:      accountID,
		ProviderBillID: apiBill.ID,
		DueDate:        *dueDate,
		CloseDate:      closeDate,
		Amount:         amount,
		OpenAmount:     openAmount,
		PaidAmount:     paidAmount,
		MinimumPayment: minimumPayment,
		Status:         apiBill.Status,
	}, nil
}

// SyncAllUsers syncs card data for every user that has at least one active
// connection.
func (s *CardSyncService) SyncAllUsers(ctx context.Context) ([]*CardSyncResult, error) {
	userIDs, err := s.connectionRepo.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with connections: %w", err)
	}

	var results []*CardSyncResult
	for _, userID := range userIDs {
		result, err := s.SyncUserCards(ctx, userID)
		if err != nil {
			log.Printf("Failed to sync cards for user %s: %v", userID, err)
			results = append(results, &CardSyncResult{
				UserID: userID,
				Errors: []string{err.Error()},
			})
			continue
		}
		results = append(results, result)
	}

	return results, nil
}
