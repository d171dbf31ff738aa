package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fluxo/internal/domain/connection"
	"fluxo/internal/domain/creditcard"
	"fluxo/internal/domain/transaction"
)

// MockConnectionRepository is a mock implementation of connection.Repository.
type MockConnectionRepository struct {
	ListByUserIDFunc func(ctx context.Context, userID string) ([]*connection.Connection, error)
}

func (m *MockConnectionRepository) Upsert(ctx context.Context, params connection.UpsertParams) (*connection.Connection, error) {
	return nil, nil
}
func (m *MockConnectionRepository) GetByID(ctx context.Context, id string) (*connection.Connection, error) {
	return nil, nil
}
func (m *MockConnectionRepository) GetByItemID(ctx context.Context, itemID string) (*connection.Connection, error) {
	return nil, nil
}
func (m *MockConnectionRepository) ListByUserID(ctx context.Context, userID string) ([]*connection.Connection, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}
func (m *MockConnectionRepository) ListActiveByUserID(ctx context.Context, userID string) ([]*connection.Connection, error) {
	return nil, nil
}
func (m *MockConnectionRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (m *MockConnectionRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	return nil
}
func (m *MockConnectionRepository) TouchLastSync(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (m *MockConnectionRepository) Delete(ctx context.Context, id string) error {
	return nil
}

// MockTransactionRepository is a mock implementation of transaction.Repository.
type MockTransactionRepository struct {
	ListByUserIDInRangeFunc func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error)
}

func (m *MockTransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) (*transaction.Transaction, error) {
	return nil, nil
}
func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	return nil, nil
}
func (m *MockTransactionRepository) ListByUserID(ctx context.Context, userID string) ([]*transaction.Transaction, error) {
	return nil, nil
}
func (m *MockTransactionRepository) ListByUserIDInRange(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
	if m.ListByUserIDInRangeFunc != nil {
		return m.ListByUserIDInRangeFunc(ctx, userID, from, to)
	}
	return nil, nil
}
func (m *MockTransactionRepository) CountByUserID(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

// MockAccountRepository is a mock implementation of creditcard.AccountRepository.
type MockAccountRepository struct {
	ListByUserIDFunc func(ctx context.Context, userID string) ([]*creditcard.Account, error)
}

func (m *MockAccountRepository) Upsert(ctx context.Context, params creditcard.UpsertAccountParams) (*creditcard.Account, error) {
	return nil, nil
}
func (m *MockAccountRepository) GetByProviderAccountID(ctx context.Context, providerAccountID string) (*creditcard.Account, error) {
	return nil, nil
}
func (m *MockAccountRepository) ListByUserID(ctx context.Context, userID string) ([]*creditcard.Account, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

// MockBillRepository is a mock implementation of creditcard.BillRepository.
type MockBillRepository struct {
	ListByUserIDFunc func(ctx context.Context, userID string) ([]*creditcard.Bill, error)
}

func (m *MockBillRepository) Upsert(ctx context.Context, params creditcard.UpsertBillParams) (*creditcard.Bill, error) {
	return nil, nil
}
func (m *MockBillRepository) ListByUserID(ctx context.Context, userID string) ([]*creditcard.Bill, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func mkDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func catPtr(s string) *string { return &s }

func newTestService(
	conns *MockConnectionRepository,
	txs *MockTransactionRepository,
	accounts *MockAccountRepository,
	bills *MockBillRepository,
) *Service {
	return NewService(conns, txs, accounts, bills, DefaultOptions())
}

func TestBuild_MarchScenario(t *testing.T) {
	now := mkDate(2024, 3, 25)
	marchTxs := []*transaction.Transaction{
		{ID: "1", UserID: "u1", Description: "Cliente Gama", Amount: 1000, Date: mkDate(2024, 3, 1), Type: transaction.TypeCredit},
		{ID: "2", UserID: "u1", Description: "Mercado Central", Amount: -200, Date: mkDate(2024, 3, 15), Type: transaction.TypeDebit, Category: catPtr("Food")},
		{ID: "3", UserID: "u1", Description: "Mercado Central", Amount: -50, Date: mkDate(2024, 3, 20), Type: transaction.TypeDebit, Category: catPtr("Food")},
	}

	svc := newTestService(
		&MockConnectionRepository{
			ListByUserIDFunc: func(ctx context.Context, userID string) ([]*connection.Connection, error) {
				return []*connection.Connection{{ID: "c1", UserID: userID, BankName: "Banco Teste", Status: connection.StatusActive}}, nil
			},
		},
		&MockTransactionRepository{
			ListByUserIDInRangeFunc: func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
				return marchTxs, nil
			},
		},
		&MockAccountRepository{},
		&MockBillRepository{},
	)

	snap, err := svc.Build(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if snap.Summary.MonthIncome != 1000 {
		t.Errorf("MonthIncome = %v, want 1000", snap.Summary.MonthIncome)
	}
	if snap.Summary.MonthExpenses != 250 {
		t.Errorf("MonthExpenses = %v, want 250", snap.Summary.MonthExpenses)
	}
	if snap.Summary.MonthProfit != 750 {
		t.Errorf("MonthProfit = %v, want 750", snap.Summary.MonthProfit)
	}
	if snap.SpendingDistribution["Food"] != 250 {
		t.Errorf(`SpendingDistribution["Food"] = %v, want 250`, snap.SpendingDistribution["Food"])
	}
	// Previous month had no activity: profit variation has no baseline.
	if snap.Summary.ProfitVariation != nil {
		t.Errorf("ProfitVariation = %v, want nil with zero baseline", *snap.Summary.ProfitVariation)
	}
	if len(snap.Connections) != 1 {
		t.Errorf("got %d connections, want 1", len(snap.Connections))
	}
	if len(snap.RawTransactions) != 3 {
		t.Errorf("got %d raw transactions, want 3", len(snap.RawTransactions))
	}
}

func TestBuild_EmptyButConnected(t *testing.T) {
	svc := newTestService(
		&MockConnectionRepository{
			ListByUserIDFunc: func(ctx context.Context, userID string) ([]*connection.Connection, error) {
				return []*connection.Connection{{ID: "c1", UserID: userID, BankName: "Banco Teste", Status: connection.StatusActive}}, nil
			},
		},
		&MockTransactionRepository{},
		&MockAccountRepository{},
		&MockBillRepository{},
	)

	snap, err := svc.Build(context.Background(), "u1", mkDate(2024, 3, 25))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if len(snap.Connections) != 1 {
		t.Fatalf("got %d connections, want 1", len(snap.Connections))
	}
	if snap.Summary.TotalBalance != 0 || snap.Summary.MonthIncome != 0 || snap.Summary.MonthExpenses != 0 {
		t.Errorf("summary not zeroed: %+v", snap.Summary)
	}
	if snap.SpendingDistribution == nil || len(snap.SpendingDistribution) != 0 {
		t.Errorf("SpendingDistribution = %v, want empty non-nil map", snap.SpendingDistribution)
	}
	if snap.RawTransactions == nil || len(snap.RawTransactions) != 0 {
		t.Errorf("RawTransactions = %v, want empty non-nil slice", snap.RawTransactions)
	}
	if snap.Insights == nil || len(snap.Insights) != 0 {
		t.Errorf("Insights = %v, want empty non-nil slice", snap.Insights)
	}
	if snap.Goals.MonthlyGoal != DefaultOptions().MonthlyGoal {
		t.Errorf("Goals.MonthlyGoal = %v, want default", snap.Goals.MonthlyGoal)
	}
}

func TestBuild_ConnectionFetchFatal(t *testing.T) {
	svc := newTestService(
		&MockConnectionRepository{
			ListByUserIDFunc: func(ctx context.Context, userID string) ([]*connection.Connection, error) {
				return nil, errors.New("database down")
			},
		},
		&MockTransactionRepository{},
		&MockAccountRepository{},
		&MockBillRepository{},
	)

	if _, err := svc.Build(context.Background(), "u1", mkDate(2024, 3, 25)); err == nil {
		t.Fatal("expected error when connection fetch fails")
	}
}

func TestBuild_TransactionFetchFatal(t *testing.T) {
	svc := newTestService(
		&MockConnectionRepository{},
		&MockTransactionRepository{
			ListByUserIDInRangeFunc: func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
				return nil, errors.New("database down")
			},
		},
		&MockAccountRepository{},
		&MockBillRepository{},
	)

	if _, err := svc.Build(context.Background(), "u1", mkDate(2024, 3, 25)); err == nil {
		t.Fatal("expected error when transaction fetch fails")
	}
}

func TestBuild_CardFetchDegrades(t *testing.T) {
	now := mkDate(2024, 3, 25)
	svc := newTestService(
		&MockConnectionRepository{},
		&MockTransactionRepository{
			ListByUserIDInRangeFunc: func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
				return []*transaction.Transaction{
					{ID: "1", UserID: "u1", Description: "Pagamento fatura", Amount: -500, Date: mkDate(2024, 3, 10), Type: transaction.TypeDebit},
				}, nil
			},
		},
		&MockAccountRepository{},
		&MockBillRepository{
			ListByUserIDFunc: func(ctx context.Context, userID string) ([]*creditcard.Bill, error) {
				return nil, errors.New("bill storage unavailable")
			},
		},
	)

	snap, err := svc.Build(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("card fetch failure should not be fatal, got %v", err)
	}
	if snap.CreditCardAnalysis.NextBillAmount != nil || snap.CreditCardAnalysis.TotalSpentMonth != 0 {
		t.Errorf("card panel not degraded to defaults: %+v", snap.CreditCardAnalysis)
	}
	if len(snap.RawTransactions) != 1 {
		t.Errorf("rest of snapshot should still be built, got %d transactions", len(snap.RawTransactions))
	}
}

func TestBuild_BothCardFetchesFailConcurrently(t *testing.T) {
	// Both card fetches fail at the same instant. The barrier makes the
	// failures land together so the degraded path is exercised under the
	// race detector.
	var barrier sync.WaitGroup
	barrier.Add(2)
	failTogether := func() error {
		barrier.Done()
		barrier.Wait()
		return errors.New("card storage unavailable")
	}

	svc := newTestService(
		&MockConnectionRepository{},
		&MockTransactionRepository{
			ListByUserIDInRangeFunc: func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
				return []*transaction.Transaction{
					{ID: "1", UserID: "u1", Description: "Cliente Gama", Amount: 100, Date: mkDate(2024, 3, 10), Type: transaction.TypeCredit},
				}, nil
			},
		},
		&MockAccountRepository{
			ListByUserIDFunc: func(ctx context.Context, userID string) ([]*creditcard.Account, error) {
				return nil, failTogether()
			},
		},
		&MockBillRepository{
			ListByUserIDFunc: func(ctx context.Context, userID string) ([]*creditcard.Bill, error) {
				return nil, failTogether()
			},
		},
	)

	snap, err := svc.Build(context.Background(), "u1", mkDate(2024, 3, 25))
	if err != nil {
		t.Fatalf("card fetch failures should not be fatal, got %v", err)
	}
	if snap.CreditCardAnalysis.NextBillAmount != nil || snap.CreditCardAnalysis.TotalSpentMonth != 0 {
		t.Errorf("card panel not degraded to defaults: %+v", snap.CreditCardAnalysis)
	}
	if len(snap.RawTransactions) != 1 {
		t.Errorf("rest of snapshot should still be built, got %d transactions", len(snap.RawTransactions))
	}
}

func TestBuild_RankingsSpanFetchedWindow(t *testing.T) {
	now := mkDate(2024, 3, 25)
	svc := newTestService(
		&MockConnectionRepository{},
		&MockTransactionRepository{
			ListByUserIDInRangeFunc: func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
				return []*transaction.Transaction{
					{ID: "1", UserID: "u1", Description: "Cliente Fevereiro", Amount: 900, Date: mkDate(2024, 2, 28), Type: transaction.TypeCredit},
					{ID: "2", UserID: "u1", Description: "Cliente Gama", Amount: 100, Date: mkDate(2024, 3, 10), Type: transaction.TypeCredit},
					{ID: "3", UserID: "u1", Description: "Fornecedor Antigo", Amount: -400, Date: mkDate(2024, 2, 15), Type: transaction.TypeDebit},
				}, nil
			},
		},
		&MockAccountRepository{},
		&MockBillRepository{},
	)

	snap, err := svc.Build(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	// The February client outranks the March one: rankings cover the whole
	// fetched window, while the summary stays scoped to the current month.
	if len(snap.TopClients) != 2 || snap.TopClients[0].Name != "Cliente Fevereiro" {
		t.Errorf("TopClients = %+v, want Cliente Fevereiro ranked first", snap.TopClients)
	}
	if len(snap.TopSuppliers) != 1 || snap.TopSuppliers[0].Name != "Fornecedor Antigo" {
		t.Errorf("TopSuppliers = %+v, want Fornecedor Antigo", snap.TopSuppliers)
	}
	if snap.Summary.MonthIncome != 100 {
		t.Errorf("MonthIncome = %v, want 100 (current month only)", snap.Summary.MonthIncome)
	}
}

func TestBuild_NextBillScenario(t *testing.T) {
	now := mkDate(2024, 3, 15)
	open := 300.0
	svc := newTestService(
		&MockConnectionRepository{},
		&MockTransactionRepository{
			ListByUserIDInRangeFunc: func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
				return []*transaction.Transaction{
					{ID: "1", UserID: "u1", Description: "Cliente Gama", Amount: 100, Date: mkDate(2024, 3, 10), Type: transaction.TypeCredit},
				}, nil
			},
		},
		&MockAccountRepository{},
		&MockBillRepository{
			ListByUserIDFunc: func(ctx context.Context, userID string) ([]*creditcard.Bill, error) {
				return []*creditcard.Bill{
					{ID: "b1", ProviderBillID: "p1", DueDate: mkDate(2024, 3, 20), Amount: 500, OpenAmount: &open, Status: creditcard.BillOpen},
				}, nil
			},
		},
	)

	snap, err := svc.Build(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	cc := snap.CreditCardAnalysis
	if cc.NextBillAmount == nil || *cc.NextBillAmount != 500 {
		t.Errorf("NextBillAmount = %v, want 500", cc.NextBillAmount)
	}
	if cc.NextBillDueDate == nil || *cc.NextBillDueDate != "2024-03-20" {
		t.Errorf("NextBillDueDate = %v, want 2024-03-20", cc.NextBillDueDate)
	}
	if cc.OpenBillAmount == nil || *cc.OpenBillAmount != 300 {
		t.Errorf("OpenBillAmount = %v, want 300", cc.OpenBillAmount)
	}
}

func TestBuild_FetchRangeCoversPreviousMonth(t *testing.T) {
	now := mkDate(2024, 3, 25)
	var gotFrom, gotTo time.Time
	svc := newTestService(
		&MockConnectionRepository{},
		&MockTransactionRepository{
			ListByUserIDInRangeFunc: func(ctx context.Context, userID string, from, to time.Time) ([]*transaction.Transaction, error) {
				gotFrom, gotTo = from, to
				return nil, nil
			},
		},
		&MockAccountRepository{},
		&MockBillRepository{},
	)

	if _, err := svc.Build(context.Background(), "u1", now); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if gotFrom.After(mkDate(2024, 2, 1)) {
		t.Errorf("fetch start %v does not cover previous month", gotFrom)
	}
	if !gotTo.Equal(mkDate(2024, 3, 31)) {
		t.Errorf("fetch end = %v, want end of current month", gotTo)
	}
}
