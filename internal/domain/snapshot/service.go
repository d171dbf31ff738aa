// Package snapshot assembles the per-user dashboard snapshot from stored
// connections, transactions and credit card data. Every computation is pure
// given its inputs and the injected clock, so results are deterministic and
// safe to recompute on every request.
package snapshot

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"fluxo/internal/domain/analytics"
	"fluxo/internal/domain/connection"
	"fluxo/internal/domain/creditcard"
	"fluxo/internal/domain/insight"
	"fluxo/internal/domain/period"
	"fluxo/internal/domain/transaction"
)

// Options tune the snapshot computation. Zero values fall back to the stock
// dashboard configuration.
type Options struct {
	MonthlyGoal    float64
	ChartDays      int
	RetentionDays  int
	EntityFilter   analytics.EntityFilter
	PaymentMatcher creditcard.PaymentMatcher
	Thresholds     insight.Thresholds
}

// DefaultOptions returns the stock dashboard configuration.
func DefaultOptions() Options {
	return Options{
		MonthlyGoal:    insight.DefaultMonthlyGoal,
		ChartDays:      period.DefaultChartDays,
		RetentionDays:  period.DefaultRetentionDays,
		EntityFilter:   analytics.DefaultEntityFilter(),
		PaymentMatcher: creditcard.DefaultPaymentMatcher(),
		Thresholds:     insight.DefaultThresholds(),
	}
}

// Service computes dashboard snapshots. It only reads; all writes belong to
// the sync side.
type Service struct {
	connections connection.Repository
	txs         transaction.Repository
	accounts    creditcard.AccountRepository
	bills       creditcard.BillRepository
	opts        Options
}

// NewService creates a snapshot service.
func NewService(
	connections connection.Repository,
	txs transaction.Repository,
	accounts creditcard.AccountRepository,
	bills creditcard.BillRepository,
	opts Options,
) *Service {
	if opts.MonthlyGoal <= 0 {
		opts.MonthlyGoal = insight.DefaultMonthlyGoal
	}
	if opts.RetentionDays < 1 {
		opts.RetentionDays = period.DefaultRetentionDays
	}
	if opts.ChartDays < 1 {
		opts.ChartDays = period.DefaultChartDays
	}
	return &Service{
		connections: connections,
		txs:         txs,
		accounts:    accounts,
		bills:       bills,
		opts:        opts,
	}
}

// Build computes the snapshot for a user as of now. Connection and
// transaction fetch failures abort the build; credit card fetch failures
// degrade the card panel to its empty defaults and are logged only.
func (s *Service) Build(ctx context.Context, userID string, now time.Time) (*Snapshot, error) {
	currentMonth := period.CurrentMonth(now)
	previousMonth := period.PreviousMonth(now)
	retention := period.Rolling(now, s.opts.RetentionDays)

	fetchStart := retention.Start
	if previousMonth.Start.Before(fetchStart) {
		fetchStart = previousMonth.Start
	}

	var (
		conns    []*connection.Connection
		txs      []*transaction.Transaction
		accounts []*creditcard.Account
		bills    []*creditcard.Bill
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		conns, err = s.connections.ListByUserID(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetching connections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.txs.ListByUserIDInRange(gctx, userID, fetchStart, currentMonth.End)
		if err != nil {
			return fmt.Errorf("fetching transactions: %w", err)
		}
		return nil
	})
	// The card panel degrades as a unit: if either card fetch fails, the
	// snapshot is still built with the panel at its empty defaults. Each
	// goroutine records its own error; they are only combined after Wait.
	var accountsErr, billsErr error
	g.Go(func() error {
		var err error
		accounts, err = s.accounts.ListByUserID(gctx, userID)
		if err != nil {
			log.Printf("Snapshot: credit card accounts unavailable for user %s: %v", userID, err)
			accountsErr = err
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bills, err = s.bills.ListByUserID(gctx, userID)
		if err != nil {
			log.Printf("Snapshot: credit card bills unavailable for user %s: %v", userID, err)
			billsErr = err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if accountsErr != nil || billsErr != nil {
		accounts = nil
		bills = nil
	}

	if conns == nil {
		conns = []*connection.Connection{}
	}

	// No financial activity yet: return a complete but empty snapshot so
	// the UI can distinguish this from "no account connected".
	if len(txs) == 0 && len(bills) == 0 {
		return emptySnapshot(conns, s.opts.MonthlyGoal), nil
	}

	current := analytics.MonthlyFigures(txs, currentMonth)
	last := analytics.MonthlyFigures(txs, previousMonth)

	distribution := analytics.SpendingDistribution(current.Transactions)

	// Rankings cover the whole fetched window, not just the current month,
	// so a client paid late in the previous month still ranks.
	topClients := analytics.TopEntities(txs, transaction.TypeCredit, s.opts.EntityFilter)
	topSuppliers := analytics.TopEntities(txs, transaction.TypeDebit, s.opts.EntityFilter)

	// The chart window trails ChartDays behind now but extends to month end
	// so the series always lines up with the calendar axis.
	flowWindow := period.Window{Start: period.Rolling(now, s.opts.ChartDays).Start, End: currentMonth.End}

	// Without any card account or bill the panel stays at its zero shape;
	// the payment heuristic alone is not evidence of card usage.
	var cardAnalysis creditcard.Analysis
	if len(accounts) > 0 || len(bills) > 0 {
		cardAnalysis = creditcard.Analyze(current.Transactions, bills, s.opts.PaymentMatcher, now)
	}

	snap := &Snapshot{
		Summary: Summary{
			TotalBalance:    analytics.TotalBalance(txs),
			MonthIncome:     current.Income,
			MonthExpenses:   current.Expenses,
			MonthProfit:     current.Profit,
			ProfitVariation: insight.ProfitVariation(current.Profit, last.Profit),
		},
		SpendingDistribution: distribution.Map(),
		SpendingBreakdown:    analytics.CollapseDistribution(distribution),
		Connections:          conns,
		CreditCardAnalysis:   cardAnalysis,
		CashFlow:             CashFlow{Daily: analytics.DailyCashFlow(txs, flowWindow)},
		TopClients:           topClients,
		TopSuppliers:         topSuppliers,
		Goals:                insight.EvaluateGoal(current.Income, s.opts.MonthlyGoal, last.Income, last.Expenses),
		Insights:             insight.Generate(current.Expenses, last.Expenses, topSuppliers, s.opts.Thresholds),
		RawTransactions:      txs,
	}
	return snap, nil
}

func emptySnapshot(conns []*connection.Connection, monthlyGoal float64) *Snapshot {
	return &Snapshot{
		SpendingDistribution: map[string]float64{},
		SpendingBreakdown:    []analytics.CategoryShare{},
		Connections:          conns,
		CashFlow:             CashFlow{Daily: []analytics.DailyFlow{}},
		TopClients:           []analytics.Entity{},
		TopSuppliers:         []analytics.Entity{},
		Goals:                insight.EvaluateGoal(0, monthlyGoal, 0, 0),
		Insights:             []string{},
		RawTransactions:      []*transaction.Transaction{},
	}
}
