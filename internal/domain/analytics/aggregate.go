// Package analytics computes the summary metrics the dashboard is built
// from: income/expense totals per window, the latest known balance, spending
// per category, a dense daily cash-flow series, and top client/supplier
// rankings. Everything here is pure: the same transactions and the same
// window always produce the same figures.
package analytics

import (
	"math"

	"fluxo/internal/domain/period"
	"fluxo/internal/domain/transaction"
)

// Figures holds the income/expense totals for one window. Expenses are
// reported as a positive magnitude; Profit = Income - Expenses always.
type Figures struct {
	Income       float64
	Expenses     float64
	Profit       float64
	Transactions []*transaction.Transaction // the window's transactions, input order preserved
}

// MonthlyFigures computes income, expenses and profit over the transactions
// falling inside the window. Transactions outside the window are excluded
// entirely.
func MonthlyFigures(txs []*transaction.Transaction, w period.Window) Figures {
	var f Figures
	for _, tx := range txs {
		if !w.Contains(tx.Date) {
			continue
		}
		f.Transactions = append(f.Transactions, tx)
		switch tx.Type {
		case transaction.TypeCredit:
			f.Income += tx.Amount
		case transaction.TypeDebit:
			f.Expenses += math.Abs(tx.Amount)
		}
	}
	f.Profit = f.Income - f.Expenses
	return f
}

// TotalBalance returns the balance attached to the most recent transaction
// (by calendar date) that carries one, or 0 when no transaction has a
// balance. Ties on the same date are broken by input order, which is
// date-descending as delivered by the repository.
func TotalBalance(txs []*transaction.Transaction) float64 {
	var best *transaction.Transaction
	for _, tx := range txs {
		if tx.Balance == nil {
			continue
		}
		if best == nil || tx.Date.After(best.Date) {
			best = tx
		}
	}
	if best == nil {
		return 0
	}
	return *best.Balance
}

// DailyFlow is one day of the cash-flow series.
type DailyFlow struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// DailyCashFlow produces one entry per calendar day in the window, with
// explicit zeros for days without activity. The series is dense by
// construction so the chart never has gaps.
func DailyCashFlow(txs []*transaction.Transaction, w period.Window) []DailyFlow {
	type bucket struct {
		income  float64
		expense float64
	}
	byDay := make(map[string]*bucket)
	for _, tx := range txs {
		if !w.Contains(tx.Date) {
			continue
		}
		key := tx.Date.Format("2006-01-02")
		b := byDay[key]
		if b == nil {
			b = &bucket{}
			byDay[key] = b
		}
		switch tx.Type {
		case transaction.TypeCredit:
			b.income += tx.Amount
		case transaction.TypeDebit:
			b.expense += math.Abs(tx.Amount)
		}
	}

	days := w.Days()
	flows := make([]DailyFlow, 0, len(days))
	for _, day := range days {
		key := day.Format("2006-01-02")
		flow := DailyFlow{Date: key}
		if b, ok := byDay[key]; ok {
			flow.Income = b.income
			flow.Expense = b.expense
		}
		flows = append(flows, flow)
	}
	return flows
}

// Distribution accumulates spending per category while remembering the
// order categories were first seen, so that ranking ties can be broken by
// stable input order.
type Distribution struct {
	totals map[string]float64
	order  []string
}

// NewDistribution returns an empty distribution.
func NewDistribution() *Distribution {
	return &Distribution{totals: make(map[string]float64)}
}

// Add accumulates amount under category.
func (d *Distribution) Add(category string, amount float64) {
	if _, seen := d.totals[category]; !seen {
		d.order = append(d.order, category)
	}
	d.totals[category] += amount
}

// Len returns the number of distinct categories.
func (d *Distribution) Len() int { return len(d.order) }

// Map returns category -> total. The returned map is a copy.
func (d *Distribution) Map() map[string]float64 {
	m := make(map[string]float64, len(d.totals))
	for k, v := range d.totals {
		m[k] = v
	}
	return m
}

// Shares returns the distribution as a slice in first-seen order.
func (d *Distribution) Shares() []CategoryShare {
	shares := make([]CategoryShare, 0, len(d.order))
	for _, cat := range d.order {
		shares = append(shares, CategoryShare{Category: cat, Amount: d.totals[cat]})
	}
	return shares
}

// SpendingDistribution sums absolute amounts per category over DEBIT
// transactions that carry a category. Uncategorized transactions are
// excluded, not bucketed. The caller passes the transactions of the window
// it cares about (normally the current month's).
func SpendingDistribution(txs []*transaction.Transaction) *Distribution {
	d := NewDistribution()
	for _, tx := range txs {
		if tx.Type != transaction.TypeDebit || tx.Category == nil {
			continue
		}
		d.Add(*tx.Category, math.Abs(tx.Amount))
	}
	return d
}
