package snapshot

import (
	"fluxo/internal/domain/analytics"
	"fluxo/internal/domain/connection"
	"fluxo/internal/domain/creditcard"
	"fluxo/internal/domain/insight"
	"fluxo/internal/domain/transaction"
)

// Summary holds the headline figures of the dashboard.
type Summary struct {
	TotalBalance    float64  `json:"totalBalance"`
	MonthIncome     float64  `json:"monthIncome"`
	MonthExpenses   float64  `json:"monthExpenses"`
	MonthProfit     float64  `json:"monthProfit"`
	ProfitVariation *float64 `json:"profitVariation"`
}

// CashFlow wraps the dense daily series so the JSON shape stays stable if
// other granularities are added later.
type CashFlow struct {
	Daily []analytics.DailyFlow `json:"daily"`
}

// Snapshot is the complete set of derived financial metrics for one user at
// one point in time. It is computed on demand and never persisted; every
// field is always present, empty rather than omitted.
type Snapshot struct {
	Summary              Summary                    `json:"summary"`
	SpendingDistribution map[string]float64         `json:"spendingDistribution"`
	SpendingBreakdown    []analytics.CategoryShare  `json:"spendingBreakdown"`
	Connections          []*connection.Connection   `json:"connections"`
	CreditCardAnalysis   creditcard.Analysis        `json:"creditCardAnalysis"`
	CashFlow             CashFlow                   `json:"cashFlow"`
	TopClients           []analytics.Entity         `json:"topClients"`
	TopSuppliers         []analytics.Entity         `json:"topSuppliers"`
	Goals                insight.GoalProgress       `json:"goals"`
	Insights             []string                   `json:"insights"`
	RawTransactions      []*transaction.Transaction `json:"rawTransactions"`
}
