// Package insight derives the comparative metrics and natural-language
// observations shown on the dashboard: month-over-month profit variation,
// goal achievement, and threshold-based expense insights.
package insight

import (
	"fmt"
	"math"

	"fluxo/internal/domain/analytics"
)

// DefaultMonthlyGoal is the income target used when none is configured,
// in currency units.
const DefaultMonthlyGoal = 5000

// ProfitVariation computes the month-over-month profit change as a
// percentage of the previous month's absolute profit. It returns nil when
// there is no comparable baseline: a zero previous profit makes the
// percentage mathematically undefined, whether or not the current month
// moved. Non-finite intermediate results are also normalized to nil rather
// than leaking NaN/Inf to the caller.
func ProfitVariation(current, last float64) *float64 {
	if last == 0 {
		return nil
	}
	v := ((current - last) / math.Abs(last)) * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// GoalProgress reports how far the month's income got toward the configured
// goal, together with last month's figures for the comparison card.
type GoalProgress struct {
	MonthlyGoal       float64 `json:"monthlyGoal"`
	Achieved          float64 `json:"achieved"`
	Percentage        float64 `json:"percentage"`
	LastMonthIncome   float64 `json:"lastMonthIncome"`
	LastMonthExpenses float64 `json:"lastMonthExpenses"`
}

// EvaluateGoal computes the goal percentage, clamped to [0, 100] no matter
// how far income exceeds or falls short of the goal.
func EvaluateGoal(achieved, monthlyGoal, lastIncome, lastExpenses float64) GoalProgress {
	var pct float64
	if monthlyGoal > 0 {
		pct = math.Min(achieved/monthlyGoal*100, 100)
		if pct < 0 {
			pct = 0
		}
	}
	return GoalProgress{
		MonthlyGoal:       monthlyGoal,
		Achieved:          achieved,
		Percentage:        pct,
		LastMonthIncome:   lastIncome,
		LastMonthExpenses: lastExpenses,
	}
}

// Thresholds tune the insight rules. The defaults mirror the dashboard's
// original tuning: a 10-currency-unit floor below which last month is not a
// meaningful baseline, and ±20% bands for the increase/decrease rules.
type Thresholds struct {
	MinBaseline   float64
	IncreaseRatio float64
	DecreaseRatio float64
}

// DefaultThresholds returns the stock insight thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{MinBaseline: 10, IncreaseRatio: 1.2, DecreaseRatio: 0.8}
}

// Generate runs the rule-based insight pass. Rules are independent and
// additive: zero or more may fire. Expenses are the directly summed DEBIT
// totals of each month's window.
func Generate(currentExpenses, lastExpenses float64, topSuppliers []analytics.Entity, th Thresholds) []string {
	insights := []string{}

	if lastExpenses > th.MinBaseline && currentExpenses > lastExpenses*th.IncreaseRatio {
		pct := (currentExpenses - lastExpenses) / lastExpenses * 100
		insights = append(insights, fmt.Sprintf("📈 Suas despesas aumentaram %.0f%% em relação ao mês anterior.", pct))
	}
	if lastExpenses > th.MinBaseline && currentExpenses < lastExpenses*th.DecreaseRatio {
		pct := (lastExpenses - currentExpenses) / lastExpenses * 100
		insights = append(insights, fmt.Sprintf("📉 Suas despesas diminuíram %.0f%% em relação ao mês anterior!", pct))
	}
	if len(topSuppliers) > 0 {
		insights = append(insights, fmt.Sprintf("💡 Seu maior gasto este mês foi com %q.", topSuppliers[0].Name))
	}

	return insights
}
