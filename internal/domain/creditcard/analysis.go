package creditcard

import (
	"strings"
	"time"

	"fluxo/internal/domain/period"
	"fluxo/internal/domain/transaction"
)

// Statuses that matter for the dashboard card: bills a user can still act on.
var relevantStatuses = map[string]struct{}{
	BillOpen:     {},
	BillUpcoming: {},
	BillOverdue:  {},
}

// IsRelevant reports whether a bill should be considered for the next-bill
// and open-amount figures. PAID and CLOSED bills are history.
func IsRelevant(b *Bill) bool {
	_, ok := relevantStatuses[b.Status]
	return ok
}

// NextBill returns the relevant bill with the earliest due date on or after
// today, or nil when every relevant bill is already past due or none exist.
// Ties on the due date keep the first bill in input order.
func NextBill(bills []*Bill, now time.Time) *Bill {
	today := period.Date(now)
	var next *Bill
	for _, b := range bills {
		if !IsRelevant(b) {
			continue
		}
		due := period.Date(b.DueDate)
		if due.Before(today) {
			continue
		}
		if next == nil || due.Before(period.Date(next.DueDate)) {
			next = b
		}
	}
	return next
}

// OpenAmount returns the outstanding amount of a bill. Only OPEN and OVERDUE
// bills carry a meaningful open amount; when the provider omits it the total
// amount stands in for it.
func OpenAmount(b *Bill) *float64 {
	if b.Status != BillOpen && b.Status != BillOverdue {
		return nil
	}
	if b.OpenAmount != nil {
		return b.OpenAmount
	}
	amount := b.Amount
	return &amount
}

// PaymentMatcher recognizes checking-account transactions that are actually
// credit card bill payments, so card spending can be surfaced even when no
// bill data is available. Terms are matched case-insensitively as substrings.
type PaymentMatcher struct {
	CategoryTerms    []string
	DescriptionTerms []string
}

// DefaultPaymentMatcher returns the matcher tuned for the pt-BR bank feeds
// the dashboard was built against.
func DefaultPaymentMatcher() PaymentMatcher {
	return PaymentMatcher{
		CategoryTerms:    []string{"credit_card_payment"},
		DescriptionTerms: []string{"pagamento fatura", "pagto cartao"},
	}
}

// Matches reports whether a transaction looks like a card bill payment.
func (m PaymentMatcher) Matches(t *transaction.Transaction) bool {
	if t.Category != nil {
		cat := strings.ToLower(*t.Category)
		for _, term := range m.CategoryTerms {
			if strings.Contains(cat, term) {
				return true
			}
		}
	}
	desc := strings.ToLower(t.Description)
	for _, term := range m.DescriptionTerms {
		if strings.Contains(desc, term) {
			return true
		}
	}
	return false
}

// Analysis is the credit card panel of the dashboard snapshot.
type Analysis struct {
	TotalSpentMonth float64  `json:"totalSpentMonth"`
	NextBillAmount  *float64 `json:"nextBillAmount"`
	NextBillDueDate *string  `json:"nextBillDueDate"`
	OpenBillAmount  *float64 `json:"openBillAmount"`
}

// Analyze combines the month's card spending estimate with the upcoming
// bill figures. monthTxs should already be restricted to the current month;
// spending is the absolute sum of DEBIT transactions the matcher recognizes
// as card payments.
func Analyze(monthTxs []*transaction.Transaction, bills []*Bill, matcher PaymentMatcher, now time.Time) Analysis {
	var a Analysis

	for _, t := range monthTxs {
		if t.Type != transaction.TypeDebit {
			continue
		}
		if matcher.Matches(t) {
			amount := t.Amount
			if amount < 0 {
				amount = -amount
			}
			a.TotalSpentMonth += amount
		}
	}

	if next := NextBill(bills, now); next != nil {
		amount := next.Amount
		a.NextBillAmount = &amount
		due := period.Date(next.DueDate).Format("2006-01-02")
		a.NextBillDueDate = &due
		a.OpenBillAmount = OpenAmount(next)
	}

	return a
}
