package transaction

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDescription is used when the aggregator delivers a record with an
// empty description.
const DefaultDescription = "Sem descrição"

// Date formats the aggregator has been observed to use for transaction dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// RawRecord is a ledger entry as delivered by the aggregator or the storage
// layer: amounts and balances arrive as strings, dates in several formats,
// and the type flag may be missing entirely.
type RawRecord struct {
	ID           string
	UserID       string
	ConnectionID string
	Description  string
	Amount       string
	Date         string
	Type         string
	Category     *string
	Balance      *string
}

// Normalize converts a raw record into a canonical Transaction.
//
// An unparseable date is the only fatal condition: such a record cannot be
// assigned to any window, so it is rejected (the caller skips it and keeps
// the batch going). A non-numeric amount degrades to 0, a non-numeric
// balance to nil. The type is taken from the explicit flag when present,
// otherwise inferred from the sign of the amount.
func Normalize(rec RawRecord) (Transaction, error) {
	date, err := parseDate(rec.Date)
	if err != nil {
		return Transaction{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	amount := parseAmount(rec.Amount)

	txType := strings.ToUpper(strings.TrimSpace(rec.Type))
	if txType != TypeCredit && txType != TypeDebit {
		if amount >= 0 {
			txType = TypeCredit
		} else {
			txType = TypeDebit
		}
	}

	description := strings.TrimSpace(rec.Description)
	if description == "" {
		description = DefaultDescription
	}

	var category *string
	if rec.Category != nil && strings.TrimSpace(*rec.Category) != "" {
		c := strings.TrimSpace(*rec.Category)
		category = &c
	}

	var balance *float64
	if rec.Balance != nil {
		if b, err := decimal.NewFromString(strings.TrimSpace(*rec.Balance)); err == nil {
			f := b.InexactFloat64()
			balance = &f
		}
	}

	return Transaction{
		ID:           rec.ID,
		UserID:       rec.UserID,
		ConnectionID: rec.ConnectionID,
		Description:  description,
		Amount:       amount,
		Date:         date,
		Type:         txType,
		Category:     category,
		Balance:      balance,
	}, nil
}

// thousandsSeparated matches amounts whose commas sit in thousands
// positions, like "1,234.50". A decimal-comma string ("1234,56") does not
// match and must not have its comma stripped: that would shift the scale.
var thousandsSeparated = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)

// parseAmount parses a monetary string with decimal precision, returning 0
// for anything non-numeric. Only thousands-separator commas are stripped;
// any other comma makes the string unparseable and the amount degrades to 0.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if thousandsSeparated.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// parseDate parses a calendar date and truncates any time component,
// normalizing to midnight UTC so window comparisons are by calendar day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty transaction date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable transaction date %q", s)
}
