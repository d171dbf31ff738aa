package analytics

import (
	"math"
	"sort"
	"strings"

	"fluxo/internal/domain/transaction"
)

// OtherCategory is the synthetic bucket the long tail of categories is
// merged into for display.
const OtherCategory = "Outros"

// MaxCategorySlices is the number of slices the distribution chart shows
// before collapsing the remainder into the "Other" bucket.
const MaxCategorySlices = 5

// CategoryShare is one slice of the spending distribution. When the slice is
// the synthetic "Other" bucket, Constituents lists the categories it merged
// and their individual amounts.
type CategoryShare struct {
	Category     string          `json:"category"`
	Amount       float64         `json:"amount"`
	Constituents []CategoryShare `json:"constituents,omitempty"`
}

// CollapseDistribution ranks the distribution by amount descending and, when
// there are more than MaxCategorySlices distinct categories, keeps the
// MaxCategorySlices-1 largest and merges the rest into an "Other" slice
// whose amount is their sum. Ties rank by first-seen order.
func CollapseDistribution(d *Distribution) []CategoryShare {
	shares := d.Shares()
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Amount > shares[j].Amount
	})

	if len(shares) <= MaxCategorySlices {
		return shares
	}

	top := shares[:MaxCategorySlices-1]
	tail := shares[MaxCategorySlices-1:]

	other := CategoryShare{Category: OtherCategory}
	for _, s := range tail {
		other.Amount += s.Amount
		other.Constituents = append(other.Constituents, s)
	}

	out := make([]CategoryShare, 0, MaxCategorySlices)
	out = append(out, top...)
	out = append(out, other)
	return out
}

// Entity is a ranked client or supplier.
type Entity struct {
	Name        string  `json:"name"`
	TotalAmount float64 `json:"totalAmount"`
}

// TopEntityLimit is how many clients/suppliers the ranking returns.
const TopEntityLimit = 5

// DefaultEntityDenylist filters generic banking descriptions out of the
// client/supplier rankings. The terms are tuned for Brazilian Portuguese
// statement descriptions; deployments targeting other locales override them
// through configuration.
var DefaultEntityDenylist = []string{
	"pagamento",
	"transferencia",
	"pix",
	"fatura",
	"compra",
	"debito aut",
	"rendimento",
	"tarifa",
}

// DefaultEntityMinNameLength rejects descriptions too short to identify a
// counterparty.
const DefaultEntityMinNameLength = 4

// EntityFilter decides which transaction descriptions may appear in the
// client/supplier rankings. It is a named, independently testable predicate
// so the word list can be tuned without touching the ranking math.
type EntityFilter struct {
	Denylist      []string
	MinNameLength int
}

// DefaultEntityFilter returns the filter with the stock denylist.
func DefaultEntityFilter() EntityFilter {
	return EntityFilter{
		Denylist:      DefaultEntityDenylist,
		MinNameLength: DefaultEntityMinNameLength,
	}
}

// Allows reports whether name may appear as a ranked entity.
func (f EntityFilter) Allows(name string) bool {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < f.MinNameLength {
		return false
	}
	lower := strings.ToLower(name)
	for _, term := range f.Denylist {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// TopEntities groups transactions of the given type by normalized
// description (trimmed, matched case-insensitively, displayed with the
// casing first seen), sums absolute amounts per entity, and returns the top
// TopEntityLimit by total descending. Entries failing the filter never
// appear.
func TopEntities(txs []*transaction.Transaction, txType string, filter EntityFilter) []Entity {
	totals := make(map[string]float64)
	display := make(map[string]string)
	var order []string

	for _, tx := range txs {
		if tx.Type != txType {
			continue
		}
		name := strings.TrimSpace(tx.Description)
		if !filter.Allows(name) {
			continue
		}
		key := strings.ToLower(name)
		if _, seen := totals[key]; !seen {
			order = append(order, key)
			display[key] = name
		}
		totals[key] += math.Abs(tx.Amount)
	}

	entities := make([]Entity, 0, len(order))
	for _, key := range order {
		entities = append(entities, Entity{Name: display[key], TotalAmount: totals[key]})
	}
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].TotalAmount > entities[j].TotalAmount
	})

	if len(entities) > TopEntityLimit {
		entities = entities[:TopEntityLimit]
	}
	return entities
}
