package benchmark

import (
	"sort"

	"github.com/angelmondragon/procurement-backend/pkg/numeric"
	"github.com/shopspring/decimal"
)

// AdditionalChargesCategory items are never compared against market rates.
const AdditionalChargesCategory = "Additional Charges"

var discountFactor = decimal.RequireFromString("0.98")

// Record is one reference market rate. Rate holds the raw upstream value.
type Record struct {
	ItemID string `json:"item_id"`
	Unit   string `json:"unit"`
	Rate   any    `json:"rate"`
}

type rateKey struct {
	itemID string
	unit   string
}

// Index resolves target rates by (item id, unit), or by item id alone in
// legacy mode.
type Index struct {
	byKey  map[rateKey]Record
	byItem map[string]Record
	legacy bool
}

// Option configures an Index.
type Option func(*Index)

// WithLegacyItemKey keys lookups by item id only. When several units exist for
// one item the record with the lowest unit in sort order wins.
func WithLegacyItemKey() Option {
	return func(i *Index) { i.legacy = true }
}

// NewIndex builds an index over records. Later duplicates of the same
// (item, unit) pair overwrite earlier ones.
func NewIndex(records []Record, opts ...Option) *Index {
	idx := &Index{
		byKey:  make(map[rateKey]Record, len(records)),
		byItem: make(map[string]Record, len(records)),
	}
	for _, opt := range opts {
		opt(idx)
	}
	for _, r := range records {
		idx.byKey[rateKey{itemID: r.ItemID, unit: r.Unit}] = r
	}

	sorted := make([]Record, 0, len(idx.byKey))
	for _, r := range idx.byKey {
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].ItemID != sorted[b].ItemID {
			return sorted[a].ItemID < sorted[b].ItemID
		}
		return sorted[a].Unit < sorted[b].Unit
	})
	for _, r := range sorted {
		if _, seen := idx.byItem[r.ItemID]; !seen {
			idx.byItem[r.ItemID] = r
		}
	}
	return idx
}

// Legacy reports whether lookups ignore the unit.
func (i *Index) Legacy() bool {
	return i != nil && i.legacy
}

// Lookup returns the discounted target rate for the item, if one is usable.
func (i *Index) Lookup(itemID, unit string) (decimal.Decimal, bool) {
	if i == nil {
		return decimal.Zero, false
	}
	var (
		rec   Record
		found bool
	)
	if i.legacy {
		rec, found = i.byItem[itemID]
	} else {
		rec, found = i.byKey[rateKey{itemID: itemID, unit: unit}]
	}
	if !found {
		return decimal.Zero, false
	}
	return Discount(rec.Rate)
}

// Discount applies the 2% safety discount to a raw rate. Absent, unparsable
// and non-positive rates (including the -1 "no rate" sentinel) yield ok=false.
func Discount(raw any) (decimal.Decimal, bool) {
	rate, ok := numeric.ParseStrict(raw)
	if !ok || !rate.IsPositive() {
		return decimal.Zero, false
	}
	return rate.Mul(discountFactor), true
}
