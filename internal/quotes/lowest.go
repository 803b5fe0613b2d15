package quotes

import (
	"github.com/angelmondragon/procurement-backend/pkg/numeric"
	"github.com/shopspring/decimal"
)

// Lowest returns the minimum positive quote any vendor gave for itemID.
// ok is false when no vendor quoted a positive number.
func Lowest(itemID string, details Details) (lowest decimal.Decimal, ok bool) {
	detail, found := details[itemID]
	if !found {
		return decimal.Zero, false
	}
	for _, vq := range detail.VendorQuotes {
		q := numeric.Parse(vq.Quote)
		if !q.IsPositive() {
			continue
		}
		if !ok || q.LessThan(lowest) {
			lowest = q
			ok = true
		}
	}
	return lowest, ok
}
