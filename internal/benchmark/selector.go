package benchmark

import (
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/shopspring/decimal"
)

// LowestQuoter resolves the lowest positive quote for an item.
type LowestQuoter interface {
	Lowest(itemID string, details quotes.Details) (decimal.Decimal, bool)
}

type lowestFunc func(string, quotes.Details) (decimal.Decimal, bool)

func (f lowestFunc) Lowest(itemID string, details quotes.Details) (decimal.Decimal, bool) {
	return f(itemID, details)
}

// Signals carries the per-unit inputs and the chosen benchmark for one item.
// Nil pointers mean the signal is unavailable.
type Signals struct {
	Target    *decimal.Decimal
	Lowest    *decimal.Decimal
	Benchmark *decimal.Decimal
}

// Selector picks the benchmark price for an item.
type Selector struct {
	rates  *Index
	lowest LowestQuoter
}

// NewSelector builds a selector. A nil quoter uses the uncached resolver.
func NewSelector(rates *Index, lowest LowestQuoter) *Selector {
	if lowest == nil {
		lowest = lowestFunc(quotes.Lowest)
	}
	return &Selector{rates: rates, lowest: lowest}
}

// Select returns the benchmark for one item: the smaller of the discounted
// target rate and the lowest quote, whichever are available. Additional
// charges get no benchmark.
func (s *Selector) Select(itemID, unit, category string, details quotes.Details) Signals {
	var out Signals
	if category == AdditionalChargesCategory {
		return out
	}
	if target, ok := s.rates.Lookup(itemID, unit); ok {
		out.Target = &target
	}
	if lowest, ok := s.lowest.Lowest(itemID, details); ok {
		out.Lowest = &lowest
	}

	switch {
	case out.Target != nil && out.Lowest != nil:
		b := decimal.Min(*out.Target, *out.Lowest)
		out.Benchmark = &b
	case out.Target != nil:
		b := *out.Target
		out.Benchmark = &b
	case out.Lowest != nil:
		b := *out.Lowest
		out.Benchmark = &b
	}
	return out
}
