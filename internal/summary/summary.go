package summary

import (
	"sort"

	"github.com/angelmondragon/procurement-backend/internal/benchmark"
	"github.com/angelmondragon/procurement-backend/internal/documents"
	"github.com/angelmondragon/procurement-backend/internal/quotes"
	"github.com/angelmondragon/procurement-backend/pkg/numeric"
	"github.com/shopspring/decimal"
)

// Benchmarker picks the reference price for one item.
type Benchmarker interface {
	Select(itemID, unit, category string, details quotes.Details) benchmark.Signals
}

// DisplayItem is a line item with its computed amounts.
type DisplayItem struct {
	documents.LineItem

	Amount             decimal.Decimal  `json:"amount"`
	AmountInclTax      decimal.Decimal  `json:"amount_incl_tax"`
	TargetRateValue    *decimal.Decimal `json:"target_rate_value"`
	TargetAmount       *decimal.Decimal `json:"target_amount"`
	LowestQuotedAmount *decimal.Decimal `json:"lowest_quoted_amount"`
	SavingLoss         decimal.Decimal  `json:"saving_loss"`

	// Reserved; never populated.
	ThreeMonthsLowestAmount *decimal.Decimal `json:"three_months_lowest_amount"`
	ItemEstimate            *decimal.Decimal `json:"item_estimate"`
}

// VendorSummary rolls up the items assigned to one vendor.
type VendorSummary struct {
	VendorID        string          `json:"vendor_id"`
	VendorName      string          `json:"vendor_name"`
	Items           []DisplayItem   `json:"items"`
	Total           decimal.Decimal `json:"total"`
	TotalInclGst    decimal.Decimal `json:"total_incl_gst"`
	TotalSavingLoss decimal.Decimal `json:"total_saving_loss"`
}

// Result is the output of Aggregate.
type Result struct {
	DelayedItems         []DisplayItem             `json:"delayed_items"`
	VendorSummary        map[string]*VendorSummary `json:"vendor_summary"`
	DelayedTotalExclGst  decimal.Decimal           `json:"delayed_total_excl_gst"`
	DelayedTotalInclGst  decimal.Decimal           `json:"delayed_total_incl_gst"`
	ApprovalTotalExclGst decimal.Decimal           `json:"approval_total_excl_gst"`
	ApprovalTotalInclGst decimal.Decimal           `json:"approval_total_incl_gst"`
	TotalSavingLoss      decimal.Decimal           `json:"total_saving_loss"`
}

// Aggregate partitions items into delayed and vendor-assigned buckets and
// accumulates the vendor and grand totals. It has no side effects. A nil
// selector computes no benchmarks.
func Aggregate(items []documents.LineItem, details quotes.Details, selector Benchmarker) Result {
	out := Result{
		DelayedItems:  []DisplayItem{},
		VendorSummary: map[string]*VendorSummary{},
	}

	for _, item := range items {
		amount := item.Quantity.Mul(item.Quote)
		display := DisplayItem{
			LineItem:      item,
			Amount:        amount,
			AmountInclTax: numeric.WithTax(amount, item.Tax),
		}

		if !item.Assigned() {
			out.DelayedItems = append(out.DelayedItems, display)
			out.DelayedTotalExclGst = out.DelayedTotalExclGst.Add(display.Amount)
			out.DelayedTotalInclGst = out.DelayedTotalInclGst.Add(display.AmountInclTax)
			continue
		}

		if selector != nil {
			applySignals(&display, selector.Select(item.ItemID, item.Unit, item.Category, details))
		}

		vs, ok := out.VendorSummary[item.Vendor]
		if !ok {
			vs = &VendorSummary{VendorID: item.Vendor, VendorName: item.Vendor, Items: []DisplayItem{}}
			out.VendorSummary[item.Vendor] = vs
		}
		vs.Items = append(vs.Items, display)
		vs.Total = vs.Total.Add(display.Amount)
		vs.TotalInclGst = vs.TotalInclGst.Add(display.AmountInclTax)
		vs.TotalSavingLoss = vs.TotalSavingLoss.Add(display.SavingLoss)

		out.ApprovalTotalExclGst = out.ApprovalTotalExclGst.Add(display.Amount)
		out.ApprovalTotalInclGst = out.ApprovalTotalInclGst.Add(display.AmountInclTax)
		out.TotalSavingLoss = out.TotalSavingLoss.Add(display.SavingLoss)
	}
	return out
}

func applySignals(display *DisplayItem, signals benchmark.Signals) {
	qty := display.Quantity
	if signals.Target != nil {
		rate := *signals.Target
		amount := rate.Mul(qty)
		display.TargetRateValue = &rate
		display.TargetAmount = &amount
	}
	if signals.Lowest != nil {
		amount := signals.Lowest.Mul(qty)
		display.LowestQuotedAmount = &amount
	}
	if signals.Benchmark != nil {
		display.SavingLoss = signals.Benchmark.Mul(qty).Sub(display.Amount)
	}
}

// Label sets each vendor's display name through lookup.
func (r *Result) Label(lookup func(vendorID string) string) {
	if lookup == nil {
		return
	}
	for id, vs := range r.VendorSummary {
		vs.VendorName = lookup(id)
	}
}

// Vendors returns the vendor summaries ordered by vendor name, then id.
func (r Result) Vendors() []*VendorSummary {
	out := make([]*VendorSummary, 0, len(r.VendorSummary))
	for _, vs := range r.VendorSummary {
		out = append(out, vs)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].VendorName != out[b].VendorName {
			return out[a].VendorName < out[b].VendorName
		}
		return out[a].VendorID < out[b].VendorID
	})
	return out
}
