package paymentterms

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/numeric"
)

var (
	hundred          = decimal.NewFromInt(100)
	percentTolerance = decimal.RequireFromString("0.01")
)

// Term is one installment of a vendor's payment schedule.
type Term struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	DueDate    string          `json:"due_date,omitempty"`
}

// VendorTerms is the payment agreement with one vendor on one document.
type VendorTerms struct {
	Type          enums.PaymentTermType `json:"type"`
	TotalPOAmount decimal.Decimal       `json:"total_po_amount"`
	Terms         []Term                `json:"terms,omitempty"`
}

// Terms maps vendor id to its payment agreement.
type Terms map[string]VendorTerms

// Validate checks the type and, when installments are present, that their
// percentages add up to 100 and no amount is negative.
func (v VendorTerms) Validate() error {
	if !v.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment term type").
			WithDetails(map[string]any{"type": v.Type})
	}
	if len(v.Terms) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, t := range v.Terms {
		if t.Amount.IsNegative() || t.Percentage.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment term amounts must not be negative").
				WithDetails(map[string]any{"term": t.Name})
		}
		sum = sum.Add(t.Percentage)
	}
	if sum.Sub(hundred).Abs().GreaterThan(percentTolerance) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment term percentages must add up to 100").
			WithDetails(map[string]any{"sum": sum})
	}
	return nil
}

// withTotal returns a copy priced against total: every installment amount
// is its percentage of total, rounded to paise.
func (v VendorTerms) withTotal(total decimal.Decimal) VendorTerms {
	out := VendorTerms{Type: v.Type, TotalPOAmount: total.Round(2)}
	if len(v.Terms) == 0 {
		return out
	}
	out.Terms = make([]Term, 0, len(v.Terms))
	for _, t := range v.Terms {
		t.Amount = numeric.Percent(out.TotalPOAmount, t.Percentage).Round(2)
		out.Terms = append(out.Terms, t)
	}
	return out
}

func (v VendorTerms) withIDs() VendorTerms {
	for i := range v.Terms {
		if strings.TrimSpace(v.Terms[i].ID) == "" {
			v.Terms[i].ID = uuid.NewString()
		}
	}
	return v
}
