// Package numeric is the single gateway for reading quotes, quantities and tax
// rates out of loosely typed document fields.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts render as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

var hundred = decimal.NewFromInt(100)

// Parse coerces v into a decimal. Missing, empty, non-finite or unparsable
// input yields zero. It never fails.
func Parse(v any) decimal.Decimal {
	d, _ := ParseStrict(v)
	return d
}

// ParseStrict is Parse that also reports whether v held a finite number.
func ParseStrict(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, false
		}
		return *x, true
	case decimal.NullDecimal:
		if !x.Valid {
			return decimal.Zero, false
		}
		return x.Decimal, true
	case string:
		return parseString(x)
	case *string:
		if x == nil {
			return decimal.Zero, false
		}
		return parseString(*x)
	case json.Number:
		return parseString(string(x))
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int8:
		return decimal.NewFromInt(int64(x)), true
	case int16:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case uint8:
		return decimal.NewFromInt(int64(x)), true
	case uint16:
		return decimal.NewFromInt(int64(x)), true
	case uint32:
		return decimal.NewFromInt(int64(x)), true
	case uint:
		return parseString(strconv.FormatUint(uint64(x), 10))
	case uint64:
		return parseString(strconv.FormatUint(x, 10))
	default:
		return decimal.Zero, false
	}
}

// Float is Parse for callers that need a float64, such as spreadsheet cells.
func Float(v any) float64 {
	f, _ := Parse(v).Float64()
	return f
}

// Positive reports whether v parses to a number greater than zero.
func Positive(v any) bool {
	return Parse(v).IsPositive()
}

// WithTax returns amount * (1 + taxPercent/100).
func WithTax(amount, taxPercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Add(taxPercent.Div(hundred)))
}

// Percent returns amount * pct / 100.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

func parseString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
