package numeric

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNonNumericIsZero(t *testing.T) {
	cases := []any{nil, "", "   ", "abc", "12abc", "NaN", "Infinity", math.NaN(), math.Inf(1), math.Inf(-1), true, []string{"1"}, map[string]any{}, (*string)(nil)}
	for _, c := range cases {
		assert.True(t, Parse(c).IsZero(), "expected zero for %#v", c)
		_, ok := ParseStrict(c)
		assert.False(t, ok, "expected strict parse to fail for %#v", c)
	}
}

func TestParseFiniteNumbers(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"100", "100"},
		{" 95.5 ", "95.5"},
		{"-5", "-5"},
		{"0", "0"},
		{"1e3", "1000"},
		{json.Number("18"), "18"},
		{float64(2.25), "2.25"},
		{float32(0.5), "0.5"},
		{int(7), "7"},
		{int64(-3), "-3"},
		{uint8(4), "4"},
		{decimal.RequireFromString("12.34"), "12.34"},
		{decimal.NullDecimal{Decimal: decimal.NewFromInt(9), Valid: true}, "9"},
	}
	for _, c := range cases {
		got, ok := ParseStrict(c.in)
		require.True(t, ok, "expected %#v to parse", c.in)
		assert.True(t, got.Equal(decimal.RequireFromString(c.want)), "parse(%#v) = %s, want %s", c.in, got, c.want)
	}
}

func TestParseNullDecimalInvalid(t *testing.T) {
	_, ok := ParseStrict(decimal.NullDecimal{})
	assert.False(t, ok)
}

func TestFloat(t *testing.T) {
	assert.Equal(t, 95.0, Float("95"))
	assert.Equal(t, 0.0, Float("bogus"))
}

func TestWithTaxIsExact(t *testing.T) {
	got := WithTax(decimal.NewFromInt(200), decimal.NewFromInt(18))
	assert.True(t, got.Equal(decimal.NewFromInt(236)), "got %s", got)

	zeroTax := WithTax(decimal.NewFromInt(50), decimal.Zero)
	assert.True(t, zeroTax.Equal(decimal.NewFromInt(50)))
}

func TestPercentAndPositive(t *testing.T) {
	assert.True(t, Percent(decimal.NewFromInt(236), decimal.NewFromInt(25)).Equal(decimal.NewFromInt(59)))
	assert.True(t, Positive("0.01"))
	assert.False(t, Positive("0"))
	assert.False(t, Positive("-2"))
	assert.False(t, Positive(nil))
}

func TestDecimalMarshalsAsNumber(t *testing.T) {
	raw, err := json.Marshal(map[string]decimal.Decimal{"total": decimal.NewFromInt(236)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":236}`, string(raw))
}
