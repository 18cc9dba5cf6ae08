package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantity_Constructors(t *testing.T) {
	assert.Equal(t, Quantity(50_000), NewQuantityFromInt(5))
	assert.Equal(t, Quantity(12_500), NewQuantityFromFloat64(1.25))
	assert.Equal(t, Quantity(7), NewQuantityFromInt64Scaled(7))
	assert.Equal(t, Quantity(-30_000), NewQuantityFromInt(-3))

	// Truncates beyond 4 decimal digits.
	d := decimal.RequireFromString("1.23456")
	assert.Equal(t, Quantity(12_345), NewQuantityFromDecimal(d))
}

func TestQuantity_String(t *testing.T) {
	tests := []struct {
		q    Quantity
		want string
	}{
		{NewQuantityFromInt(0), "0.0000"},
		{NewQuantityFromInt(12), "12.0000"},
		{NewQuantityFromFloat64(3.5), "3.5000"},
		{NewQuantityFromFloat64(-0.25), "-0.2500"},
		{NewQuantityFromInt64Scaled(1), "0.0001"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.q.String())
	}
}

func TestQuantity_JSONRoundTrip(t *testing.T) {
	q := NewQuantityFromFloat64(42.75)

	data, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Equal(t, "42.7500", string(data))

	var decoded Quantity
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, q, decoded)
}

func TestQuantity_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    Quantity
		wantErr bool
	}{
		{input: `100`, want: NewQuantityFromInt(100)},
		{input: `0.5`, want: NewQuantityFromFloat64(0.5)},
		{input: `"12.25"`, want: NewQuantityFromFloat64(12.25)},
		{input: `-3`, want: NewQuantityFromInt(-3)},
		{input: `null`, want: 0},
		// Extra digits are truncated, not rounded.
		{input: `1.99999`, want: Quantity(19_999)},
		{input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var q Quantity
			err := json.Unmarshal([]byte(tt.input), &q)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestQuantity_Arithmetic(t *testing.T) {
	a := NewQuantityFromInt(10)
	b := NewQuantityFromInt(4)

	assert.Equal(t, NewQuantityFromInt(14), a+b)
	assert.Equal(t, NewQuantityFromInt(6), a-b)
	assert.Equal(t, b, a.Min(b))
	assert.Equal(t, b, b.Min(a))
	assert.Equal(t, NewQuantityFromInt(-10), a.Neg())
	assert.Equal(t, a, a.Neg().Abs())

	assert.True(t, Quantity(0).IsZero())
	assert.True(t, a.IsPositive())
	assert.True(t, a.Neg().IsNegative())
}

func TestQuantity_Decimal(t *testing.T) {
	q := NewQuantityFromFloat64(2.5)

	assert.True(t, q.Decimal().Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, 2.5, q.Float64())
}
