package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidates(t *testing.T) {
	m, err := New(1500, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)

	_, err = New(1, "US")
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = New(-1, "USD")
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestMultiplyAndDecimal(t *testing.T) {
	total := Must(10000, "USD").Multiply(3)
	assert.Equal(t, int64(30000), total.Amount)
	assert.Equal(t, "300.00", total.Decimal())
	assert.Equal(t, "300.00 USD", total.String())
	assert.Equal(t, "0.05", Must(5, "USD").Decimal())
	assert.True(t, Must(0, "USD").IsZero())
}
