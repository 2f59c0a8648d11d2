package listings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grabit/internal/domain/shared/money"
)

func TestNewRef(t *testing.T) {
	ref, err := NewRef(" Vehicle ", " 42 ")
	require.NoError(t, err)
	assert.Equal(t, Ref{Type: TypeVehicle, ID: "42"}, ref)
	assert.Equal(t, "vehicle:42", ref.String())

	_, err = NewRef("boat", "1")
	assert.ErrorIs(t, err, ErrInvalidListingType)

	_, err = NewRef("property", "  ")
	assert.ErrorIs(t, err, ErrListingIDRequired)
}

func TestListingValidateAndOwnership(t *testing.T) {
	l := &Listing{
		Ref:   Ref{Type: TypeProperty, ID: "7"},
		Owner: "owner-1",
		Price: money.Must(25000, "USD"),
	}
	require.NoError(t, l.Validate())
	assert.True(t, l.OwnedBy("owner-1"))
	assert.False(t, l.OwnedBy("renter-1"))
	assert.False(t, l.OwnedBy(""))

	l.Owner = ""
	assert.ErrorIs(t, l.Validate(), ErrOwnerRequired)
}

func TestPriceUnit(t *testing.T) {
	assert.Equal(t, "day", TypeVehicle.PriceUnit())
	assert.Equal(t, "period", TypeProperty.PriceUnit())
}
