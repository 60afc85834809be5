package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveKnownFeeType(t *testing.T) {
	tax := New(DefaultMappings())

	r := tax.Resolve("FBAPerUnitFulfillmentFee")
	assert.Equal(t, CategoryFulfillment, r.Category)
	assert.Equal(t, "FBA fulfillment fee", r.DisplayName)
	assert.True(t, tax.Known("FBAPerUnitFulfillmentFee"))
}

func TestResolveUnknownFeeTypeFallsBackToOther(t *testing.T) {
	tax := New(DefaultMappings())

	r := tax.Resolve("SomeBrandNewFee2026")
	assert.Equal(t, CategoryOther, r.Category)
	assert.Equal(t, "SomeBrandNewFee2026", r.DisplayName)
	assert.False(t, tax.Known("SomeBrandNewFee2026"))
}

func TestEmptyTaxonomyNeverFails(t *testing.T) {
	tax := New(nil)

	r := tax.Resolve("Commission")
	assert.Equal(t, CategoryOther, r.Category)
	assert.Equal(t, "Commission", r.DisplayName)
}
