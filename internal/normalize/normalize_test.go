package normalize

import (
	"testing"

	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/ledger/fees"
	"github.com/marginfox/marginfox/internal/spapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNormalizer() *Normalizer {
	return New(fees.New(fees.DefaultMappings()), zap.NewNop())
}

func eur(amount float64) spapi.Money {
	return spapi.Money{CurrencyCode: "EUR", CurrencyAmount: amount}
}

func TestLegacyShipmentSumsRevenueCharges(t *testing.T) {
	n := newTestNormalizer()

	ev := spapi.ShipmentEvent{
		AmazonOrderID: "028-1234567-0000001",
		ShipmentID:    "shp-1",
		MarketplaceID: "A1PA6795UKMFR9",
		PostedDate:    "2026-03-10T12:00:00Z",
		Items: []spapi.ShipmentItem{{
			SellerSKU:       "SKU-RED-M",
			QuantityShipped: 1,
			ItemChargeList: []spapi.ChargeComponent{
				{ChargeType: "Principal", ChargeAmount: eur(45)},
				{ChargeType: "Tax", ChargeAmount: eur(5)},
				{ChargeType: "GiftWrap", ChargeAmount: eur(2)},
			},
			ItemFeeList: []spapi.FeeComponent{
				{FeeType: "FBAPerUnitFulfillmentFee", FeeAmount: eur(-6)},
			},
		}},
	}

	out := n.LegacyShipment(7, ev)
	require.Len(t, out, 2)

	revenue := out[0]
	assert.Equal(t, ledgerdomain.EventTypeOrderRevenue, revenue.EventType)
	assert.Equal(t, int64(5000), revenue.Amount, "gift wrap is not a revenue charge type")
	assert.Equal(t, "shp-1:SKU-RED-M", revenue.FinancialEventID)
	assert.Equal(t, "028-1234567-0000001", revenue.AmazonOrderID)
	assert.Equal(t, "EUR", revenue.Currency)

	fee := out[1]
	assert.Equal(t, ledgerdomain.EventTypeFee, fee.EventType)
	assert.Equal(t, int64(-600), fee.Amount)
	assert.Equal(t, "shp-1:SKU-RED-M:FBAPerUnitFulfillmentFee", fee.FinancialEventID)
	assert.Equal(t, fees.CategoryFulfillment, fee.FeeCategory)
}

func TestLegacyRefundNegatesRevenue(t *testing.T) {
	n := newTestNormalizer()

	ev := spapi.ShipmentEvent{
		AmazonOrderID: "028-1234567-0000001",
		ShipmentID:    "ref-1",
		PostedDate:    "2026-03-12T08:00:00Z",
		Items: []spapi.ShipmentItem{{
			SellerSKU: "SKU-RED-M",
			ItemChargeList: []spapi.ChargeComponent{
				{ChargeType: "Principal", ChargeAmount: eur(45)},
				{ChargeType: "Tax", ChargeAmount: eur(5)},
			},
		}},
	}

	out := n.LegacyRefund(7, ev)
	require.Len(t, out, 1)
	assert.Equal(t, ledgerdomain.EventTypeRefund, out[0].EventType)
	assert.Equal(t, int64(-5000), out[0].Amount)
}

func TestLegacyServiceFeeHasNoStableID(t *testing.T) {
	n := newTestNormalizer()

	ev := spapi.ServiceFeeEvent{
		FeeReason:  "Subscription",
		PostedDate: "2026-03-01T00:00:00Z",
		Fees: []spapi.FeeComponent{
			{FeeType: "Subscription", FeeAmount: eur(-39)},
		},
	}

	out := n.LegacyServiceFee(7, ev)
	require.Len(t, out, 1)
	assert.Equal(t, ledgerdomain.EventTypeServiceFee, out[0].EventType)
	assert.Empty(t, out[0].FinancialEventID)
	assert.Empty(t, out[0].AmazonOrderID)
	assert.Equal(t, int64(-3900), out[0].Amount)
	assert.Equal(t, fees.CategorySubscription, out[0].FeeCategory)
}

func TestUnknownFeeTypeFallsBackToOther(t *testing.T) {
	n := newTestNormalizer()

	ev := spapi.ServiceFeeEvent{
		PostedDate: "2026-03-01T00:00:00Z",
		Fees: []spapi.FeeComponent{
			{FeeType: "BrandNewMysteryFee", FeeAmount: eur(-1)},
		},
	}

	out := n.LegacyServiceFee(7, ev)
	require.Len(t, out, 1)
	assert.Equal(t, fees.CategoryOther, out[0].FeeCategory)
	assert.Equal(t, "BrandNewMysteryFee", out[0].FeeType)
}

func TestUnparseablePostedDateDropsRecord(t *testing.T) {
	n := newTestNormalizer()

	assert.Nil(t, n.LegacyShipment(7, spapi.ShipmentEvent{
		AmazonOrderID: "028-1234567-0000001",
		PostedDate:    "not-a-date",
		Items:         []spapi.ShipmentItem{{SellerSKU: "SKU-RED-M"}},
	}))
	assert.Nil(t, n.LegacyServiceFee(7, spapi.ServiceFeeEvent{
		Fees: []spapi.FeeComponent{{FeeType: "Subscription", FeeAmount: eur(-39)}},
	}))
}
