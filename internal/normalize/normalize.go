package normalize

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/ledger/fees"
	"github.com/marginfox/marginfox/internal/spapi"
	"go.uber.org/zap"
)

// revenueChargeTypes are the charge components summed into one revenue
// amount. Tax components are included: the buyer paid them, and the total
// must reconcile against the order total.
var revenueChargeTypes = map[string]bool{
	"Principal":      true,
	"ShippingCharge": true,
	"Tax":            true,
	"ShippingTax":    true,
}

// Normalizer maps raw settlement records from either upstream source into
// ledger candidates. Each source variant has its own entry point; all of
// them produce the same candidate shape for the dedup engine.
type Normalizer struct {
	tax *fees.Taxonomy
	log *zap.Logger
}

func New(tax *fees.Taxonomy, log *zap.Logger) *Normalizer {
	return &Normalizer{tax: tax, log: log.Named("normalize")}
}

// postedDate parses the upstream timestamp. Records with a missing or
// unparseable posting date are dropped rather than failing the run; upstream
// data is occasionally malformed for account-level fee records.
func (n *Normalizer) postedDate(raw, source string) (time.Time, bool) {
	if raw == "" {
		n.log.Warn("record dropped, missing posted date", zap.String("source", source))
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		n.log.Warn("record dropped, unparseable posted date",
			zap.String("source", source),
			zap.String("posted_date", raw),
		)
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// LegacyShipment emits one revenue candidate per shipment item plus one fee
// candidate per listed item fee.
func (n *Normalizer) LegacyShipment(accountID snowflake.ID, ev spapi.ShipmentEvent) []ledgerdomain.FinancialEvent {
	return n.legacyShipmentEvent(accountID, ev, false)
}

// LegacyRefund mirrors LegacyShipment with negated revenue, emitted as
// refunds.
func (n *Normalizer) LegacyRefund(accountID snowflake.ID, ev spapi.ShipmentEvent) []ledgerdomain.FinancialEvent {
	return n.legacyShipmentEvent(accountID, ev, true)
}

func (n *Normalizer) legacyShipmentEvent(accountID snowflake.ID, ev spapi.ShipmentEvent, refund bool) []ledgerdomain.FinancialEvent {
	posted, ok := n.postedDate(ev.PostedDate, "legacy_shipment")
	if !ok {
		return nil
	}

	var out []ledgerdomain.FinancialEvent
	for _, item := range ev.Items {
		var revenue int64
		currency := ""
		for _, charge := range item.ItemChargeList {
			if currency == "" {
				currency = charge.ChargeAmount.CurrencyCode
			}
			if revenueChargeTypes[charge.ChargeType] {
				revenue += charge.ChargeAmount.Cents()
			}
		}

		eventType := ledgerdomain.EventTypeOrderRevenue
		if refund {
			eventType = ledgerdomain.EventTypeRefund
			revenue = -revenue
		}

		out = append(out, ledgerdomain.FinancialEvent{
			AccountID:        accountID,
			EventType:        eventType,
			PostedDate:       posted,
			AmazonOrderID:    ev.AmazonOrderID,
			SKU:              item.SellerSKU,
			FinancialEventID: legacyStableID(ev.ShipmentID, item.SellerSKU, ""),
			Amount:           revenue,
			Currency:         currency,
			MarketplaceID:    ev.MarketplaceID,
		})

		for _, fee := range item.ItemFeeList {
			res := n.tax.Resolve(fee.FeeType)
			out = append(out, ledgerdomain.FinancialEvent{
				AccountID:        accountID,
				EventType:        ledgerdomain.EventTypeFee,
				PostedDate:       posted,
				AmazonOrderID:    ev.AmazonOrderID,
				SKU:              item.SellerSKU,
				FinancialEventID: legacyStableID(ev.ShipmentID, item.SellerSKU, fee.FeeType),
				Amount:           fee.FeeAmount.Cents(),
				Currency:         fee.FeeAmount.CurrencyCode,
				FeeType:          fee.FeeType,
				FeeCategory:      res.Category,
				MarketplaceID:    ev.MarketplaceID,
			})
		}
	}
	return out
}

// legacyStableID builds a composite identifier from the shipment id. Events
// without a shipment id get no stable id and fall through to the tolerance
// matcher.
func legacyStableID(shipmentID, sku, feeType string) string {
	if shipmentID == "" {
		return ""
	}
	if feeType == "" {
		return fmt.Sprintf("%s:%s", shipmentID, sku)
	}
	return fmt.Sprintf("%s:%s:%s", shipmentID, sku, feeType)
}

// LegacyServiceFee emits one service-fee candidate per fee component.
// These records carry no stable identifier; dedup relies entirely on the
// tolerance matcher.
func (n *Normalizer) LegacyServiceFee(accountID snowflake.ID, ev spapi.ServiceFeeEvent) []ledgerdomain.FinancialEvent {
	posted, ok := n.postedDate(ev.PostedDate, "legacy_service_fee")
	if !ok {
		return nil
	}

	var out []ledgerdomain.FinancialEvent
	for _, fee := range ev.Fees {
		feeType := fee.FeeType
		if feeType == "" {
			feeType = ev.FeeReason
		}
		res := n.tax.Resolve(feeType)
		out = append(out, ledgerdomain.FinancialEvent{
			AccountID:     accountID,
			EventType:     ledgerdomain.EventTypeServiceFee,
			PostedDate:    posted,
			AmazonOrderID: ev.AmazonOrderID,
			Amount:        fee.FeeAmount.Cents(),
			Currency:      fee.FeeAmount.CurrencyCode,
			FeeType:       feeType,
			FeeCategory:   res.Category,
		})
	}
	return out
}
