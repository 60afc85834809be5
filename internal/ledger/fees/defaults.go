package fees

import ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"

const (
	CategoryFulfillment  = "fulfillment"
	CategoryReferral     = "referral"
	CategoryStorage      = "storage"
	CategoryShipping     = "shipping"
	CategoryRefundAdmin  = "refund_admin"
	CategoryAdvertising  = "advertising"
	CategorySubscription = "subscription"
	CategoryRegulatory   = "regulatory"
)

// DefaultMappings is the compiled fee taxonomy used to seed the mapping
// table on first start.
func DefaultMappings() []ledgerdomain.FeeCategoryMapping {
	entries := []struct {
		feeType     string
		category    string
		displayName string
	}{
		{"FBAPerUnitFulfillmentFee", CategoryFulfillment, "FBA fulfillment fee"},
		{"FBAPerOrderFulfillmentFee", CategoryFulfillment, "FBA per-order fee"},
		{"FBAWeightBasedFee", CategoryFulfillment, "FBA weight handling fee"},
		{"FBACustomerReturnPerUnitFee", CategoryFulfillment, "FBA customer return fee"},
		{"FBARemovalFee", CategoryFulfillment, "FBA removal fee"},
		{"FBADisposalFee", CategoryFulfillment, "FBA disposal fee"},
		{"FBAInboundTransportationFee", CategoryShipping, "FBA inbound transportation"},
		{"Commission", CategoryReferral, "Referral commission"},
		{"ReferralFee", CategoryReferral, "Referral fee"},
		{"VariableClosingFee", CategoryReferral, "Variable closing fee"},
		{"FixedClosingFee", CategoryReferral, "Fixed closing fee"},
		{"FBAStorageFee", CategoryStorage, "FBA monthly storage"},
		{"FBALongTermStorageFee", CategoryStorage, "FBA long-term storage"},
		{"StorageRenewalBilling", CategoryStorage, "Storage renewal"},
		{"ShippingChargeback", CategoryShipping, "Shipping chargeback"},
		{"ShippingHB", CategoryShipping, "Shipping holdback"},
		{"GiftwrapChargeback", CategoryShipping, "Giftwrap chargeback"},
		{"RefundCommission", CategoryRefundAdmin, "Refund administration fee"},
		{"ReturnShipping", CategoryRefundAdmin, "Return shipping"},
		{"Goodwill", CategoryRefundAdmin, "Goodwill adjustment"},
		{"CostOfAdvertising", CategoryAdvertising, "Sponsored ads charge"},
		{"TransactionTotalAmount", CategoryAdvertising, "Advertising transaction"},
		{"Subscription", CategorySubscription, "Selling plan subscription"},
		{"SubscriptionFee", CategorySubscription, "Subscription fee"},
		{"DigitalServicesFee", CategoryRegulatory, "Digital services fee"},
		{"HighVolumeListingFee", CategorySubscription, "High-volume listing fee"},
	}

	mappings := make([]ledgerdomain.FeeCategoryMapping, 0, len(entries))
	for _, e := range entries {
		mappings = append(mappings, ledgerdomain.FeeCategoryMapping{
			FeeType:     e.feeType,
			Category:    e.category,
			DisplayName: e.displayName,
		})
	}
	return mappings
}
