package spapi

import (
	"math"
	"strconv"
)

// Price is the orders-API money shape: the amount travels as a decimal
// string.
type Price struct {
	CurrencyCode string `json:"CurrencyCode"`
	Amount       string `json:"Amount"`
}

// Cents parses the decimal amount into minor currency units. Malformed
// amounts come back as zero; callers treat zero totals as "not yet priced".
func (p *Price) Cents() int64 {
	if p == nil || p.Amount == "" {
		return 0
	}
	f, err := strconv.ParseFloat(p.Amount, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}

// Money is the legacy finances-API money shape: a float amount.
type Money struct {
	CurrencyCode   string  `json:"CurrencyCode"`
	CurrencyAmount float64 `json:"CurrencyAmount"`
}

func (m Money) Cents() int64 {
	return int64(math.Round(m.CurrencyAmount * 100))
}

// Currency is the transactions-API money shape.
type Currency struct {
	CurrencyCode   string  `json:"currencyCode"`
	CurrencyAmount float64 `json:"currencyAmount"`
}

func (c Currency) Cents() int64 {
	return int64(math.Round(c.CurrencyAmount * 100))
}

type Order struct {
	AmazonOrderID          string `json:"AmazonOrderId"`
	PurchaseDate           string `json:"PurchaseDate"`
	LastUpdateDate         string `json:"LastUpdateDate"`
	OrderStatus            string `json:"OrderStatus"`
	OrderType              string `json:"OrderType"`
	IsBusinessOrder        bool   `json:"IsBusinessOrder"`
	MarketplaceID          string `json:"MarketplaceId"`
	OrderTotal             *Price `json:"OrderTotal,omitempty"`
	NumberOfItemsShipped   int    `json:"NumberOfItemsShipped"`
	NumberOfItemsUnshipped int    `json:"NumberOfItemsUnshipped"`
}

type OrdersPage struct {
	Orders    []Order `json:"Orders"`
	NextToken string  `json:"NextToken"`
}

type OrderItem struct {
	OrderItemID       string `json:"OrderItemId"`
	SellerSKU         string `json:"SellerSKU"`
	ASIN              string `json:"ASIN"`
	Title             string `json:"Title"`
	QuantityOrdered   int    `json:"QuantityOrdered"`
	ItemPrice         *Price `json:"ItemPrice,omitempty"`
	ItemTax           *Price `json:"ItemTax,omitempty"`
	ShippingPrice     *Price `json:"ShippingPrice,omitempty"`
	ShippingTax       *Price `json:"ShippingTax,omitempty"`
	PromotionDiscount *Price `json:"PromotionDiscount,omitempty"`
}

// Legacy financial-events shapes. Shipment and refund events share one
// structure; refund amounts are negated during normalization.

type ChargeComponent struct {
	ChargeType   string `json:"ChargeType"`
	ChargeAmount Money  `json:"ChargeAmount"`
}

type FeeComponent struct {
	FeeType   string `json:"FeeType"`
	FeeAmount Money  `json:"FeeAmount"`
}

type ShipmentItem struct {
	SellerSKU       string            `json:"SellerSKU"`
	QuantityShipped int               `json:"QuantityShipped"`
	ItemChargeList  []ChargeComponent `json:"ItemChargeList"`
	ItemFeeList     []FeeComponent    `json:"ItemFeeList"`
}

type ShipmentEvent struct {
	AmazonOrderID string         `json:"AmazonOrderId"`
	ShipmentID    string         `json:"ShipmentId"`
	MarketplaceID string         `json:"MarketplaceId"`
	PostedDate    string         `json:"PostedDate"`
	Items         []ShipmentItem `json:"ShipmentItemList"`
}

// ServiceFeeEvent is an account-level fee with no stable identifier and,
// frequently, no order reference.
type ServiceFeeEvent struct {
	AmazonOrderID string         `json:"AmazonOrderId"`
	FeeReason     string         `json:"FeeReason"`
	PostedDate    string         `json:"PostedDate"`
	Fees          []FeeComponent `json:"FeeList"`
}

type FinancialEventsPage struct {
	Shipments   []ShipmentEvent   `json:"ShipmentEventList"`
	Refunds     []ShipmentEvent   `json:"RefundEventList"`
	ServiceFees []ServiceFeeEvent `json:"ServiceFeeEventList"`
	NextToken   string            `json:"NextToken"`
}

// Transactions-API shapes: each transaction carries a settlement status and
// a breakdown tree.

const (
	TransactionStatusReleased         = "RELEASED"
	TransactionStatusDeferred         = "DEFERRED"
	TransactionStatusDeferredReleased = "DEFERRED_RELEASED"
)

type Breakdown struct {
	BreakdownType   string      `json:"breakdownType"`
	BreakdownAmount Currency    `json:"breakdownAmount"`
	Breakdowns      []Breakdown `json:"breakdowns"`
}

type RelatedIdentifier struct {
	Name  string `json:"relatedIdentifierName"`
	Value string `json:"relatedIdentifierValue"`
}

type ItemContext struct {
	ContextType     string `json:"contextType"`
	SKU             string `json:"sku"`
	ASIN            string `json:"asin"`
	QuantityShipped int    `json:"quantityShipped"`
}

type TransactionItem struct {
	Description string        `json:"description"`
	TotalAmount Currency      `json:"totalAmount"`
	Contexts    []ItemContext `json:"contexts"`
}

type MarketplaceDetails struct {
	MarketplaceID   string `json:"marketplaceId"`
	MarketplaceName string `json:"marketplaceName"`
}

type Transaction struct {
	TransactionID      string              `json:"transactionId"`
	TransactionType    string              `json:"transactionType"`
	TransactionStatus  string              `json:"transactionStatus"`
	PostedDate         string              `json:"postedDate"`
	TotalAmount        Currency            `json:"totalAmount"`
	Marketplace        MarketplaceDetails  `json:"marketplaceDetails"`
	RelatedIdentifiers []RelatedIdentifier `json:"relatedIdentifiers"`
	Items              []TransactionItem   `json:"items"`
	Breakdowns         []Breakdown         `json:"breakdowns"`
}

type TransactionsPage struct {
	Transactions []Transaction `json:"transactions"`
	NextToken    string        `json:"nextToken"`
}

// Reports-API shapes.

const (
	ReportStatusInQueue    = "IN_QUEUE"
	ReportStatusInProgress = "IN_PROGRESS"
	ReportStatusDone       = "DONE"
	ReportStatusFatal      = "FATAL"
	ReportStatusCancelled  = "CANCELLED"
)

type Report struct {
	ReportID         string `json:"reportId"`
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId"`
}

type ReportDocument struct {
	ReportDocumentID     string `json:"reportDocumentId"`
	URL                  string `json:"url"`
	CompressionAlgorithm string `json:"compressionAlgorithm"`
}

// FBA inventory shapes.

type InventorySummary struct {
	SellerSKU     string `json:"sellerSku"`
	ASIN          string `json:"asin"`
	FNSKU         string `json:"fnSku"`
	ProductName   string `json:"productName"`
	TotalQuantity int    `json:"totalQuantity"`
}

type InventoryPage struct {
	Summaries []InventorySummary `json:"inventorySummaries"`
	NextToken string             `json:"nextToken"`
}
