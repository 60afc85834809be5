package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "Pending"
	OrderStatusUnshipped        OrderStatus = "Unshipped"
	OrderStatusPartiallyShipped OrderStatus = "PartiallyShipped"
	OrderStatusShipped          OrderStatus = "Shipped"
	OrderStatusCanceled         OrderStatus = "Canceled"
)

// Order is one marketplace order. Mutable fields (status, total) are updated
// idempotently as the orchestrator re-observes the order across syncs.
type Order struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_orders_account_amazon,priority:1"`

	AmazonOrderID string      `gorm:"type:text;not null;uniqueIndex:ux_orders_account_amazon,priority:2"`
	MarketplaceID string      `gorm:"type:text;not null;index"`
	Status        OrderStatus `gorm:"type:text;not null"`

	// IsBusinessOrder drives the net-price rule: business (B2B) amounts are
	// already VAT-exclusive, consumer amounts are gross.
	IsBusinessOrder bool `gorm:"not null;default:false"`

	PurchaseDate time.Time `gorm:"not null;index"`
	LastUpdate   time.Time

	// TotalAmount is the gross order total in minor currency units (cents).
	TotalAmount int64  `gorm:"not null;default:0"`
	Currency    string `gorm:"type:text;not null;default:''"`

	RawPayload datatypes.JSON

	Items []OrderItem `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// IsPending reports whether upstream pricing is not final yet. Pending and
// unshipped orders with a zero total are reported as zero revenue, never
// estimated.
func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusUnshipped
}

// OrderItem is one SKU line within an order. All amounts are gross minor
// units as reported upstream.
type OrderItem struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	OrderID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_order_items_order_line,priority:1"`

	OrderItemID string `gorm:"type:text;not null;uniqueIndex:ux_order_items_order_line,priority:2"`
	SKU         string `gorm:"type:text;not null;index"`
	ASIN        string `gorm:"type:text"`
	Title       string `gorm:"type:text"`
	Quantity    int    `gorm:"not null;default:0"`

	ItemPrice         int64  `gorm:"not null;default:0"`
	ItemTax           int64  `gorm:"not null;default:0"`
	ShippingPrice     int64  `gorm:"not null;default:0"`
	ShippingTax       int64  `gorm:"not null;default:0"`
	PromotionDiscount int64  `gorm:"not null;default:0"`
	Currency          string `gorm:"type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OrderItem) TableName() string { return "order_items" }

// NetPrice returns the VAT-exclusive item price. Business orders report
// prices that already exclude VAT; consumer orders report gross prices and
// the collected tax must be subtracted.
func (i *OrderItem) NetPrice(businessOrder bool) int64 {
	if businessOrder {
		return i.ItemPrice
	}
	return i.ItemPrice - i.ItemTax
}
