package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Product is a catalog entry keyed by (account, SKU). It is created
// first-seen-wins from order or inventory sync; cost and price are
// user-supplied and never pushed upstream.
type Product struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_products_account_sku,priority:1"`

	SKU   string `gorm:"type:text;not null;uniqueIndex:ux_products_account_sku,priority:2"`
	ASIN  string `gorm:"type:text;index"`
	Title string `gorm:"type:text"`

	// CostAmount is the user-maintained unit cost (cents), local only.
	CostAmount  int64  `gorm:"not null;default:0"`
	PriceAmount int64  `gorm:"not null;default:0"`
	Currency    string `gorm:"type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// Inventory mirrors the upstream fulfillable quantity per SKU.
type Inventory struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_inventory_account_sku,priority:1"`

	SKU           string `gorm:"type:text;not null;uniqueIndex:ux_inventory_account_sku,priority:2"`
	Quantity      int    `gorm:"not null;default:0"`
	MarketplaceID string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Inventory) TableName() string { return "inventories" }

type UpdateCostRequest struct {
	ProductID   snowflake.ID
	CostAmount  int64
	PriceAmount *int64
}

type Service interface {
	// EnsureProduct creates the (account, sku) catalog entry when missing;
	// existing entries are never overwritten by sync.
	EnsureProduct(ctx context.Context, accountID snowflake.ID, sku, asin, title, currency string) (*Product, error)
	UpdateCost(ctx context.Context, req UpdateCostRequest) (*Product, error)
	ListByAccount(ctx context.Context, accountID snowflake.ID) ([]*Product, error)
	UpsertInventory(ctx context.Context, accountID snowflake.ID, sku, marketplaceID string, quantity int) error
}

var (
	ErrProductNotFound = errors.New("product_not_found")
	ErrInvalidCost     = errors.New("invalid_cost")
)
