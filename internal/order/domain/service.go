package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrOrderNotFound = errors.New("order_not_found")

// Service is the upsert contract both retrieval strategies (per-order API
// calls and bulk report parsing) converge on. Re-observing an order updates
// its mutable fields and preserves the first-seen row.
type Service interface {
	Upsert(ctx context.Context, order *Order) (*Order, error)
	UpsertItems(ctx context.Context, orderID snowflake.ID, items []OrderItem) error
	GetByAmazonID(ctx context.Context, accountID snowflake.ID, amazonOrderID string) (*Order, error)
}
