package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Query scopes one analytical read. From is inclusive, To exclusive. The
// marketplace and SKU filters are optional and combine with AND.
type Query struct {
	AccountID     snowflake.ID
	From          time.Time
	To            time.Time
	MarketplaceID string
	SKU           string
}

// ProfitSummary is the account P&L over the query range. All amounts are
// minor currency units. Refunds, Fees, COGS, Advertising and Indirect are
// positive magnitudes already subtracted inside NetProfit. VAT is
// informational only: it is a pass-through liability, never a cost.
type ProfitSummary struct {
	Revenue     int64 `json:"revenue"`
	Refunds     int64 `json:"refunds"`
	Fees        int64 `json:"fees"`
	COGS        int64 `json:"cogs"`
	Advertising int64 `json:"advertising"`
	Indirect    int64 `json:"indirect"`
	VAT         int64 `json:"vat"`
	NetProfit   int64 `json:"net_profit"`

	OrderCount int `json:"order_count"`
	UnitsSold  int `json:"units_sold"`
}

// DailyStat is one calendar-day bucket. Order-side fields anchor on the
// purchase date, ledger-side fields on the posting date.
type DailyStat struct {
	Date       string `json:"date"`
	Revenue    int64  `json:"revenue"`
	Refunds    int64  `json:"refunds"`
	Fees       int64  `json:"fees"`
	COGS       int64  `json:"cogs"`
	NetProfit  int64  `json:"net_profit"`
	OrderCount int    `json:"order_count"`
	UnitsSold  int    `json:"units_sold"`
}

type FeeTypeSubtotal struct {
	FeeType     string `json:"fee_type"`
	DisplayName string `json:"display_name"`
	Amount      int64  `json:"amount"`
}

type CategoryBreakdown struct {
	Category string            `json:"category"`
	Amount   int64             `json:"amount"`
	Percent  float64           `json:"percent"`
	FeeTypes []FeeTypeSubtotal `json:"fee_types"`
}

// CostBreakdown groups the range's Fee and ServiceFee ledger rows by
// reporting category. Amounts are positive magnitudes.
type CostBreakdown struct {
	TotalFees  int64               `json:"total_fees"`
	Categories []CategoryBreakdown `json:"categories"`
}

type MarketplaceStat struct {
	MarketplaceID string `json:"marketplace_id"`
	Revenue       int64  `json:"revenue"`
	OrderCount    int    `json:"order_count"`
	UnitsSold     int    `json:"units_sold"`
}

type Service interface {
	GetProfit(ctx context.Context, q Query) (*ProfitSummary, error)
	GetDailyStats(ctx context.Context, q Query) ([]DailyStat, error)
	GetCostBreakdown(ctx context.Context, q Query) (*CostBreakdown, error)
	GetMarketplaceStats(ctx context.Context, q Query) ([]MarketplaceStat, error)
}

var (
	ErrInvalidRange = errors.New("invalid_date_range")
)
