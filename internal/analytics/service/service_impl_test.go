package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	analyticsdomain "github.com/marginfox/marginfox/internal/analytics/domain"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
	expensedomain "github.com/marginfox/marginfox/internal/expense/domain"
	expenseservice "github.com/marginfox/marginfox/internal/expense/service"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/ledger/fees"
	"github.com/marginfox/marginfox/internal/migration"
	orderdomain "github.com/marginfox/marginfox/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const accountID snowflake.ID = 7

var (
	rangeFrom = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rangeTo   = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	inRange   = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
)

type rig struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      analyticsdomain.Service
	expenses expensedomain.Service
}

func newRig(t *testing.T) *rig {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	log := zap.NewNop()

	expenses := expenseservice.NewService(expenseservice.Params{
		DB: db, Log: log, GenID: node,
	})
	svc := NewService(Params{
		DB:       db,
		Log:      log,
		Tax:      fees.New(fees.DefaultMappings()),
		Expenses: expenses,
	})
	return &rig{db: db, node: node, svc: svc, expenses: expenses}
}

func (r *rig) addOrder(t *testing.T, amazonID, marketplaceID string, status orderdomain.OrderStatus, purchased time.Time, total int64, business bool, items ...orderdomain.OrderItem) {
	t.Helper()
	order := &orderdomain.Order{
		ID:              r.node.Generate(),
		AccountID:       accountID,
		AmazonOrderID:   amazonID,
		MarketplaceID:   marketplaceID,
		Status:          status,
		IsBusinessOrder: business,
		PurchaseDate:    purchased,
		LastUpdate:      purchased,
		TotalAmount:     total,
		Currency:        "EUR",
	}
	require.NoError(t, r.db.Create(order).Error)
	for i := range items {
		items[i].ID = r.node.Generate()
		items[i].OrderID = order.ID
		require.NoError(t, r.db.Create(&items[i]).Error)
	}
}

func (r *rig) addEvent(t *testing.T, eventType ledgerdomain.EventType, amazonOrderID, sku, feeType, category string, amount int64, posted time.Time) {
	t.Helper()
	require.NoError(t, r.db.Create(&ledgerdomain.FinancialEvent{
		ID:            r.node.Generate(),
		AccountID:     accountID,
		EventType:     eventType,
		PostedDate:    posted,
		AmazonOrderID: amazonOrderID,
		SKU:           sku,
		Amount:        amount,
		Currency:      "EUR",
		FeeType:       feeType,
		FeeCategory:   category,
	}).Error)
}

func (r *rig) addProductCost(t *testing.T, sku string, cost int64) {
	t.Helper()
	require.NoError(t, r.db.Create(&catalogdomain.Product{
		ID:         r.node.Generate(),
		AccountID:  accountID,
		SKU:        sku,
		CostAmount: cost,
		Currency:   "EUR",
	}).Error)
}

func query() analyticsdomain.Query {
	return analyticsdomain.Query{AccountID: accountID, From: rangeFrom, To: rangeTo}
}

func TestGetProfitSingleOrder(t *testing.T) {
	r := newRig(t)
	r.addOrder(t, "ORD-1", "A1PA6795UKMFR9", orderdomain.OrderStatusShipped, inRange, 5000, false,
		orderdomain.OrderItem{OrderItemID: "i-1", SKU: "SKU-RED-M", Quantity: 1, ItemPrice: 4500, ItemTax: 500, Currency: "EUR"},
	)
	r.addEvent(t, ledgerdomain.EventTypeFee, "ORD-1", "SKU-RED-M", "FBAPerUnitFulfillmentFee", fees.CategoryFulfillment, -600, inRange)

	summary, err := r.svc.GetProfit(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), summary.Revenue)
	assert.Equal(t, int64(600), summary.Fees)
	assert.Equal(t, int64(4400), summary.NetProfit)
	assert.Equal(t, 1, summary.OrderCount)
	assert.Equal(t, 1, summary.UnitsSold)
}

func TestGetProfitVATNeverSubtracted(t *testing.T) {
	build := func(t *testing.T, tax int64) *analyticsdomain.ProfitSummary {
		r := newRig(t)
		r.addOrder(t, "ORD-1", "M1", orderdomain.OrderStatusShipped, inRange, 12100, false,
			orderdomain.OrderItem{OrderItemID: "i-1", SKU: "SKU-1", Quantity: 1, ItemPrice: 12100, ItemTax: tax, Currency: "EUR"},
		)
		r.addEvent(t, ledgerdomain.EventTypeFee, "ORD-1", "SKU-1", "Commission", fees.CategoryReferral, -1500, inRange)
		r.addEvent(t, ledgerdomain.EventTypeRefund, "ORD-1", "SKU-1", "", "", -2000, inRange)
		r.addProductCost(t, "SKU-1", 3000)
		_, err := r.expenses.Create(context.Background(), expensedomain.CreateExpenseRequest{
			AccountID: accountID, Type: expensedomain.ExpenseTypeAdvertising, Amount: 800, Currency: "EUR", IncurredOn: inRange,
		})
		require.NoError(t, err)

		summary, err := r.svc.GetProfit(context.Background(), query())
		require.NoError(t, err)
		return summary
	}

	withVAT := build(t, 2100)
	withoutVAT := build(t, 0)

	assert.Equal(t, int64(2100), withVAT.VAT)
	assert.Zero(t, withoutVAT.VAT)
	// 12100 - 2000 - 1500 - 3000 - 800, regardless of tracked VAT.
	assert.Equal(t, int64(4800), withVAT.NetProfit)
	assert.Equal(t, withoutVAT.NetProfit, withVAT.NetProfit)
	assert.Equal(t, int64(800), withVAT.Advertising)
	assert.Equal(t, int64(3000), withVAT.COGS)
}

func TestGetProfitPendingOrderReportsZero(t *testing.T) {
	r := newRig(t)
	r.addOrder(t, "ORD-PENDING", "M1", orderdomain.OrderStatusPending, inRange, 0, false)

	summary, err := r.svc.GetProfit(context.Background(), query())
	require.NoError(t, err)
	assert.Zero(t, summary.Revenue, "unpriced pending orders are never estimated")
	assert.Equal(t, 1, summary.OrderCount)
}

func TestGetProfitFeesFollowOrderNotPostedDate(t *testing.T) {
	r := newRig(t)
	r.addOrder(t, "ORD-1", "M1", orderdomain.OrderStatusShipped, inRange, 5000, false)
	// Settlement posted weeks after the query range still belongs to the sale.
	r.addEvent(t, ledgerdomain.EventTypeFee, "ORD-1", "", "Commission", fees.CategoryReferral, -750, rangeTo.AddDate(0, 0, 20))
	// An order outside the range keeps its fees out even when they post inside.
	r.addOrder(t, "ORD-OLD", "M1", orderdomain.OrderStatusShipped, rangeFrom.AddDate(0, -2, 0), 9000, false)
	r.addEvent(t, ledgerdomain.EventTypeFee, "ORD-OLD", "", "Commission", fees.CategoryReferral, -900, inRange)

	summary, err := r.svc.GetProfit(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, int64(5000), summary.Revenue)
	assert.Equal(t, int64(750), summary.Fees)
}

func TestGetProfitAccountLevelFees(t *testing.T) {
	r := newRig(t)
	r.addOrder(t, "ORD-1", "M1", orderdomain.OrderStatusShipped, inRange, 5000, false)
	r.addEvent(t, ledgerdomain.EventTypeServiceFee, "", "", "Subscription", fees.CategoryOther, -3900, inRange)

	summary, err := r.svc.GetProfit(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, int64(3900), summary.Fees)

	// Filtered views cannot attribute account-level fees.
	q := query()
	q.MarketplaceID = "M1"
	filtered, err := r.svc.GetProfit(context.Background(), q)
	require.NoError(t, err)
	assert.Zero(t, filtered.Fees)
	assert.Equal(t, int64(5000), filtered.Revenue)
}

func TestGetProfitMarketplaceAndSKUFilters(t *testing.T) {
	r := newRig(t)
	r.addOrder(t, "ORD-DE", "MKT-DE", orderdomain.OrderStatusShipped, inRange, 5000, false,
		orderdomain.OrderItem{OrderItemID: "i-1", SKU: "SKU-A", Quantity: 1, ItemPrice: 4500, ItemTax: 500, Currency: "EUR"},
	)
	r.addOrder(t, "ORD-FR", "MKT-FR", orderdomain.OrderStatusShipped, inRange, 3000, false,
		orderdomain.OrderItem{OrderItemID: "i-2", SKU: "SKU-B", Quantity: 2, ItemPrice: 2500, ItemTax: 500, Currency: "EUR"},
	)

	q := query()
	q.MarketplaceID = "MKT-FR"
	summary, err := r.svc.GetProfit(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), summary.Revenue)
	assert.Equal(t, 1, summary.OrderCount)
	assert.Equal(t, 2, summary.UnitsSold)

	q = query()
	q.SKU = "SKU-A"
	summary, err = r.svc.GetProfit(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), summary.Revenue, "sku queries report line-level gross")
	assert.Equal(t, 1, summary.UnitsSold)
}

func TestGetProfitRejectsInvalidRange(t *testing.T) {
	r := newRig(t)

	q := query()
	q.To = q.From
	_, err := r.svc.GetProfit(context.Background(), q)
	assert.ErrorIs(t, err, analyticsdomain.ErrInvalidRange)
}

func TestGetDailyStatsBucketsByDay(t *testing.T) {
	r := newRig(t)
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	r.addOrder(t, "ORD-1", "M1", orderdomain.OrderStatusShipped, day1, 5000, false,
		orderdomain.OrderItem{OrderItemID: "i-1", SKU: "SKU-A", Quantity: 1, ItemPrice: 4500, ItemTax: 500, Currency: "EUR"},
	)
	r.addProductCost(t, "SKU-A", 1000)
	// Fee posts the next day; it lands in the posting-date bucket.
	r.addEvent(t, ledgerdomain.EventTypeFee, "ORD-1", "SKU-A", "Commission", fees.CategoryReferral, -600, day2)

	stats, err := r.svc.GetDailyStats(context.Background(), query())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "2026-03-10", stats[0].Date)
	assert.Equal(t, int64(5000), stats[0].Revenue)
	assert.Equal(t, int64(1000), stats[0].COGS)
	assert.Zero(t, stats[0].Fees)
	assert.Equal(t, int64(4000), stats[0].NetProfit)

	assert.Equal(t, "2026-03-11", stats[1].Date)
	assert.Zero(t, stats[1].Revenue)
	assert.Equal(t, int64(600), stats[1].Fees)
	assert.Equal(t, int64(-600), stats[1].NetProfit)
}

func TestGetCostBreakdownGroupsByCategory(t *testing.T) {
	r := newRig(t)
	r.addOrder(t, "ORD-1", "M1", orderdomain.OrderStatusShipped, inRange, 10000, false)
	r.addEvent(t, ledgerdomain.EventTypeFee, "ORD-1", "", "FBAPerUnitFulfillmentFee", fees.CategoryFulfillment, -450, inRange)
	r.addEvent(t, ledgerdomain.EventTypeFee, "ORD-1", "", "FBAWeightBasedFee", fees.CategoryFulfillment, -300, inRange)
	r.addEvent(t, ledgerdomain.EventTypeFee, "ORD-1", "", "Commission", fees.CategoryReferral, -250, inRange)
	// Revenue rows never show up as costs.
	r.addEvent(t, ledgerdomain.EventTypeOrderRevenue, "ORD-1", "", "", "", 10000, inRange)

	breakdown, err := r.svc.GetCostBreakdown(context.Background(), query())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), breakdown.TotalFees)
	require.Len(t, breakdown.Categories, 2)

	fulfillment := breakdown.Categories[0]
	assert.Equal(t, fees.CategoryFulfillment, fulfillment.Category)
	assert.Equal(t, int64(750), fulfillment.Amount)
	assert.InDelta(t, 75.0, fulfillment.Percent, 0.001)
	require.Len(t, fulfillment.FeeTypes, 2)
	assert.Equal(t, "FBAPerUnitFulfillmentFee", fulfillment.FeeTypes[0].FeeType)
	assert.Equal(t, int64(450), fulfillment.FeeTypes[0].Amount)

	referral := breakdown.Categories[1]
	assert.Equal(t, fees.CategoryReferral, referral.Category)
	assert.InDelta(t, 25.0, referral.Percent, 0.001)
}

func TestGetMarketplaceStats(t *testing.T) {
	r := newRig(t)
	r.addOrder(t, "ORD-DE1", "MKT-DE", orderdomain.OrderStatusShipped, inRange, 5000, false,
		orderdomain.OrderItem{OrderItemID: "i-1", SKU: "SKU-A", Quantity: 1, ItemPrice: 5000, Currency: "EUR"},
	)
	r.addOrder(t, "ORD-DE2", "MKT-DE", orderdomain.OrderStatusShipped, inRange, 2000, false,
		orderdomain.OrderItem{OrderItemID: "i-2", SKU: "SKU-A", Quantity: 2, ItemPrice: 2000, Currency: "EUR"},
	)
	r.addOrder(t, "ORD-FR", "MKT-FR", orderdomain.OrderStatusShipped, inRange, 3000, false,
		orderdomain.OrderItem{OrderItemID: "i-3", SKU: "SKU-B", Quantity: 1, ItemPrice: 3000, Currency: "EUR"},
	)

	stats, err := r.svc.GetMarketplaceStats(context.Background(), query())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "MKT-DE", stats[0].MarketplaceID)
	assert.Equal(t, int64(7000), stats[0].Revenue)
	assert.Equal(t, 2, stats[0].OrderCount)
	assert.Equal(t, 3, stats[0].UnitsSold)
	assert.Equal(t, "MKT-FR", stats[1].MarketplaceID)
}
