package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/marginfox/marginfox/internal/analytics/domain"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
	expensedomain "github.com/marginfox/marginfox/internal/expense/domain"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/ledger/fees"
	orderdomain "github.com/marginfox/marginfox/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dayLayout = "2006-01-02"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Tax      *fees.Taxonomy
	Expenses expensedomain.Service
}

// Service answers read-side queries against orders plus the ledger. Revenue
// anchors on purchase dates while settlement rows follow their orders'
// external ids, so late and deferred postings land in the period the sale
// occurred.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	tax      *fees.Taxonomy
	expenses expensedomain.Service
}

func NewService(p Params) analyticsdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("analytics.service"),
		tax:      p.Tax,
		expenses: p.Expenses,
	}
}

func validateQuery(q analyticsdomain.Query) error {
	if q.From.IsZero() || q.To.IsZero() || !q.To.After(q.From) {
		return analyticsdomain.ErrInvalidRange
	}
	return nil
}

func (s *Service) loadOrders(ctx context.Context, q analyticsdomain.Query) ([]orderdomain.Order, error) {
	tx := s.db.WithContext(ctx).
		Preload("Items").
		Where("account_id = ? AND purchase_date >= ? AND purchase_date < ?", q.AccountID, q.From.UTC(), q.To.UTC())
	if q.MarketplaceID != "" {
		tx = tx.Where("marketplace_id = ?", q.MarketplaceID)
	}
	if q.SKU != "" {
		tx = tx.Where("id IN (?)", s.db.Model(&orderdomain.OrderItem{}).
			Select("order_id").
			Where("sku = ?", q.SKU))
	}

	var orders []orderdomain.Order
	err := tx.Find(&orders).Error
	return orders, err
}

// loadLedger returns the settlement rows backing the loaded orders. Rows
// carrying an order id follow their order regardless of posting date;
// account-level rows (no order id) follow the posting date and are included
// only for unfiltered queries, because they cannot be attributed to a
// marketplace or SKU.
func (s *Service) loadLedger(ctx context.Context, q analyticsdomain.Query, orderIDs []string) ([]ledgerdomain.FinancialEvent, error) {
	scope := s.db.Where("amazon_order_id IN ?", orderIDs)
	if q.MarketplaceID == "" && q.SKU == "" {
		scope = scope.Or("amazon_order_id = '' AND posted_date >= ? AND posted_date < ?", q.From.UTC(), q.To.UTC())
	}

	tx := s.db.WithContext(ctx).
		Where("account_id = ?", q.AccountID).
		Where("event_type IN ?", []ledgerdomain.EventType{
			ledgerdomain.EventTypeFee,
			ledgerdomain.EventTypeServiceFee,
			ledgerdomain.EventTypeRefund,
		}).
		Where(scope)
	if q.SKU != "" {
		tx = tx.Where("sku = ?", q.SKU)
	}

	var events []ledgerdomain.FinancialEvent
	err := tx.Find(&events).Error
	return events, err
}

func (s *Service) loadCosts(ctx context.Context, accountID snowflake.ID, skus []string) (map[string]int64, error) {
	if len(skus) == 0 {
		return map[string]int64{}, nil
	}
	var products []catalogdomain.Product
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND sku IN ?", accountID, skus).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	costs := make(map[string]int64, len(products))
	for _, p := range products {
		costs[p.SKU] = p.CostAmount
	}
	return costs, nil
}

// orderRevenue is the gross revenue attributed to one order under the
// current filters. Pending orders without a finalized total report zero
// rather than an estimate.
func orderRevenue(order *orderdomain.Order, sku string) int64 {
	if sku == "" {
		return order.TotalAmount
	}
	var total int64
	for _, item := range order.Items {
		if item.SKU != sku {
			continue
		}
		total += item.ItemPrice + item.ItemTax + item.ShippingPrice + item.ShippingTax
	}
	return total
}

func filteredItems(order *orderdomain.Order, sku string) []orderdomain.OrderItem {
	if sku == "" {
		return order.Items
	}
	items := make([]orderdomain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.SKU == sku {
			items = append(items, item)
		}
	}
	return items
}

func (s *Service) GetProfit(ctx context.Context, q analyticsdomain.Query) (*analyticsdomain.ProfitSummary, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	orders, err := s.loadOrders(ctx, q)
	if err != nil {
		return nil, err
	}

	summary := &analyticsdomain.ProfitSummary{OrderCount: len(orders)}
	orderIDs := make([]string, 0, len(orders))
	skuSet := map[string]struct{}{}
	type costLine struct {
		sku string
		qty int
	}
	var costLines []costLine

	for i := range orders {
		order := &orders[i]
		orderIDs = append(orderIDs, order.AmazonOrderID)
		summary.Revenue += orderRevenue(order, q.SKU)
		for _, item := range filteredItems(order, q.SKU) {
			summary.UnitsSold += item.Quantity
			summary.VAT += item.ItemTax + item.ShippingTax
			skuSet[item.SKU] = struct{}{}
			costLines = append(costLines, costLine{sku: item.SKU, qty: item.Quantity})
		}
	}

	skus := make([]string, 0, len(skuSet))
	for sku := range skuSet {
		skus = append(skus, sku)
	}
	costs, err := s.loadCosts(ctx, q.AccountID, skus)
	if err != nil {
		return nil, err
	}
	for _, line := range costLines {
		summary.COGS += costs[line.sku] * int64(line.qty)
	}

	events, err := s.loadLedger(ctx, q, orderIDs)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		switch ev.EventType {
		case ledgerdomain.EventTypeRefund:
			summary.Refunds += -ev.Amount
		case ledgerdomain.EventTypeFee, ledgerdomain.EventTypeServiceFee:
			summary.Fees += -ev.Amount
		}
	}

	// Local expense inputs are account-level; a filtered view cannot
	// attribute them.
	if q.MarketplaceID == "" && q.SKU == "" {
		totals, err := s.expenses.SumByType(ctx, q.AccountID, q.From, q.To)
		if err != nil {
			return nil, err
		}
		summary.Advertising = totals[expensedomain.ExpenseTypeAdvertising]
		summary.Indirect = totals[expensedomain.ExpenseTypeIndirect]
	}

	summary.NetProfit = summary.Revenue - summary.Refunds - summary.Fees -
		summary.COGS - summary.Advertising - summary.Indirect
	return summary, nil
}

func (s *Service) GetDailyStats(ctx context.Context, q analyticsdomain.Query) ([]analyticsdomain.DailyStat, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	orders, err := s.loadOrders(ctx, q)
	if err != nil {
		return nil, err
	}

	days := map[string]*analyticsdomain.DailyStat{}
	bucket := func(ts time.Time) *analyticsdomain.DailyStat {
		key := ts.UTC().Format(dayLayout)
		day, ok := days[key]
		if !ok {
			day = &analyticsdomain.DailyStat{Date: key}
			days[key] = day
		}
		return day
	}

	orderIDs := make([]string, 0, len(orders))
	skuSet := map[string]struct{}{}
	for i := range orders {
		order := &orders[i]
		orderIDs = append(orderIDs, order.AmazonOrderID)
		for _, item := range filteredItems(order, q.SKU) {
			skuSet[item.SKU] = struct{}{}
		}
	}
	skus := make([]string, 0, len(skuSet))
	for sku := range skuSet {
		skus = append(skus, sku)
	}
	costs, err := s.loadCosts(ctx, q.AccountID, skus)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		order := &orders[i]
		day := bucket(order.PurchaseDate)
		day.Revenue += orderRevenue(order, q.SKU)
		day.OrderCount++
		for _, item := range filteredItems(order, q.SKU) {
			day.UnitsSold += item.Quantity
			day.COGS += costs[item.SKU] * int64(item.Quantity)
		}
	}

	events, err := s.loadLedger(ctx, q, orderIDs)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		day := bucket(ev.PostedDate)
		switch ev.EventType {
		case ledgerdomain.EventTypeRefund:
			day.Refunds += -ev.Amount
		case ledgerdomain.EventTypeFee, ledgerdomain.EventTypeServiceFee:
			day.Fees += -ev.Amount
		}
	}

	stats := make([]analyticsdomain.DailyStat, 0, len(days))
	for _, day := range days {
		day.NetProfit = day.Revenue - day.Refunds - day.Fees - day.COGS
		stats = append(stats, *day)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats, nil
}

func (s *Service) GetCostBreakdown(ctx context.Context, q analyticsdomain.Query) (*analyticsdomain.CostBreakdown, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	orders, err := s.loadOrders(ctx, q)
	if err != nil {
		return nil, err
	}
	orderIDs := make([]string, 0, len(orders))
	for i := range orders {
		orderIDs = append(orderIDs, orders[i].AmazonOrderID)
	}

	events, err := s.loadLedger(ctx, q, orderIDs)
	if err != nil {
		return nil, err
	}

	byCategory := map[string]map[string]int64{}
	breakdown := &analyticsdomain.CostBreakdown{}
	for _, ev := range events {
		if ev.EventType != ledgerdomain.EventTypeFee && ev.EventType != ledgerdomain.EventTypeServiceFee {
			continue
		}
		amount := -ev.Amount
		category := ev.FeeCategory
		if category == "" {
			category = fees.CategoryOther
		}
		if byCategory[category] == nil {
			byCategory[category] = map[string]int64{}
		}
		byCategory[category][ev.FeeType] += amount
		breakdown.TotalFees += amount
	}

	for category, byFeeType := range byCategory {
		entry := analyticsdomain.CategoryBreakdown{Category: category}
		for feeType, amount := range byFeeType {
			entry.Amount += amount
			entry.FeeTypes = append(entry.FeeTypes, analyticsdomain.FeeTypeSubtotal{
				FeeType:     feeType,
				DisplayName: s.tax.Resolve(feeType).DisplayName,
				Amount:      amount,
			})
		}
		if breakdown.TotalFees != 0 {
			entry.Percent = float64(entry.Amount) / float64(breakdown.TotalFees) * 100
		}
		sort.Slice(entry.FeeTypes, func(i, j int) bool {
			return entry.FeeTypes[i].Amount > entry.FeeTypes[j].Amount
		})
		breakdown.Categories = append(breakdown.Categories, entry)
	}
	sort.Slice(breakdown.Categories, func(i, j int) bool {
		return breakdown.Categories[i].Amount > breakdown.Categories[j].Amount
	})
	return breakdown, nil
}

func (s *Service) GetMarketplaceStats(ctx context.Context, q analyticsdomain.Query) ([]analyticsdomain.MarketplaceStat, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	orders, err := s.loadOrders(ctx, q)
	if err != nil {
		return nil, err
	}

	byMarketplace := map[string]*analyticsdomain.MarketplaceStat{}
	for i := range orders {
		order := &orders[i]
		stat, ok := byMarketplace[order.MarketplaceID]
		if !ok {
			stat = &analyticsdomain.MarketplaceStat{MarketplaceID: order.MarketplaceID}
			byMarketplace[order.MarketplaceID] = stat
		}
		stat.Revenue += orderRevenue(order, q.SKU)
		stat.OrderCount++
		for _, item := range filteredItems(order, q.SKU) {
			stat.UnitsSold += item.Quantity
		}
	}

	stats := make([]analyticsdomain.MarketplaceStat, 0, len(byMarketplace))
	for _, stat := range byMarketplace {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Revenue > stats[j].Revenue })
	return stats, nil
}
