package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	orderdomain "github.com/marginfox/marginfox/internal/order/domain"
	"github.com/marginfox/marginfox/internal/spapi"
	"go.uber.org/zap"
)

// SyncOrders retrieves all orders for the account over the look-back window
// and upserts them with their line items. Wide windows switch to the bulk
// report strategy to stay inside upstream rate limits.
func (o *Orchestrator) SyncOrders(ctx context.Context, accountID snowflake.ID, daysBack int) (int, error) {
	return o.run(ctx, accountID, daysBack, ledgerdomain.SyncJobTypeOrders, func(ctx context.Context, account *accountdomain.Account) (int, error) {
		client := o.clients.ForAccount(account)
		if daysBack > o.cfg.ReportThresholdDays {
			return o.syncOrdersViaReport(ctx, account, client, daysBack)
		}
		return o.syncOrdersViaAPI(ctx, account, client, daysBack)
	})
}

func (o *Orchestrator) syncOrdersViaAPI(ctx context.Context, account *accountdomain.Account, client spapi.Client, daysBack int) (int, error) {
	windows := chunkWindows(o.clk.Now(), daysBack, o.cfg.ChunkDays, o.cfg.SafetyMargin)
	total := 0
	for _, win := range windows {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		total += o.syncOrdersChunk(ctx, account, client, win)
	}
	return total, nil
}

// syncOrdersChunk fans out one chunk across the account's marketplaces with
// bounded concurrency. A single multi-marketplace query under-returns, so
// each marketplace gets its own query; a marketplace failure is logged and
// its siblings continue.
func (o *Orchestrator) syncOrdersChunk(ctx context.Context, account *accountdomain.Account, client spapi.Client, win window) int {
	marketplaces := account.Marketplaces()
	sem := make(chan struct{}, o.cfg.MarketplaceConcurrency)
	results := make(chan int, len(marketplaces))

	for _, marketplaceID := range marketplaces {
		go func(marketplaceID string) {
			sem <- struct{}{}
			defer func() { <-sem }()

			n, err := o.syncMarketplaceWindow(ctx, account, client, marketplaceID, win)
			if err != nil {
				o.metrics.ChunkFailed(ledgerdomain.SyncJobTypeOrders)
				o.log.Warn("marketplace window failed",
					zap.String("marketplace_id", marketplaceID),
					zap.Time("window_start", win.start),
					zap.Time("window_end", win.end),
					zap.Error(err),
				)
			}
			results <- n
		}(marketplaceID)
	}

	total := 0
	for range marketplaces {
		total += <-results
	}
	return total
}

// syncMarketplaceWindow drains one (marketplace, window) query in cursor
// order. Partial progress before an error still counts; the orders already
// upserted are valid.
func (o *Orchestrator) syncMarketplaceWindow(ctx context.Context, account *accountdomain.Account, client spapi.Client, marketplaceID string, win window) (int, error) {
	processed := 0
	nextToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		page, err := client.ListOrders(ctx, marketplaceID, win.start, win.end, nextToken)
		if err != nil {
			return processed, err
		}
		o.metrics.PageFetched("orders")

		for i := range page.Orders {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			if err := o.ingestOrder(ctx, account, client, &page.Orders[i]); err != nil {
				o.log.Warn("order ingest failed",
					zap.String("amazon_order_id", page.Orders[i].AmazonOrderID),
					zap.Error(err),
				)
				continue
			}
			processed++
		}

		nextToken = page.NextToken
		if nextToken == "" {
			return processed, nil
		}
	}
}

// ingestOrder upserts one order and, unless the order was cancelled,
// refreshes its line items and first-seen products.
func (o *Orchestrator) ingestOrder(ctx context.Context, account *accountdomain.Account, client spapi.Client, raw *spapi.Order) error {
	order, err := o.mapOrder(account, raw)
	if err != nil {
		return err
	}
	stored, err := o.orders.Upsert(ctx, order)
	if err != nil {
		return err
	}
	if stored.Status == orderdomain.OrderStatusCanceled {
		return nil
	}

	items, err := client.ListOrderItems(ctx, raw.AmazonOrderID)
	if err != nil {
		return err
	}
	o.metrics.PageFetched("order_items")
	return o.storeItems(ctx, account, stored, items)
}

func (o *Orchestrator) mapOrder(account *accountdomain.Account, raw *spapi.Order) (*orderdomain.Order, error) {
	purchased, err := time.Parse(time.RFC3339, raw.PurchaseDate)
	if err != nil {
		return nil, err
	}
	lastUpdate := purchased
	if raw.LastUpdateDate != "" {
		if parsed, err := time.Parse(time.RFC3339, raw.LastUpdateDate); err == nil {
			lastUpdate = parsed
		}
	}

	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	currency := ""
	if raw.OrderTotal != nil {
		currency = raw.OrderTotal.CurrencyCode
	}

	return &orderdomain.Order{
		AccountID:       account.ID,
		AmazonOrderID:   raw.AmazonOrderID,
		MarketplaceID:   raw.MarketplaceID,
		Status:          orderdomain.OrderStatus(raw.OrderStatus),
		IsBusinessOrder: raw.IsBusinessOrder || raw.OrderType == "BusinessOrder",
		PurchaseDate:    purchased.UTC(),
		LastUpdate:      lastUpdate.UTC(),
		TotalAmount:     raw.OrderTotal.Cents(),
		Currency:        currency,
		RawPayload:      payload,
	}, nil
}

func (o *Orchestrator) storeItems(ctx context.Context, account *accountdomain.Account, order *orderdomain.Order, items []spapi.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	lines := make([]orderdomain.OrderItem, 0, len(items))
	for _, item := range items {
		currency := order.Currency
		if item.ItemPrice != nil {
			currency = item.ItemPrice.CurrencyCode
		}

		if _, err := o.catalog.EnsureProduct(ctx, account.ID, item.SellerSKU, item.ASIN, item.Title, currency); err != nil {
			o.log.Warn("product ensure failed",
				zap.String("sku", item.SellerSKU),
				zap.Error(err),
			)
		}

		lines = append(lines, orderdomain.OrderItem{
			OrderItemID:       item.OrderItemID,
			SKU:               item.SellerSKU,
			ASIN:              item.ASIN,
			Title:             item.Title,
			Quantity:          item.QuantityOrdered,
			ItemPrice:         item.ItemPrice.Cents(),
			ItemTax:           item.ItemTax.Cents(),
			ShippingPrice:     item.ShippingPrice.Cents(),
			ShippingTax:       item.ShippingTax.Cents(),
			PromotionDiscount: item.PromotionDiscount.Cents(),
			Currency:          currency,
		})
	}
	return o.orders.UpsertItems(ctx, order.ID, lines)
}
