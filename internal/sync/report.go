package sync

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	orderdomain "github.com/marginfox/marginfox/internal/order/domain"
	"github.com/marginfox/marginfox/internal/spapi"
	"go.uber.org/zap"
)

// ErrReportTimeout means report generation did not finish within the
// bounded poll attempts. Unlike a FATAL report this aborts the whole run:
// the upstream queue is stuck and further chunks would wait just as long.
var ErrReportTimeout = errors.New("report_generation_timeout")

// syncOrdersViaReport covers large backfills with one flat-file report per
// chunk. Report generation is capped at 30 days per report, so the chunk
// tiling doubles as the report window tiling.
func (o *Orchestrator) syncOrdersViaReport(ctx context.Context, account *accountdomain.Account, client spapi.Client, daysBack int) (int, error) {
	windows := chunkWindows(o.clk.Now(), daysBack, o.cfg.ChunkDays, o.cfg.SafetyMargin)
	total := 0
	for _, win := range windows {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := o.syncOrdersReportChunk(ctx, account, client, win)
		total += n
		if err != nil {
			if errors.Is(err, ErrReportTimeout) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return total, err
			}
			o.metrics.ChunkFailed(ledgerdomain.SyncJobTypeOrders)
			o.log.Warn("report chunk failed",
				zap.Time("window_start", win.start),
				zap.Time("window_end", win.end),
				zap.Error(err),
			)
		}
	}
	return total, nil
}

func (o *Orchestrator) syncOrdersReportChunk(ctx context.Context, account *accountdomain.Account, client spapi.Client, win window) (int, error) {
	reportID, err := client.CreateReport(ctx, spapi.ReportTypeOrders, account.Marketplaces(), win.start, win.end)
	if err != nil {
		return 0, err
	}

	report, err := o.awaitReport(ctx, client, reportID)
	if err != nil {
		return 0, err
	}

	doc, err := client.GetReportDocument(ctx, report.ReportDocumentID)
	if err != nil {
		return 0, err
	}
	data, err := client.DownloadDocument(ctx, doc)
	if err != nil {
		return 0, err
	}

	orders, err := parseOrdersReport(data)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range orders {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := o.ingestReportOrder(ctx, account, &orders[i]); err != nil {
			o.log.Warn("report order ingest failed",
				zap.String("amazon_order_id", orders[i].amazonOrderID),
				zap.Error(err),
			)
			continue
		}
		processed++
	}
	return processed, nil
}

// awaitReport polls the report status on a fixed interval up to the bounded
// attempt count.
func (o *Orchestrator) awaitReport(ctx context.Context, client spapi.Client, reportID string) (*spapi.Report, error) {
	for attempt := 0; attempt < o.cfg.ReportMaxPolls; attempt++ {
		report, err := client.GetReport(ctx, reportID)
		if err != nil {
			return nil, err
		}
		o.metrics.ReportPoll()

		switch report.ProcessingStatus {
		case spapi.ReportStatusDone:
			return report, nil
		case spapi.ReportStatusFatal, spapi.ReportStatusCancelled:
			return nil, fmt.Errorf("report %s ended %s", reportID, report.ProcessingStatus)
		}

		if err := o.sleeper.Sleep(ctx, o.cfg.ReportPollInterval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("report %s after %d polls: %w", reportID, o.cfg.ReportMaxPolls, ErrReportTimeout)
}

// reportOrder is one order reassembled from the flat file's per-line rows.
type reportOrder struct {
	amazonOrderID string
	marketplaceID string
	status        string
	businessOrder bool
	purchaseDate  time.Time
	lastUpdate    time.Time
	currency      string
	items         []reportLine
}

type reportLine struct {
	orderItemID string
	sku         string
	asin        string
	title       string
	quantity    int
	itemPrice   int64
	itemTax     int64
	shipPrice   int64
	shipTax     int64
	promotion   int64
	currency    string
}

// parseOrdersReport reads the tab-separated flat file. Columns are resolved
// by header name; rows with a missing order id or unparseable purchase date
// are dropped.
func parseOrdersReport(data []byte) ([]reportOrder, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("report parse: %w", err)
	}
	if len(records) < 1 {
		return nil, nil
	}

	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	byOrderID := map[string]*reportOrder{}
	var ordered []string
	for _, row := range records[1:] {
		orderID := field(row, "amazon-order-id")
		if orderID == "" {
			continue
		}
		purchased, err := parseReportTime(field(row, "purchase-date"))
		if err != nil {
			continue
		}

		ord, ok := byOrderID[orderID]
		if !ok {
			lastUpdate := purchased
			if parsed, err := parseReportTime(field(row, "last-updated-date")); err == nil {
				lastUpdate = parsed
			}
			ord = &reportOrder{
				amazonOrderID: orderID,
				marketplaceID: field(row, "sales-channel"),
				status:        field(row, "order-status"),
				businessOrder: strings.EqualFold(field(row, "is-business-order"), "true"),
				purchaseDate:  purchased,
				lastUpdate:    lastUpdate,
				currency:      field(row, "currency"),
			}
			byOrderID[orderID] = ord
			ordered = append(ordered, orderID)
		}

		sku := field(row, "sku")
		if sku == "" {
			continue
		}
		itemID := field(row, "order-item-id")
		if itemID == "" {
			itemID = sku
		}
		quantity, _ := strconv.Atoi(field(row, "quantity"))
		ord.items = append(ord.items, reportLine{
			orderItemID: itemID,
			sku:         sku,
			asin:        field(row, "asin"),
			title:       field(row, "product-name"),
			quantity:    quantity,
			itemPrice:   parseReportCents(field(row, "item-price")),
			itemTax:     parseReportCents(field(row, "item-tax")),
			shipPrice:   parseReportCents(field(row, "shipping-price")),
			shipTax:     parseReportCents(field(row, "shipping-tax")),
			promotion:   parseReportCents(field(row, "item-promotion-discount")),
			currency:    field(row, "currency"),
		})
	}

	out := make([]reportOrder, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, *byOrderID[id])
	}
	return out, nil
}

func parseReportTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

func parseReportCents(raw string) int64 {
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}

// ingestReportOrder converges on the same upsert contract as the per-order
// API strategy.
func (o *Orchestrator) ingestReportOrder(ctx context.Context, account *accountdomain.Account, ord *reportOrder) error {
	var total int64
	lines := make([]orderdomain.OrderItem, 0, len(ord.items))
	for _, line := range ord.items {
		total += line.itemPrice + line.itemTax + line.shipPrice + line.shipTax
		currency := line.currency
		if currency == "" {
			currency = ord.currency
		}

		if _, err := o.catalog.EnsureProduct(ctx, account.ID, line.sku, line.asin, line.title, currency); err != nil {
			o.log.Warn("product ensure failed",
				zap.String("sku", line.sku),
				zap.Error(err),
			)
		}

		lines = append(lines, orderdomain.OrderItem{
			OrderItemID:       line.orderItemID,
			SKU:               line.sku,
			ASIN:              line.asin,
			Title:             line.title,
			Quantity:          line.quantity,
			ItemPrice:         line.itemPrice,
			ItemTax:           line.itemTax,
			ShippingPrice:     line.shipPrice,
			ShippingTax:       line.shipTax,
			PromotionDiscount: line.promotion,
			Currency:          currency,
		})
	}

	marketplaceID := ord.marketplaceID
	if marketplaceID == "" {
		marketplaceID = account.DefaultMarketplaceID
	}

	stored, err := o.orders.Upsert(ctx, &orderdomain.Order{
		AccountID:       account.ID,
		AmazonOrderID:   ord.amazonOrderID,
		MarketplaceID:   marketplaceID,
		Status:          orderdomain.OrderStatus(ord.status),
		IsBusinessOrder: ord.businessOrder,
		PurchaseDate:    ord.purchaseDate,
		LastUpdate:      ord.lastUpdate,
		TotalAmount:     total,
		Currency:        ord.currency,
	})
	if err != nil {
		return err
	}
	return o.orders.UpsertItems(ctx, stored.ID, lines)
}
