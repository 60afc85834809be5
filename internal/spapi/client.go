package spapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	"github.com/marginfox/marginfox/internal/clock"
	"github.com/marginfox/marginfox/internal/config"
	"github.com/marginfox/marginfox/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	requestTimeout = 30 * time.Second
	userAgent      = "MarginFox/1.0 (Language=Go)"
	pageSize       = 100
)

// Client is the typed surface over the selling-partner API that the sync
// orchestrator consumes. One client serves one seller account.
type Client interface {
	ListOrders(ctx context.Context, marketplaceID string, after, before time.Time, nextToken string) (*OrdersPage, error)
	ListOrderItems(ctx context.Context, amazonOrderID string) ([]OrderItem, error)
	ListFinancialEvents(ctx context.Context, after, before time.Time, nextToken string) (*FinancialEventsPage, error)
	ListTransactions(ctx context.Context, after, before time.Time, nextToken string) (*TransactionsPage, error)
	ListInventorySummaries(ctx context.Context, marketplaceID, nextToken string) (*InventoryPage, error)

	CreateReport(ctx context.Context, reportType string, marketplaceIDs []string, start, end time.Time) (string, error)
	GetReport(ctx context.Context, reportID string) (*Report, error)
	GetReportDocument(ctx context.Context, documentID string) (*ReportDocument, error)
	DownloadDocument(ctx context.Context, doc *ReportDocument) ([]byte, error)
}

// Factory builds a Client for one account. The sync layer asks for a fresh
// client per run so token caches die with the run.
type Factory interface {
	ForAccount(account *accountdomain.Account) Client
}

type FactoryParams struct {
	fx.In

	Config  config.Config
	Clock   clock.Clock
	Sleeper clock.Sleeper
	Limiter ratelimit.Limiter
	Log     *zap.Logger
}

type httpFactory struct {
	cfg     config.Config
	clk     clock.Clock
	sleeper clock.Sleeper
	limiter ratelimit.Limiter
	log     *zap.Logger
}

func NewFactory(p FactoryParams) Factory {
	return &httpFactory{
		cfg:     p.Config,
		clk:     p.Clock,
		sleeper: p.Sleeper,
		limiter: p.Limiter,
		log:     p.Log.Named("spapi"),
	}
}

func (f *httpFactory) ForAccount(account *accountdomain.Account) Client {
	http := resty.New().
		SetBaseURL(f.cfg.SPAPIEndpoint).
		SetTimeout(requestTimeout).
		SetHeader("User-Agent", userAgent)

	return &httpClient{
		http:       http,
		download:   resty.New().SetTimeout(2 * requestTimeout),
		lwa:        newLWATokenSource(resty.New().SetTimeout(requestTimeout), f.cfg.LWAEndpoint, f.cfg.LWAClientID, f.cfg.LWAClientSecret, account.RefreshToken, f.clk),
		limiter:    f.limiter,
		limiterKey: account.SellingPartnerID,
		sleeper:    f.sleeper,
		retryLimit: f.cfg.Sync.PageRetryLimit,
		log:        f.log.With(zap.String("selling_partner_id", account.SellingPartnerID)),
	}
}

type httpClient struct {
	http       *resty.Client
	download   *resty.Client
	lwa        *lwaTokenSource
	limiter    ratelimit.Limiter
	limiterKey string
	sleeper    clock.Sleeper
	retryLimit int
	log        *zap.Logger
}

// call throttles, authenticates, and retries one API request. Retries cover
// 429 and 5xx responses plus transport errors, with doubling backoff; other
// non-2xx statuses fail immediately.
func (c *httpClient) call(ctx context.Context, send func(req *resty.Request) (*resty.Response, error)) error {
	var lastErr error
	for attempt := 0; attempt <= c.retryLimit; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			if err := c.sleeper.Sleep(ctx, backoff); err != nil {
				return err
			}
		}

		if err := c.limiter.Wait(ctx, c.limiterKey); err != nil {
			return err
		}
		token, err := c.lwa.Token(ctx)
		if err != nil {
			return err
		}

		resp, err := send(c.http.R().SetContext(ctx).SetHeader("x-amz-access-token", token))
		if err != nil {
			lastErr = err
			c.log.Warn("request transport error", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if retryableStatus(resp.StatusCode()) {
			lastErr = fmt.Errorf("upstream status %d: %s", resp.StatusCode(), resp.String())
			c.log.Warn("retryable upstream response",
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode()),
			)
			continue
		}
		if resp.IsError() {
			return fmt.Errorf("upstream status %d: %s", resp.StatusCode(), resp.String())
		}
		return nil
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.retryLimit+1, lastErr)
}

func retryableStatus(code int) bool {
	return code == 429 || code >= 500
}

type ordersResponse struct {
	Payload OrdersPage `json:"payload"`
}

func (c *httpClient) ListOrders(ctx context.Context, marketplaceID string, after, before time.Time, nextToken string) (*OrdersPage, error) {
	var out ordersResponse
	err := c.call(ctx, func(req *resty.Request) (*resty.Response, error) {
		req.SetResult(&out)
		if nextToken != "" {
			// A continuation token encodes the original query; other
			// parameters must not be resent alongside it.
			req.SetQueryParam("NextToken", nextToken)
		} else {
			req.SetQueryParams(map[string]string{
				"MarketplaceIds":    marketplaceID,
				"LastUpdatedAfter":  after.UTC().Format(time.RFC3339),
				"LastUpdatedBefore": before.UTC().Format(time.RFC3339),
				"MaxResultsPerPage": fmt.Sprintf("%d", pageSize),
			})
		}
		return req.Get("/orders/v0/orders")
	})
	if err != nil {
		return nil, err
	}
	return &out.Payload, nil
}

type orderItemsResponse struct {
	Payload struct {
		AmazonOrderID string      `json:"AmazonOrderId"`
		OrderItems    []OrderItem `json:"OrderItems"`
		NextToken     string      `json:"NextToken"`
	} `json:"payload"`
}

func (c *httpClient) ListOrderItems(ctx context.Context, amazonOrderID string) ([]OrderItem, error) {
	var items []OrderItem
	nextToken := ""
	for {
		var out orderItemsResponse
		err := c.call(ctx, func(req *resty.Request) (*resty.Response, error) {
			req.SetResult(&out)
			if nextToken != "" {
				req.SetQueryParam("NextToken", nextToken)
			}
			return req.Get(fmt.Sprintf("/orders/v0/orders/%s/orderItems", amazonOrderID))
		})
		if err != nil {
			return nil, err
		}
		items = append(items, out.Payload.OrderItems...)
		nextToken = out.Payload.NextToken
		if nextToken == "" {
			return items, nil
		}
	}
}

type financialEventsResponse struct {
	Payload struct {
		FinancialEvents FinancialEventsPage `json:"FinancialEvents"`
		NextToken       string              `json:"NextToken"`
	} `json:"payload"`
}

func (c *httpClient) ListFinancialEvents(ctx context.Context, after, before time.Time, nextToken string) (*FinancialEventsPage, error) {
	var out financialEventsResponse
	err := c.call(ctx, func(req *resty.Request) (*resty.Response, error) {
		req.SetResult(&out)
		if nextToken != "" {
			req.SetQueryParam("NextToken", nextToken)
		} else {
			req.SetQueryParams(map[string]string{
				"PostedAfter":  after.UTC().Format(time.RFC3339),
				"PostedBefore": before.UTC().Format(time.RFC3339),
			})
		}
		return req.Get("/finances/v0/financialEvents")
	})
	if err != nil {
		return nil, err
	}
	page := out.Payload.FinancialEvents
	page.NextToken = out.Payload.NextToken
	return &page, nil
}

func (c *httpClient) ListTransactions(ctx context.Context, after, before time.Time, nextToken string) (*TransactionsPage, error) {
	var out TransactionsPage
	err := c.call(ctx, func(req *resty.Request) (*resty.Response, error) {
		req.SetResult(&out)
		if nextToken != "" {
			req.SetQueryParam("nextToken", nextToken)
		} else {
			req.SetQueryParams(map[string]string{
				"postedAfter":  after.UTC().Format(time.RFC3339),
				"postedBefore": before.UTC().Format(time.RFC3339),
			})
		}
		return req.Get("/finances/2024-06-19/transactions")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type inventoryResponse struct {
	Payload struct {
		Summaries []InventorySummary `json:"inventorySummaries"`
	} `json:"payload"`
	Pagination struct {
		NextToken string `json:"nextToken"`
	} `json:"pagination"`
}

func (c *httpClient) ListInventorySummaries(ctx context.Context, marketplaceID, nextToken string) (*InventoryPage, error) {
	var out inventoryResponse
	err := c.call(ctx, func(req *resty.Request) (*resty.Response, error) {
		req.SetResult(&out)
		req.SetQueryParams(map[string]string{
			"granularityType": "Marketplace",
			"granularityId":   marketplaceID,
			"marketplaceIds":  marketplaceID,
		})
		if nextToken != "" {
			req.SetQueryParam("nextToken", nextToken)
		}
		return req.Get("/fba/inventory/v1/summaries")
	})
	if err != nil {
		return nil, err
	}
	return &InventoryPage{
		Summaries: out.Payload.Summaries,
		NextToken: out.Pagination.NextToken,
	}, nil
}
