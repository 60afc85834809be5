package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	accountservice "github.com/marginfox/marginfox/internal/account/service"
	analyticsservice "github.com/marginfox/marginfox/internal/analytics/service"
	catalogservice "github.com/marginfox/marginfox/internal/catalog/service"
	"github.com/marginfox/marginfox/internal/clock"
	"github.com/marginfox/marginfox/internal/config"
	expenseservice "github.com/marginfox/marginfox/internal/expense/service"
	"github.com/marginfox/marginfox/internal/ledger/dedup"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/ledger/fees"
	"github.com/marginfox/marginfox/internal/migration"
	"github.com/marginfox/marginfox/internal/normalize"
	orderdomain "github.com/marginfox/marginfox/internal/order/domain"
	orderservice "github.com/marginfox/marginfox/internal/order/service"
	"github.com/marginfox/marginfox/internal/ratelimit"
	syncpkg "github.com/marginfox/marginfox/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testAccountID snowflake.ID = 42

type serverRig struct {
	engine *gin.Engine
	db     *gorm.DB
	node   *snowflake.Node
}

func newServerRig(t *testing.T) *serverRig {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	log := zap.NewNop()

	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	sleeper := &clock.FakeSleeper{Clock: clk}

	cfg := config.Config{
		HTTPPort:   "0",
		SPAPIRate:  1000,
		SPAPIBurst: 1000,
		Sync: config.SyncConfig{
			ChunkDays:              30,
			MaxDaysBack:            729,
			MarketplaceConcurrency: 2,
			ReportThresholdDays:    60,
			ReportPollInterval:     30 * time.Second,
			ReportMaxPolls:         3,
			PageRetryLimit:         1,
		},
	}

	accountSvc := accountservice.NewService(accountservice.Params{DB: db, Log: log})
	orderSvc := orderservice.NewService(orderservice.Params{DB: db, Log: log, GenID: node})
	catalogSvc := catalogservice.NewService(catalogservice.Params{DB: db, Log: log, GenID: node})
	expenseSvc := expenseservice.NewService(expenseservice.Params{DB: db, Log: log, GenID: node})
	analyticsSvc := analyticsservice.NewService(analyticsservice.Params{
		DB:       db,
		Log:      log,
		Tax:      fees.New(fees.DefaultMappings()),
		Expenses: expenseSvc,
	})

	// The client factory is never reached: the sync routes under test fail
	// on validation or account lookup before a client is built.
	orch := syncpkg.NewOrchestrator(syncpkg.Params{
		Config:     cfg,
		DB:         db,
		Log:        log,
		Clock:      clk,
		Sleeper:    sleeper,
		GenID:      node,
		Accounts:   accountSvc,
		Orders:     orderSvc,
		Catalog:    catalogSvc,
		Normalizer: normalize.New(fees.New(fees.DefaultMappings()), log),
		Dedup:      dedup.NewEngine(dedup.Params{DB: db, Log: log, GenID: node}),
		Limiter: ratelimit.NewAPILimiter(ratelimit.Params{
			Config: cfg, Clock: clk, Sleeper: sleeper, Log: log,
		}),
	})

	engine := NewEngine()
	NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		AccountSvc:   accountSvc,
		CatalogSvc:   catalogSvc,
		ExpenseSvc:   expenseSvc,
		AnalyticsSvc: analyticsSvc,
		Orchestrator: orch,
	})

	return &serverRig{engine: engine, db: db, node: node}
}

func (r *serverRig) seedAccount(t *testing.T) {
	t.Helper()
	require.NoError(t, r.db.Create(&accountdomain.Account{
		ID:                   testAccountID,
		Name:                 "Test Seller",
		SellingPartnerID:     "SP-0001",
		Region:               "eu",
		DefaultMarketplaceID: "A1PA6795UKMFR9",
		MarketplaceIDs:       datatypes.JSONSlice[string]{"A1PA6795UKMFR9"},
		RefreshToken:         "refresh-token",
	}).Error)
}

func (r *serverRig) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var envelope errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error
}

func TestHealthz(t *testing.T) {
	r := newServerRig(t)
	rec := r.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetAccountRedactsCredentials(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	rec := r.do(t, http.MethodGet, "/api/accounts/42", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view accountView
	decodeData(t, rec, &view)
	assert.Equal(t, "42", view.ID)
	assert.Equal(t, "Test Seller", view.Name)
	assert.Equal(t, []string{"A1PA6795UKMFR9"}, view.MarketplaceIDs)

	assert.NotContains(t, rec.Body.String(), "refresh-token")
	assert.NotContains(t, rec.Body.String(), "SP-0001")
}

func TestGetAccountNotFound(t *testing.T) {
	r := newServerRig(t)
	rec := r.do(t, http.MethodGet, "/api/accounts/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestBadAccountIDIsValidationError(t *testing.T) {
	r := newServerRig(t)
	rec := r.do(t, http.MethodGet, "/api/accounts/not-a-number/profit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)
}

func TestSyncRejectsInvalidDaysBack(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	for _, days := range []string{"0", "-5", "900"} {
		rec := r.do(t, http.MethodPost, "/api/accounts/42/sync/ledger?days_back="+days, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "days_back=%s", days)
		assert.Equal(t, "validation_error", decodeError(t, rec).Type)
	}
}

func TestSyncUnknownAccount(t *testing.T) {
	r := newServerRig(t)
	rec := r.do(t, http.MethodPost, "/api/accounts/99/sync/orders", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSyncJobs(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)
	require.NoError(t, r.db.Create(&ledgerdomain.SyncJob{
		ID:        r.node.Generate(),
		AccountID: testAccountID,
		JobType:   ledgerdomain.SyncJobTypeLedger,
		Status:    ledgerdomain.SyncJobStatusCompleted,
		StartedAt: time.Date(2026, 3, 30, 8, 0, 0, 0, time.UTC),
	}).Error)

	rec := r.do(t, http.MethodGet, "/api/accounts/42/sync-jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs []ledgerdomain.SyncJob
	decodeData(t, rec, &jobs)
	require.Len(t, jobs, 1)
	assert.Equal(t, ledgerdomain.SyncJobTypeLedger, jobs[0].JobType)
}

func TestProfitEndpoint(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	purchased := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.db.Create(&orderdomain.Order{
		ID:            r.node.Generate(),
		AccountID:     testAccountID,
		AmazonOrderID: "ORD-1",
		MarketplaceID: "A1PA6795UKMFR9",
		Status:        orderdomain.OrderStatusShipped,
		PurchaseDate:  purchased,
		TotalAmount:   5000,
		Currency:      "EUR",
	}).Error)
	require.NoError(t, r.db.Create(&ledgerdomain.FinancialEvent{
		ID:            r.node.Generate(),
		AccountID:     testAccountID,
		EventType:     ledgerdomain.EventTypeFee,
		PostedDate:    purchased,
		AmazonOrderID: "ORD-1",
		SKU:           "SKU-RED-M",
		Amount:        -600,
		Currency:      "EUR",
		FeeType:       "FBAPerUnitFulfillmentFee",
		FeeCategory:   fees.CategoryFulfillment,
	}).Error)

	rec := r.do(t, http.MethodGet, "/api/accounts/42/profit?from=2026-03-01&to=2026-04-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		Revenue   int64 `json:"revenue"`
		Fees      int64 `json:"fees"`
		NetProfit int64 `json:"net_profit"`
	}
	decodeData(t, rec, &summary)
	assert.Equal(t, int64(5000), summary.Revenue)
	assert.Equal(t, int64(600), summary.Fees)
	assert.Equal(t, int64(4400), summary.NetProfit)
}

func TestProfitRejectsInvertedRange(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	rec := r.do(t, http.MethodGet, "/api/accounts/42/profit?from=2026-04-01&to=2026-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)
}

func TestExpenseLifecycle(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	rec := r.do(t, http.MethodPost, "/api/accounts/42/expenses", gin.H{
		"type":        "advertising",
		"description": "sponsored products march",
		"amount":      2500,
		"currency":    "EUR",
		"incurred_on": "2026-03-15",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		ID snowflake.ID `json:"ID"`
	}
	decodeData(t, rec, &created)
	require.NotZero(t, created.ID)

	rec = r.do(t, http.MethodGet, "/api/accounts/42/expenses?from=2026-03-01&to=2026-04-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []json.RawMessage
	decodeData(t, rec, &listed)
	assert.Len(t, listed, 1)

	rec = r.do(t, http.MethodDelete, fmt.Sprintf("/api/accounts/42/expenses/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = r.do(t, http.MethodGet, "/api/accounts/42/expenses?from=2026-03-01&to=2026-04-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed = nil
	decodeData(t, rec, &listed)
	assert.Empty(t, listed)
}

func TestCreateExpenseRejectsUnknownType(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	rec := r.do(t, http.MethodPost, "/api/accounts/42/expenses", gin.H{
		"type":        "gambling",
		"amount":      100,
		"incurred_on": "2026-03-15",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)
}

func TestDeleteExpenseNotFound(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	rec := r.do(t, http.MethodDelete, "/api/accounts/42/expenses/123", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProductCost(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	svc := catalogservice.NewService(catalogservice.Params{DB: r.db, Log: zap.NewNop(), GenID: r.node})
	product, err := svc.EnsureProduct(context.Background(), testAccountID, "SKU-RED-M", "B00TEST", "Red Shirt M", "EUR")
	require.NoError(t, err)

	rec := r.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d/cost", product.ID), gin.H{
		"cost_amount": 1200,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated struct {
		CostAmount int64 `json:"CostAmount"`
	}
	decodeData(t, rec, &updated)
	assert.Equal(t, int64(1200), updated.CostAmount)
}

func TestUpdateProductCostUnknownProduct(t *testing.T) {
	r := newServerRig(t)
	rec := r.do(t, http.MethodPut, "/api/products/555/cost", gin.H{"cost_amount": 100})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProductCostRejectsNegative(t *testing.T) {
	r := newServerRig(t)
	r.seedAccount(t)

	svc := catalogservice.NewService(catalogservice.Params{DB: r.db, Log: zap.NewNop(), GenID: r.node})
	product, err := svc.EnsureProduct(context.Background(), testAccountID, "SKU-RED-M", "", "", "EUR")
	require.NoError(t, err)

	rec := r.do(t, http.MethodPut, fmt.Sprintf("/api/products/%d/cost", product.ID), gin.H{
		"cost_amount": -50,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decodeError(t, rec).Type)
}
