package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	"github.com/marginfox/marginfox/internal/analytics"
	analyticsdomain "github.com/marginfox/marginfox/internal/analytics/domain"
	"github.com/marginfox/marginfox/internal/catalog"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
	"github.com/marginfox/marginfox/internal/config"
	"github.com/marginfox/marginfox/internal/expense"
	expensedomain "github.com/marginfox/marginfox/internal/expense/domain"
	syncpkg "github.com/marginfox/marginfox/internal/sync"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	catalog.Module,
	expense.Module,
	analytics.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	accountSvc   accountdomain.Service
	catalogSvc   catalogdomain.Service
	expenseSvc   expensedomain.Service
	analyticsSvc analyticsdomain.Service
	orchestrator *syncpkg.Orchestrator
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	AccountSvc   accountdomain.Service
	CatalogSvc   catalogdomain.Service
	ExpenseSvc   expensedomain.Service
	AnalyticsSvc analyticsdomain.Service
	Orchestrator *syncpkg.Orchestrator
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		accountSvc:   p.AccountSvc,
		catalogSvc:   p.CatalogSvc,
		expenseSvc:   p.ExpenseSvc,
		analyticsSvc: p.AnalyticsSvc,
		orchestrator: p.Orchestrator,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	accounts := api.Group("/accounts")
	accounts.GET("", s.ListAccounts)
	accounts.GET("/:id", s.GetAccount)
	accounts.POST("/:id/sync/orders", s.RunOrderSync)
	accounts.POST("/:id/sync/ledger", s.RunLedgerSync)
	accounts.POST("/:id/sync/inventory", s.RunInventorySync)
	accounts.GET("/:id/sync-jobs", s.ListSyncJobs)
	accounts.GET("/:id/profit", s.GetProfit)
	accounts.GET("/:id/daily-stats", s.GetDailyStats)
	accounts.GET("/:id/cost-breakdown", s.GetCostBreakdown)
	accounts.GET("/:id/marketplace-stats", s.GetMarketplaceStats)
	accounts.GET("/:id/products", s.ListProducts)
	accounts.GET("/:id/expenses", s.ListExpenses)
	accounts.POST("/:id/expenses", s.CreateExpense)
	accounts.DELETE("/:id/expenses/:expenseId", s.DeleteExpense)

	api.PUT("/products/:id/cost", s.UpdateProductCost)
}
