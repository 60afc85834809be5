package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/marginfox/marginfox/internal/account"
	"github.com/marginfox/marginfox/internal/clock"
	"github.com/marginfox/marginfox/internal/config"
	"github.com/marginfox/marginfox/internal/ledger"
	"github.com/marginfox/marginfox/internal/logger"
	"github.com/marginfox/marginfox/internal/migration"
	"github.com/marginfox/marginfox/internal/normalize"
	"github.com/marginfox/marginfox/internal/observability"
	"github.com/marginfox/marginfox/internal/order"
	"github.com/marginfox/marginfox/internal/ratelimit"
	"github.com/marginfox/marginfox/internal/scheduler"
	"github.com/marginfox/marginfox/internal/server"
	"github.com/marginfox/marginfox/internal/spapi"
	syncengine "github.com/marginfox/marginfox/internal/sync"
	"github.com/marginfox/marginfox/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,

		// sync pipeline
		account.Module,
		order.Module,
		ledger.Module,
		normalize.Module,
		ratelimit.Module,
		spapi.Module,
		syncengine.Module,

		// outer surfaces
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
