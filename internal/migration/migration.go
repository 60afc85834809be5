package migration

import (
	"strings"

	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
	expensedomain "github.com/marginfox/marginfox/internal/expense/domain"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	orderdomain "github.com/marginfox/marginfox/internal/order/domain"
	"gorm.io/gorm"
)

// Run creates all core tables so the service is usable out of the box for
// local and self-hosted installs.
func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&accountdomain.Account{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&catalogdomain.Product{},
		&catalogdomain.Inventory{},
		&expensedomain.Expense{},
		&ledgerdomain.FinancialEvent{},
		&ledgerdomain.SyncJob{},
		&ledgerdomain.FeeCategoryMapping{},
	); err != nil {
		return err
	}
	return ensureLedgerIndexes(db)
}

// ensureLedgerIndexes creates the partial unique index guarding the
// stable-id dedup path. Rows without an upstream id (empty
// financial_event_id) are excluded; their uniqueness is enforced by the
// tolerance matcher instead.
func ensureLedgerIndexes(db *gorm.DB) error {
	if strings.EqualFold(db.Dialector.Name(), "mysql") {
		// MySQL has no partial indexes; the dedup engine's duplicate-key
		// handling alone covers the race there.
		return nil
	}
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_financial_events_stable_id
		 ON financial_events (account_id, financial_event_id)
		 WHERE financial_event_id <> ''`,
	).Error
}
