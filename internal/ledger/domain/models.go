package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type EventType string

const (
	EventTypeOrderRevenue EventType = "OrderRevenue"
	EventTypeFee          EventType = "Fee"
	EventTypeServiceFee   EventType = "ServiceFee"
	EventTypeRefund       EventType = "Refund"
)

// FinancialEvent is one posted monetary fact in the ledger. Rows are created
// only by the sync pipeline and never updated; the ledger is append-only.
//
// AmazonOrderID, SKU and FinancialEventID are empty when the upstream source
// does not supply them (account-level fees, legacy service fees). The
// identifying key therefore differs by source and uniqueness is enforced by
// the dedup engine plus a partial unique index on the stable-id path.
type FinancialEvent struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID snowflake.ID `gorm:"not null;index:ix_fin_events_account_order,priority:1;index:ix_fin_events_account_event,priority:1"`

	EventType  EventType `gorm:"type:text;not null"`
	PostedDate time.Time `gorm:"not null;index"`

	AmazonOrderID    string `gorm:"type:text;not null;default:'';index:ix_fin_events_account_order,priority:2"`
	SKU              string `gorm:"type:text;not null;default:''"`
	FinancialEventID string `gorm:"type:text;not null;default:'';index:ix_fin_events_account_event,priority:2"`

	// Amount is signed minor units: revenue positive, fees and refunds
	// negative as posted upstream.
	Amount   int64  `gorm:"not null"`
	Currency string `gorm:"type:text;not null;default:''"`

	FeeType     string `gorm:"type:text;not null;default:''"`
	FeeCategory string `gorm:"type:text;not null;default:'';index"`

	MarketplaceID string `gorm:"type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FinancialEvent) TableName() string { return "financial_events" }

type SyncJobStatus string

const (
	SyncJobStatusRunning   SyncJobStatus = "running"
	SyncJobStatusCompleted SyncJobStatus = "completed"
	SyncJobStatusFailed    SyncJobStatus = "failed"
)

const (
	SyncJobTypeOrders    = "order_sync"
	SyncJobTypeLedger    = "ledger_sync"
	SyncJobTypeInventory = "inventory_sync"
)

// SyncJob is the audit record of one orchestrator run. It is finalized once
// and immutable thereafter; operators read it, correctness never depends on
// it.
type SyncJob struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID snowflake.ID `gorm:"not null;index"`

	RunID            string        `gorm:"type:text;not null"`
	JobType          string        `gorm:"type:text;not null"`
	Status           SyncJobStatus `gorm:"type:text;not null"`
	RecordsProcessed int           `gorm:"not null;default:0"`
	Error            string        `gorm:"type:text;not null;default:''"`

	StartedAt  time.Time `gorm:"not null"`
	FinishedAt *time.Time

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SyncJob) TableName() string { return "sync_jobs" }

// FeeCategoryMapping maps one raw upstream fee type to a reporting category.
// The table is static reference data, read once at startup.
type FeeCategoryMapping struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	FeeType     string       `gorm:"type:text;not null;uniqueIndex"`
	Category    string       `gorm:"type:text;not null"`
	DisplayName string       `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FeeCategoryMapping) TableName() string { return "fee_category_mappings" }

var (
	ErrInvalidAccount  = errors.New("invalid_account")
	ErrInvalidDaysBack = errors.New("invalid_days_back")
)
