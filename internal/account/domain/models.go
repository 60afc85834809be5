package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Account is one authorized seller identity. It is created by the OAuth
// handshake outside the core and consumed read-only by the sync pipeline.
type Account struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	Name             string       `gorm:"type:text;not null"`
	SellingPartnerID string       `gorm:"type:text;not null;uniqueIndex"`
	Region           string       `gorm:"type:text;not null"`

	DefaultMarketplaceID string                      `gorm:"type:text;not null"`
	MarketplaceIDs       datatypes.JSONSlice[string] `gorm:"not null"`

	RefreshToken string `gorm:"type:text;not null"`

	// UseLegacyFinances pins the account to the legacy financial-events
	// source. Exactly one settlement source is ever read per account.
	UseLegacyFinances bool `gorm:"not null;default:false"`

	LastOrderSyncAt  *time.Time
	LastLedgerSyncAt *time.Time

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// Marketplaces returns the marketplace scope for sync fan-out, falling back
// to the default marketplace when none are configured.
func (a *Account) Marketplaces() []string {
	if len(a.MarketplaceIDs) > 0 {
		return a.MarketplaceIDs
	}
	if a.DefaultMarketplaceID != "" {
		return []string{a.DefaultMarketplaceID}
	}
	return nil
}

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	MarkSynced(ctx context.Context, id snowflake.ID, jobType string, at time.Time) error
}

var (
	ErrAccountNotFound = errors.New("account_not_found")
)
