package ledger

import (
	"context"

	"github.com/marginfox/marginfox/internal/ledger/dedup"
	"github.com/marginfox/marginfox/internal/ledger/fees"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("ledger",
	fx.Provide(func(db *gorm.DB) (*fees.Taxonomy, error) {
		return fees.Load(context.Background(), db)
	}),
	fx.Provide(dedup.NewEngine),
)
