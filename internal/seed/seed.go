package seed

import (
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/ledger/fees"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EnsureFeeCategoryMappings populates the static fee taxonomy table on first
// start. An already-populated table is left untouched so operators can
// maintain their own mappings.
func EnsureFeeCategoryMappings(db *gorm.DB, genID *snowflake.Node) error {
	var count int64
	if err := db.Model(&ledgerdomain.FeeCategoryMapping{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	mappings := fees.DefaultMappings()
	for i := range mappings {
		mappings[i].ID = genID.Generate()
	}
	return db.Create(&mappings).Error
}
