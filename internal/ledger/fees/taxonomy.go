package fees

import (
	"context"

	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"gorm.io/gorm"
)

// CategoryOther buckets fee types the taxonomy does not know. New fee types
// appear upstream over time and must not break ingestion.
const CategoryOther = "other"

// Resolution is the categorization attached to one raw fee type.
type Resolution struct {
	Category    string
	DisplayName string
}

// Taxonomy resolves raw fee-type strings to reporting categories. It is
// built once during startup and never mutated afterwards, so concurrent
// readers need no synchronization.
type Taxonomy struct {
	byFeeType map[string]Resolution
}

func New(mappings []ledgerdomain.FeeCategoryMapping) *Taxonomy {
	byFeeType := make(map[string]Resolution, len(mappings))
	for _, m := range mappings {
		byFeeType[m.FeeType] = Resolution{
			Category:    m.Category,
			DisplayName: m.DisplayName,
		}
	}
	return &Taxonomy{byFeeType: byFeeType}
}

// Load reads the mapping table, falling back to the compiled defaults when
// the table is empty.
func Load(ctx context.Context, db *gorm.DB) (*Taxonomy, error) {
	var mappings []ledgerdomain.FeeCategoryMapping
	if err := db.WithContext(ctx).Find(&mappings).Error; err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return New(DefaultMappings()), nil
	}
	return New(mappings), nil
}

// Resolve returns the category and display name for a raw fee type. Unknown
// fee types degrade to the "other" bucket with the raw string as display
// name.
func (t *Taxonomy) Resolve(feeType string) Resolution {
	if r, ok := t.byFeeType[feeType]; ok {
		return r
	}
	return Resolution{Category: CategoryOther, DisplayName: feeType}
}

// Known reports whether the fee type has an explicit mapping.
func (t *Taxonomy) Known(feeType string) bool {
	_, ok := t.byFeeType[feeType]
	return ok
}
