package dedup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// PostedDateTolerance absorbs clock skew between the two settlement
	// sources posting the same economic fact.
	PostedDateTolerance = time.Second
	// AmountTolerance absorbs rounding differences, in minor currency
	// units (0.01 currency units = 1 cent).
	AmountTolerance int64 = 1
)

// Matcher decides whether a candidate event already has an equivalent ledger
// row. Matchers are tried in order; the first match wins.
type Matcher interface {
	Name() string
	Match(ctx context.Context, tx *gorm.DB, candidate *ledgerdomain.FinancialEvent) (*ledgerdomain.FinancialEvent, error)
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

// Engine guards every ledger insert. Re-running a sync over an already
// ingested window must not change the ledger.
type Engine struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	matchers []Matcher
}

func NewEngine(p Params) *Engine {
	return &Engine{
		db:    p.DB,
		log:   p.Log.Named("ledger.dedup"),
		genID: p.GenID,
		matchers: []Matcher{
			byStableID{},
			byToleranceWindow{},
		},
	}
}

// Post inserts the candidate unless an equivalent row exists. It reports
// whether a row was inserted. The check-then-insert sequence runs inside one
// transaction; the stable-id path is additionally guarded by a partial
// unique index so concurrent workers cannot double-post.
func (e *Engine) Post(ctx context.Context, candidate *ledgerdomain.FinancialEvent) (bool, error) {
	inserted := false
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range e.matchers {
			existing, err := m.Match(ctx, tx, candidate)
			if err != nil {
				return err
			}
			if existing != nil {
				e.log.Debug("candidate deduplicated",
					zap.String("matcher", m.Name()),
					zap.String("order_id", candidate.AmazonOrderID),
					zap.String("fee_type", candidate.FeeType),
				)
				return nil
			}
		}

		if candidate.ID == 0 {
			candidate.ID = e.genID.Generate()
		}

		stmt := tx
		if candidate.FinancialEventID != "" && supportsConflictTarget(tx) {
			stmt = stmt.Clauses(stableIDConflictClause())
		}
		result := stmt.Create(candidate)
		if result.Error != nil {
			if db.IsDuplicateKeyErr(result.Error) {
				return nil
			}
			return result.Error
		}
		inserted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// byStableID matches on the upstream-stable identifier when the source
// supplies one.
type byStableID struct{}

func (byStableID) Name() string { return "stable_id" }

func (byStableID) Match(ctx context.Context, tx *gorm.DB, candidate *ledgerdomain.FinancialEvent) (*ledgerdomain.FinancialEvent, error) {
	if candidate.FinancialEventID == "" {
		return nil, nil
	}
	var existing ledgerdomain.FinancialEvent
	err := tx.WithContext(ctx).
		Where("account_id = ? AND financial_event_id = ?", candidate.AccountID, candidate.FinancialEventID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &existing, nil
}

// byToleranceWindow matches idless candidates on the composite identity plus
// tolerance windows on posting time and amount. The two upstream sources
// round amounts and timestamp postings slightly differently for the same
// fact; exact matching would double-count.
type byToleranceWindow struct{}

func (byToleranceWindow) Name() string { return "tolerance_window" }

func (byToleranceWindow) Match(ctx context.Context, tx *gorm.DB, candidate *ledgerdomain.FinancialEvent) (*ledgerdomain.FinancialEvent, error) {
	// A candidate carrying a stable id is identified by that id alone.
	// Two postings with distinct ids are distinct facts even when their
	// composite identity and amounts coincide.
	if candidate.FinancialEventID != "" {
		return nil, nil
	}
	var existing ledgerdomain.FinancialEvent
	err := tx.WithContext(ctx).
		Where("account_id = ? AND event_type = ? AND amazon_order_id = ? AND sku = ? AND fee_type = ?",
			candidate.AccountID,
			candidate.EventType,
			candidate.AmazonOrderID,
			candidate.SKU,
			candidate.FeeType,
		).
		Where("posted_date >= ? AND posted_date <= ?",
			candidate.PostedDate.Add(-PostedDateTolerance),
			candidate.PostedDate.Add(PostedDateTolerance),
		).
		Where("amount >= ? AND amount <= ?",
			candidate.Amount-AmountTolerance,
			candidate.Amount+AmountTolerance,
		).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &existing, nil
}

// The stable-id unique index is partial (financial_event_id <> ''), and both
// postgres and sqlite require the conflict target to name it. MySQL has no
// conflict targets; there the duplicate-key error path handles the race.
func supportsConflictTarget(tx *gorm.DB) bool {
	if tx == nil {
		return false
	}
	name := tx.Dialector.Name()
	return strings.EqualFold(name, "postgres") || strings.EqualFold(name, "sqlite")
}

func stableIDConflictClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "financial_event_id"}},
		DoNothing: true,
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "financial_event_id <> ''"},
		}},
	}
}
