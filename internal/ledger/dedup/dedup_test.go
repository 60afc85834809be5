package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Run(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewEngine(Params{DB: db, Log: zap.NewNop(), GenID: node}), db
}

func countEvents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&ledgerdomain.FinancialEvent{}).Count(&count).Error)
	return count
}

func baseCandidate(accountID snowflake.ID, posted time.Time) ledgerdomain.FinancialEvent {
	return ledgerdomain.FinancialEvent{
		AccountID:     accountID,
		EventType:     ledgerdomain.EventTypeFee,
		PostedDate:    posted,
		AmazonOrderID: "028-1234567-0000001",
		SKU:           "SKU-RED-M",
		FeeType:       "FBAPerUnitFulfillmentFee",
		Amount:        -600,
		Currency:      "EUR",
	}
}

func TestStableIDDedup(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := baseCandidate(42, posted)
	first.FinancialEventID = "tx-0001"
	inserted, err := engine.Post(ctx, &first)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same stable id, different posted date and amount: still the same
	// upstream fact.
	second := baseCandidate(42, posted.Add(3*time.Hour))
	second.FinancialEventID = "tx-0001"
	second.Amount = -599
	inserted, err = engine.Post(ctx, &second)
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.Equal(t, int64(1), countEvents(t, db))
}

func TestStableIDScopedPerAccount(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := baseCandidate(42, posted)
	first.FinancialEventID = "tx-0001"
	_, err := engine.Post(ctx, &first)
	require.NoError(t, err)

	other := baseCandidate(43, posted)
	other.FinancialEventID = "tx-0001"
	inserted, err := engine.Post(ctx, &other)
	require.NoError(t, err)
	assert.True(t, inserted, "stable ids are only unique within one account")

	assert.Equal(t, int64(2), countEvents(t, db))
}

func TestDistinctStableIDsBothPost(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := baseCandidate(42, posted)
	first.FinancialEventID = "tx-0001"
	inserted, err := engine.Post(ctx, &first)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Two same-priced fee postings for one order and SKU in the same
	// settlement batch: the composite identity and amounts coincide, but
	// the distinct upstream ids make them distinct facts.
	second := baseCandidate(42, posted)
	second.FinancialEventID = "tx-0002"
	inserted, err = engine.Post(ctx, &second)
	require.NoError(t, err)
	assert.True(t, inserted, "distinct stable ids must both post")

	assert.Equal(t, int64(2), countEvents(t, db))
}

func TestToleranceWindowDedup(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := baseCandidate(42, posted)
	inserted, err := engine.Post(ctx, &first)
	require.NoError(t, err)
	assert.True(t, inserted)

	// 0.5s of clock skew and one minor unit of rounding: same fact.
	near := baseCandidate(42, posted.Add(500*time.Millisecond))
	near.Amount = first.Amount + AmountTolerance
	inserted, err = engine.Post(ctx, &near)
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.Equal(t, int64(1), countEvents(t, db))
}

func TestToleranceWindowBoundary(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := baseCandidate(42, posted)
	_, err := engine.Post(ctx, &first)
	require.NoError(t, err)

	// Two minor units apart exceeds the amount tolerance: a different fact.
	far := baseCandidate(42, posted)
	far.Amount = first.Amount + 2*AmountTolerance
	inserted, err := engine.Post(ctx, &far)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Two seconds of skew exceeds the posted-date tolerance.
	late := baseCandidate(42, posted.Add(2*time.Second))
	inserted, err = engine.Post(ctx, &late)
	require.NoError(t, err)
	assert.True(t, inserted)

	assert.Equal(t, int64(3), countEvents(t, db))
}

func TestToleranceWindowRequiresSameComposite(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	first := baseCandidate(42, posted)
	_, err := engine.Post(ctx, &first)
	require.NoError(t, err)

	otherFee := baseCandidate(42, posted)
	otherFee.FeeType = "Commission"
	inserted, err := engine.Post(ctx, &otherFee)
	require.NoError(t, err)
	assert.True(t, inserted)

	assert.Equal(t, int64(2), countEvents(t, db))
}

func TestRepostBatchIsIdempotent(t *testing.T) {
	engine, db := newTestEngine(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	batch := func() []ledgerdomain.FinancialEvent {
		revenue := baseCandidate(42, posted)
		revenue.EventType = ledgerdomain.EventTypeOrderRevenue
		revenue.FeeType = ""
		revenue.Amount = 5000
		revenue.FinancialEventID = "shp-1:SKU-RED-M"

		fee := baseCandidate(42, posted)

		serviceFee := baseCandidate(42, posted)
		serviceFee.EventType = ledgerdomain.EventTypeServiceFee
		serviceFee.AmazonOrderID = ""
		serviceFee.SKU = ""
		serviceFee.FeeType = "Subscription"
		serviceFee.Amount = -3900

		return []ledgerdomain.FinancialEvent{revenue, fee, serviceFee}
	}

	for run := 0; run < 2; run++ {
		for _, candidate := range batch() {
			c := candidate
			_, err := engine.Post(ctx, &c)
			require.NoError(t, err)
		}
	}

	assert.Equal(t, int64(3), countEvents(t, db))

	var total int64
	require.NoError(t, db.Model(&ledgerdomain.FinancialEvent{}).
		Select("COALESCE(SUM(amount), 0)").Scan(&total).Error)
	assert.Equal(t, int64(5000-600-3900), total)
}
