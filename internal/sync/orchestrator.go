package sync

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
	"github.com/marginfox/marginfox/internal/clock"
	"github.com/marginfox/marginfox/internal/config"
	"github.com/marginfox/marginfox/internal/ledger/dedup"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/normalize"
	"github.com/marginfox/marginfox/internal/observability/metrics"
	orderdomain "github.com/marginfox/marginfox/internal/order/domain"
	"github.com/marginfox/marginfox/internal/ratelimit"
	"github.com/marginfox/marginfox/internal/spapi"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxJobErrorLen bounds the error message persisted on a failed sync job.
const maxJobErrorLen = 500

var (
	ErrSyncAlreadyRunning = errors.New("sync_already_running")
)

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Sleeper    clock.Sleeper
	GenID      *snowflake.Node
	Accounts   accountdomain.Service
	Orders     orderdomain.Service
	Catalog    catalogdomain.Service
	Clients    spapi.Factory
	Normalizer *normalize.Normalizer
	Dedup      *dedup.Engine
	Limiter    *ratelimit.APILimiter
	Metrics    *metrics.SyncMetrics `optional:"true"`
}

// Orchestrator drives order and ledger retrieval for one account at a time.
// Runs are idempotent end to end: orders upsert, ledger candidates pass the
// dedup engine, so overlapping windows and re-runs are safe.
type Orchestrator struct {
	cfg      config.SyncConfig
	db       *gorm.DB
	log      *zap.Logger
	clk      clock.Clock
	sleeper  clock.Sleeper
	genID    *snowflake.Node
	accounts accountdomain.Service
	orders   orderdomain.Service
	catalog  catalogdomain.Service
	clients  spapi.Factory
	norm     *normalize.Normalizer
	dedup    *dedup.Engine
	limiter  *ratelimit.APILimiter
	metrics  *metrics.SyncMetrics
}

func NewOrchestrator(p Params) *Orchestrator {
	return &Orchestrator{
		cfg:      p.Config.Sync,
		db:       p.DB,
		log:      p.Log.Named("sync"),
		clk:      p.Clock,
		sleeper:  p.Sleeper,
		genID:    p.GenID,
		accounts: p.Accounts,
		orders:   p.Orders,
		catalog:  p.Catalog,
		clients:  p.Clients,
		norm:     p.Normalizer,
		dedup:    p.Dedup,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}
}

func (o *Orchestrator) validateDaysBack(daysBack int) error {
	if daysBack < 1 || daysBack > o.cfg.MaxDaysBack {
		return ledgerdomain.ErrInvalidDaysBack
	}
	return nil
}

// run wraps one sync job: account lookup, overlap lock, audit row lifecycle,
// duration metric. The body returns the processed count; any error it
// returns marks the job failed.
func (o *Orchestrator) run(
	ctx context.Context,
	accountID snowflake.ID,
	daysBack int,
	jobType string,
	body func(ctx context.Context, account *accountdomain.Account) (int, error),
) (int, error) {
	if err := o.validateDaysBack(daysBack); err != nil {
		return 0, err
	}
	account, err := o.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}

	lockToken, ok, err := o.limiter.TryLockSync(ctx, account.SellingPartnerID, jobType)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrSyncAlreadyRunning
	}
	defer func() {
		if err := o.limiter.ReleaseSync(context.WithoutCancel(ctx), account.SellingPartnerID, jobType, lockToken); err != nil {
			o.log.Warn("sync lock release failed", zap.Error(err))
		}
	}()

	job, err := o.startJob(ctx, accountID, jobType)
	if err != nil {
		return 0, err
	}

	started := o.clk.Now()
	processed, runErr := body(ctx, account)
	o.metrics.ObserveSyncDuration(jobType, o.clk.Now().Sub(started))

	o.finishJob(ctx, job, processed, runErr)
	if runErr != nil {
		return processed, runErr
	}

	if err := o.accounts.MarkSynced(ctx, accountID, jobType, o.clk.Now()); err != nil {
		o.log.Warn("mark synced failed", zap.Error(err))
	}
	return processed, nil
}

func (o *Orchestrator) startJob(ctx context.Context, accountID snowflake.ID, jobType string) (*ledgerdomain.SyncJob, error) {
	job := &ledgerdomain.SyncJob{
		ID:        o.genID.Generate(),
		AccountID: accountID,
		RunID:     uuid.NewString(),
		JobType:   jobType,
		Status:    ledgerdomain.SyncJobStatusRunning,
		StartedAt: o.clk.Now(),
	}
	if err := o.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	o.log.Info("sync started",
		zap.String("run_id", job.RunID),
		zap.String("job_type", jobType),
		zap.Int64("account_id", int64(accountID)),
	)
	return job, nil
}

func (o *Orchestrator) finishJob(ctx context.Context, job *ledgerdomain.SyncJob, processed int, runErr error) {
	finished := o.clk.Now()
	status := ledgerdomain.SyncJobStatusCompleted
	message := ""
	if runErr != nil {
		status = ledgerdomain.SyncJobStatusFailed
		message = truncateError(runErr)
	}

	// Finalize the audit row even when the run was cancelled.
	err := o.db.WithContext(context.WithoutCancel(ctx)).
		Model(&ledgerdomain.SyncJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":            status,
			"records_processed": processed,
			"error":             message,
			"finished_at":       finished,
		}).Error
	if err != nil {
		o.log.Error("sync job finalize failed", zap.String("run_id", job.RunID), zap.Error(err))
	}

	o.log.Info("sync finished",
		zap.String("run_id", job.RunID),
		zap.String("job_type", job.JobType),
		zap.String("status", string(status)),
		zap.Int("records_processed", processed),
		zap.Duration("elapsed", finished.Sub(job.StartedAt)),
	)
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxJobErrorLen {
		return msg[:maxJobErrorLen]
	}
	return msg
}

// ListJobs returns the most recent sync jobs for an account.
func (o *Orchestrator) ListJobs(ctx context.Context, accountID snowflake.ID, limit int) ([]ledgerdomain.SyncJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var jobs []ledgerdomain.SyncJob
	err := o.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("started_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}
