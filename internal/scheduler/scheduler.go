package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	"github.com/marginfox/marginfox/internal/clock"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	syncpkg "github.com/marginfox/marginfox/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

// Syncer is the orchestrator surface the scheduler drives.
type Syncer interface {
	SyncOrders(ctx context.Context, accountID snowflake.ID, daysBack int) (int, error)
	SyncLedger(ctx context.Context, accountID snowflake.ID, daysBack int) (int, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Accounts accountdomain.Service
	Syncer   Syncer
	Config   Config `optional:"true"`
}

// Scheduler periodically walks all accounts and triggers order and ledger
// syncs for the ones whose last sync is older than the configured interval.
// Overlap with a manually triggered sync is resolved by the orchestrator's
// per-account lease, not here.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	accounts accountdomain.Service
	syncer   Syncer
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Accounts == nil || p.Syncer == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		accounts: p.Accounts,
		syncer:   p.Syncer,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)

	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Duration("elapsed", elapsed),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	s.log.Debug("job finished", zap.String("job", name), zap.Duration("elapsed", elapsed))
	return nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{ledgerdomain.SyncJobTypeOrders, s.OrderSyncJob},
		{ledgerdomain.SyncJobTypeLedger, s.LedgerSyncJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty allowlist enables everything.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) OrderSyncJob(ctx context.Context) error {
	return s.syncDueAccounts(ctx, ledgerdomain.SyncJobTypeOrders, s.syncer.SyncOrders)
}

func (s *Scheduler) LedgerSyncJob(ctx context.Context) error {
	return s.syncDueAccounts(ctx, ledgerdomain.SyncJobTypeLedger, s.syncer.SyncLedger)
}

func (s *Scheduler) syncDueAccounts(
	ctx context.Context,
	jobType string,
	run func(ctx context.Context, accountID snowflake.ID, daysBack int) (int, error),
) error {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	var jobErr error
	for _, account := range accounts {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}
		if !s.isDue(account, jobType, now) {
			continue
		}

		processed, err := run(ctx, account.ID, s.cfg.DaysBack)
		switch {
		case errors.Is(err, syncpkg.ErrSyncAlreadyRunning):
			s.log.Debug("sync already in flight",
				zap.Int64("account_id", int64(account.ID)),
				zap.String("job", jobType),
			)
		case err != nil:
			jobErr = errors.Join(jobErr, err)
			s.log.Warn("scheduled sync failed",
				zap.Int64("account_id", int64(account.ID)),
				zap.String("job", jobType),
				zap.Error(err),
			)
		default:
			s.log.Info("scheduled sync finished",
				zap.Int64("account_id", int64(account.ID)),
				zap.String("job", jobType),
				zap.Int("processed", processed),
			)
		}
	}
	return jobErr
}

func (s *Scheduler) isDue(account *accountdomain.Account, jobType string, now time.Time) bool {
	var last *time.Time
	switch jobType {
	case ledgerdomain.SyncJobTypeOrders:
		last = account.LastOrderSyncAt
	case ledgerdomain.SyncJobTypeLedger:
		last = account.LastLedgerSyncAt
	}
	if last == nil {
		return true
	}
	return now.Sub(*last) >= s.cfg.SyncInterval
}
