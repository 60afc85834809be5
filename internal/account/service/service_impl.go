package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	"github.com/marginfox/marginfox/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo repository.Repository[accountdomain.Account]
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("account.service"),
		repo: repository.ProvideStore[accountdomain.Account](p.DB),
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	account, err := s.repo.FindOne(ctx, &accountdomain.Account{ID: id})
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, accountdomain.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) List(ctx context.Context) ([]*accountdomain.Account, error) {
	return s.repo.Find(ctx, &accountdomain.Account{})
}

func (s *Service) MarkSynced(ctx context.Context, id snowflake.ID, jobType string, at time.Time) error {
	column := "last_order_sync_at"
	if jobType == "ledger_sync" {
		column = "last_ledger_sync_at"
	}
	return s.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Update(column, at).Error
}
