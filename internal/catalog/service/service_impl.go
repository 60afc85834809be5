package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
	"github.com/marginfox/marginfox/pkg/db"
	"github.com/marginfox/marginfox/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[catalogdomain.Product]
}

func NewService(p Params) catalogdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[catalogdomain.Product](p.DB),
	}
}

func (s *Service) EnsureProduct(ctx context.Context, accountID snowflake.ID, sku, asin, title, currency string) (*catalogdomain.Product, error) {
	existing, err := s.repo.FindOne(ctx, &catalogdomain.Product{AccountID: accountID, SKU: sku})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	product := &catalogdomain.Product{
		ID:        s.genID.Generate(),
		AccountID: accountID,
		SKU:       sku,
		ASIN:      asin,
		Title:     title,
		Currency:  currency,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		// Concurrent sync workers may race on first sight of a SKU; the
		// unique index decides, first one wins.
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindOne(ctx, &catalogdomain.Product{AccountID: accountID, SKU: sku})
		}
		return nil, err
	}
	return product, nil
}

func (s *Service) UpdateCost(ctx context.Context, req catalogdomain.UpdateCostRequest) (*catalogdomain.Product, error) {
	if req.CostAmount < 0 {
		return nil, catalogdomain.ErrInvalidCost
	}
	product, err := s.repo.FindOne(ctx, &catalogdomain.Product{ID: req.ProductID})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, catalogdomain.ErrProductNotFound
	}

	updates := map[string]any{"cost_amount": req.CostAmount}
	if req.PriceAmount != nil {
		if *req.PriceAmount < 0 {
			return nil, catalogdomain.ErrInvalidCost
		}
		updates["price_amount"] = *req.PriceAmount
	}
	if err := s.repo.Update(ctx, req.ProductID, updates); err != nil {
		return nil, err
	}
	return s.repo.FindOne(ctx, &catalogdomain.Product{ID: req.ProductID})
}

func (s *Service) ListByAccount(ctx context.Context, accountID snowflake.ID) ([]*catalogdomain.Product, error) {
	return s.repo.Find(ctx, &catalogdomain.Product{AccountID: accountID})
}

func (s *Service) UpsertInventory(ctx context.Context, accountID snowflake.ID, sku, marketplaceID string, quantity int) error {
	record := &catalogdomain.Inventory{
		ID:            s.genID.Generate(),
		AccountID:     accountID,
		SKU:           sku,
		MarketplaceID: marketplaceID,
		Quantity:      quantity,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "marketplace_id", "updated_at"}),
		}).
		Create(record).Error
}
