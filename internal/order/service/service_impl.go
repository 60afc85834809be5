package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/marginfox/marginfox/internal/order/domain"
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
	repo  repository.Repository[orderdomain.Order]
}

func NewService(p Params) orderdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[orderdomain.Order](p.DB),
	}
}

// Upsert creates the order on first sight and updates the mutable fields on
// every re-observation. The first-seen row and its CreatedAt survive.
func (s *Service) Upsert(ctx context.Context, order *orderdomain.Order) (*orderdomain.Order, error) {
	existing, err := s.repo.FindOne(ctx, &orderdomain.Order{
		AccountID:     order.AccountID,
		AmazonOrderID: order.AmazonOrderID,
	})
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if order.ID == 0 {
			order.ID = s.genID.Generate()
		}
		if err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "account_id"}, {Name: "amazon_order_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"status", "marketplace_id", "is_business_order",
					"last_update", "total_amount", "currency", "raw_payload", "updated_at",
				}),
			}).
			Omit("Items").
			Create(order).Error; err != nil {
			return nil, err
		}
		return s.repo.FindOne(ctx, &orderdomain.Order{
			AccountID:     order.AccountID,
			AmazonOrderID: order.AmazonOrderID,
		})
	}

	updates := map[string]any{
		"status":            order.Status,
		"marketplace_id":    order.MarketplaceID,
		"is_business_order": order.IsBusinessOrder,
		"last_update":       order.LastUpdate,
		"total_amount":      order.TotalAmount,
		"currency":          order.Currency,
	}
	if len(order.RawPayload) > 0 {
		updates["raw_payload"] = order.RawPayload
	}
	if err := s.repo.Update(ctx, existing.ID, updates); err != nil {
		return nil, err
	}
	existing.Status = order.Status
	existing.MarketplaceID = order.MarketplaceID
	existing.IsBusinessOrder = order.IsBusinessOrder
	existing.LastUpdate = order.LastUpdate
	existing.TotalAmount = order.TotalAmount
	existing.Currency = order.Currency
	return existing, nil
}

// UpsertItems writes order lines keyed by (order_id, order_item_id).
// Amounts refresh in place; duplicate observations collapse on the unique
// index.
func (s *Service) UpsertItems(ctx context.Context, orderID snowflake.ID, items []orderdomain.OrderItem) error {
	for i := range items {
		items[i].OrderID = orderID
		if items[i].ID == 0 {
			items[i].ID = s.genID.Generate()
		}
	}
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_id"}, {Name: "order_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sku", "asin", "title", "quantity",
				"item_price", "item_tax", "shipping_price", "shipping_tax",
				"promotion_discount", "currency", "updated_at",
			}),
		}).
		Create(&items).Error
}

func (s *Service) GetByAmazonID(ctx context.Context, accountID snowflake.ID, amazonOrderID string) (*orderdomain.Order, error) {
	order, err := s.repo.FindOne(ctx, &orderdomain.Order{
		AccountID:     accountID,
		AmazonOrderID: amazonOrderID,
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderdomain.ErrOrderNotFound
	}
	return order, nil
}
