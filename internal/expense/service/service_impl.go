package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	expensedomain "github.com/marginfox/marginfox/internal/expense/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
}

func NewService(p Params) expensedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("expense.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req expensedomain.CreateExpenseRequest) (*expensedomain.Expense, error) {
	switch req.Type {
	case expensedomain.ExpenseTypeAdvertising, expensedomain.ExpenseTypeIndirect:
	default:
		return nil, expensedomain.ErrInvalidExpenseType
	}
	if req.Amount <= 0 {
		return nil, expensedomain.ErrInvalidAmount
	}

	expense := &expensedomain.Expense{
		ID:          s.genID.Generate(),
		AccountID:   req.AccountID,
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		IncurredOn:  req.IncurredOn.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *Service) List(ctx context.Context, accountID snowflake.ID, from, to time.Time) ([]*expensedomain.Expense, error) {
	var expenses []*expensedomain.Expense
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND incurred_on >= ? AND incurred_on < ?", accountID, from, to).
		Order("incurred_on ASC").
		Find(&expenses).Error
	return expenses, err
}

func (s *Service) Delete(ctx context.Context, accountID, id snowflake.ID) error {
	result := s.db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, id).
		Delete(&expensedomain.Expense{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return expensedomain.ErrExpenseNotFound
	}
	return nil
}

func (s *Service) SumByType(ctx context.Context, accountID snowflake.ID, from, to time.Time) (map[expensedomain.ExpenseType]int64, error) {
	type row struct {
		Type  expensedomain.ExpenseType
		Total int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&expensedomain.Expense{}).
		Select("type, SUM(amount) AS total").
		Where("account_id = ? AND incurred_on >= ? AND incurred_on < ?", accountID, from, to).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[expensedomain.ExpenseType]int64, len(rows))
	for _, r := range rows {
		totals[r.Type] = r.Total
	}
	return totals, nil
}
