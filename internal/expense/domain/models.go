package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ExpenseType string

const (
	ExpenseTypeAdvertising ExpenseType = "advertising"
	ExpenseTypeIndirect    ExpenseType = "indirect"
)

// Expense is a user-supplied cost input feeding the profit calculation.
// Advertising spend and indirect expenses are not derivable from the
// marketplace and are maintained locally.
type Expense struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID snowflake.ID `gorm:"not null;index"`

	Type        ExpenseType `gorm:"type:text;not null"`
	Description string      `gorm:"type:text"`
	Amount      int64       `gorm:"not null"`
	Currency    string      `gorm:"type:text;not null;default:''"`
	IncurredOn  time.Time   `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Expense) TableName() string { return "expenses" }

type CreateExpenseRequest struct {
	AccountID   snowflake.ID
	Type        ExpenseType
	Description string
	Amount      int64
	Currency    string
	IncurredOn  time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateExpenseRequest) (*Expense, error)
	List(ctx context.Context, accountID snowflake.ID, from, to time.Time) ([]*Expense, error)
	Delete(ctx context.Context, accountID, id snowflake.ID) error
	// SumByType totals expenses per type over [from, to).
	SumByType(ctx context.Context, accountID snowflake.ID, from, to time.Time) (map[ExpenseType]int64, error)
}

var (
	ErrInvalidExpenseType = errors.New("invalid_expense_type")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrExpenseNotFound    = errors.New("expense_not_found")
)
