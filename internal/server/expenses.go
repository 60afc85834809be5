package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	expensedomain "github.com/marginfox/marginfox/internal/expense/domain"
)

type createExpenseRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	IncurredOn  string `json:"incurred_on"`
}

func (s *Server) CreateExpense(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	incurredOn, err := parseTime(req.IncurredOn)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	expense, err := s.expenseSvc.Create(c.Request.Context(), expensedomain.CreateExpenseRequest{
		AccountID:   accountID,
		Type:        expensedomain.ExpenseType(req.Type),
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		IncurredOn:  incurredOn,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": expense})
}

func (s *Server) ListExpenses(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -defaultQueryDays)
	if raw := c.Query("from"); raw != "" {
		if from, err = parseTime(raw); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = parseTime(raw); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	expenses, err := s.expenseSvc.List(c.Request.Context(), accountID, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": expenses})
}

func (s *Server) DeleteExpense(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	expenseID, err := parseIDParam(c, "expenseId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.expenseSvc.Delete(c.Request.Context(), accountID, expenseID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
