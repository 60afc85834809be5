package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	analyticsdomain "github.com/marginfox/marginfox/internal/analytics/domain"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
	expensedomain "github.com/marginfox/marginfox/internal/expense/domain"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	syncpkg "github.com/marginfox/marginfox/internal/sync"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
)

// ErrorHandlingMiddleware renders the last handler error as the JSON error
// envelope unless a response was already written.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, syncpkg.ErrSyncAlreadyRunning):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "a sync for this account is already running",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ledgerdomain.ErrInvalidDaysBack),
		errors.Is(err, analyticsdomain.ErrInvalidRange),
		errors.Is(err, expensedomain.ErrInvalidExpenseType),
		errors.Is(err, expensedomain.ErrInvalidAmount),
		errors.Is(err, catalogdomain.ErrInvalidCost):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrAccountNotFound),
		errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, expensedomain.ErrExpenseNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
