package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultSyncDaysBack = 30

type syncRequest struct {
	DaysBack int `json:"days_back"`
}

func daysBackFromRequest(c *gin.Context) (int, error) {
	daysBack := defaultSyncDaysBack
	if raw := strings.TrimSpace(c.Query("days_back")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, ErrInvalidRequest
		}
		return parsed, nil
	}
	if c.Request.ContentLength > 0 {
		var req syncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return 0, ErrInvalidRequest
		}
		if req.DaysBack != 0 {
			daysBack = req.DaysBack
		}
	}
	return daysBack, nil
}

func (s *Server) RunOrderSync(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	daysBack, err := daysBackFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	processed, err := s.orchestrator.SyncOrders(c.Request.Context(), accountID, daysBack)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"orders_processed": processed}})
}

func (s *Server) RunLedgerSync(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	daysBack, err := daysBackFromRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	processed, err := s.orchestrator.SyncLedger(c.Request.Context(), accountID, daysBack)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"events_processed": processed}})
}

func (s *Server) RunInventorySync(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	processed, err := s.orchestrator.SyncInventory(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"skus_processed": processed}})
}

func (s *Server) ListSyncJobs(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	jobs, err := s.orchestrator.ListJobs(c.Request.Context(), accountID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": jobs})
}
