package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetProfit(c *gin.Context) {
	q, err := analyticsQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.analyticsSvc.GetProfit(c.Request.Context(), q)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GetDailyStats(c *gin.Context) {
	q, err := analyticsQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	stats, err := s.analyticsSvc.GetDailyStats(c.Request.Context(), q)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) GetCostBreakdown(c *gin.Context) {
	q, err := analyticsQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	breakdown, err := s.analyticsSvc.GetCostBreakdown(c.Request.Context(), q)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": breakdown})
}

func (s *Server) GetMarketplaceStats(c *gin.Context) {
	q, err := analyticsQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	stats, err := s.analyticsSvc.GetMarketplaceStats(c.Request.Context(), q)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}
