package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
)

func (s *Server) ListProducts(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	products, err := s.catalogSvc.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

type updateCostRequest struct {
	CostAmount  int64  `json:"cost_amount"`
	PriceAmount *int64 `json:"price_amount"`
}

func (s *Server) UpdateProductCost(c *gin.Context) {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req updateCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	product, err := s.catalogSvc.UpdateCost(c.Request.Context(), catalogdomain.UpdateCostRequest{
		ProductID:   productID,
		CostAmount:  req.CostAmount,
		PriceAmount: req.PriceAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}
