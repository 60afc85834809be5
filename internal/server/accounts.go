package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
)

type accountView struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Region               string   `json:"region"`
	DefaultMarketplaceID string   `json:"default_marketplace_id"`
	MarketplaceIDs       []string `json:"marketplace_ids"`
	UseLegacyFinances    bool     `json:"use_legacy_finances"`
	LastOrderSyncAt      any      `json:"last_order_sync_at"`
	LastLedgerSyncAt     any      `json:"last_ledger_sync_at"`
}

// accountToView strips the refresh token and internal upstream identifiers
// from API responses.
func accountToView(a *accountdomain.Account) accountView {
	return accountView{
		ID:                   a.ID.String(),
		Name:                 a.Name,
		Region:               a.Region,
		DefaultMarketplaceID: a.DefaultMarketplaceID,
		MarketplaceIDs:       a.MarketplaceIDs,
		UseLegacyFinances:    a.UseLegacyFinances,
		LastOrderSyncAt:      a.LastOrderSyncAt,
		LastLedgerSyncAt:     a.LastLedgerSyncAt,
	}
}

func (s *Server) ListAccounts(c *gin.Context) {
	accounts, err := s.accountSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountToView(a))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) GetAccount(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	account, err := s.accountSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": accountToView(account)})
}
