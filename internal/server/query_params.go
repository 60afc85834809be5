package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/marginfox/marginfox/internal/analytics/domain"
)

const defaultQueryDays = 30

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return 0, ErrInvalidRequest
	}
	return id, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidRequest
}

// analyticsQuery builds the query scope from the route id and the from/to,
// marketplace and sku query params. Missing bounds default to the last 30
// days.
func analyticsQuery(c *gin.Context) (analyticsdomain.Query, error) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return analyticsdomain.Query{}, err
	}

	q := analyticsdomain.Query{
		AccountID:     accountID,
		MarketplaceID: strings.TrimSpace(c.Query("marketplace")),
		SKU:           strings.TrimSpace(c.Query("sku")),
	}

	now := time.Now().UTC()
	q.To = now
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		if q.To, err = parseTime(raw); err != nil {
			return analyticsdomain.Query{}, err
		}
	}
	q.From = q.To.AddDate(0, 0, -defaultQueryDays)
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		if q.From, err = parseTime(raw); err != nil {
			return analyticsdomain.Query{}, err
		}
	}
	return q, nil
}
