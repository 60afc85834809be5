package sync

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/spapi"
	"go.uber.org/zap"
)

// SyncInventory mirrors the upstream fulfillable quantity per SKU into the
// local catalog. Unlike the windowed syncs it always reads the current
// snapshot, so there is no daysBack parameter.
func (o *Orchestrator) SyncInventory(ctx context.Context, accountID snowflake.ID) (int, error) {
	account, err := o.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}

	lockToken, ok, err := o.limiter.TryLockSync(ctx, account.SellingPartnerID, ledgerdomain.SyncJobTypeInventory)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrSyncAlreadyRunning
	}
	defer func() {
		if err := o.limiter.ReleaseSync(context.WithoutCancel(ctx), account.SellingPartnerID, ledgerdomain.SyncJobTypeInventory, lockToken); err != nil {
			o.log.Warn("sync lock release failed", zap.Error(err))
		}
	}()

	job, err := o.startJob(ctx, accountID, ledgerdomain.SyncJobTypeInventory)
	if err != nil {
		return 0, err
	}

	client := o.clients.ForAccount(account)
	processed := 0
	var runErr error
	for _, marketplaceID := range account.Marketplaces() {
		n, err := o.syncMarketplaceInventory(ctx, accountID, client, marketplaceID)
		processed += n
		if err != nil {
			runErr = fmt.Errorf("marketplace %s: %w", marketplaceID, err)
			break
		}
	}

	o.finishJob(ctx, job, processed, runErr)
	return processed, runErr
}

func (o *Orchestrator) syncMarketplaceInventory(ctx context.Context, accountID snowflake.ID, client spapi.Client, marketplaceID string) (int, error) {
	processed := 0
	nextToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		page, err := client.ListInventorySummaries(ctx, marketplaceID, nextToken)
		if err != nil {
			return processed, err
		}
		o.metrics.PageFetched("inventory")

		for _, summary := range page.Summaries {
			if summary.SellerSKU == "" {
				continue
			}
			if _, err := o.catalog.EnsureProduct(ctx, accountID, summary.SellerSKU, summary.ASIN, summary.ProductName, ""); err != nil {
				return processed, err
			}
			if err := o.catalog.UpsertInventory(ctx, accountID, summary.SellerSKU, marketplaceID, summary.TotalQuantity); err != nil {
				return processed, err
			}
			processed++
		}

		nextToken = page.NextToken
		if nextToken == "" {
			return processed, nil
		}
	}
}
