package sync

import (
	"context"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/spapi"
	"go.uber.org/zap"
)

// SyncLedger retrieves settlement data and posts it through the normalizer
// and dedup engine. Exactly one settlement source is read per account: the
// transactions API unless the account is pinned to the legacy source. The
// returned count is newly inserted ledger rows; re-runs over an ingested
// window return zero.
func (o *Orchestrator) SyncLedger(ctx context.Context, accountID snowflake.ID, daysBack int) (int, error) {
	return o.run(ctx, accountID, daysBack, ledgerdomain.SyncJobTypeLedger, func(ctx context.Context, account *accountdomain.Account) (int, error) {
		client := o.clients.ForAccount(account)
		windows := chunkWindows(o.clk.Now(), daysBack, o.cfg.ChunkDays, o.cfg.SafetyMargin)

		total := 0
		for _, win := range windows {
			if err := ctx.Err(); err != nil {
				return total, err
			}

			var (
				n   int
				err error
			)
			if account.UseLegacyFinances {
				n, err = o.syncLegacyWindow(ctx, account, client, win)
			} else {
				n, err = o.syncTransactionsWindow(ctx, account, client, win)
			}
			total += n
			if err != nil {
				if ctx.Err() != nil {
					return total, err
				}
				o.metrics.ChunkFailed(ledgerdomain.SyncJobTypeLedger)
				o.log.Warn("ledger chunk failed",
					zap.Time("window_start", win.start),
					zap.Time("window_end", win.end),
					zap.Error(err),
				)
			}
		}
		return total, nil
	})
}

func (o *Orchestrator) syncTransactionsWindow(ctx context.Context, account *accountdomain.Account, client spapi.Client, win window) (int, error) {
	posted := 0
	nextToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return posted, err
		}

		page, err := client.ListTransactions(ctx, win.start, win.end, nextToken)
		if err != nil {
			return posted, err
		}
		o.metrics.PageFetched("transactions")

		for _, tx := range page.Transactions {
			if tx.TransactionStatus != spapi.TransactionStatusReleased {
				// Deferred amounts are provisional; they reappear as
				// RELEASED once settled.
				continue
			}
			n, err := o.postCandidates(ctx, o.norm.Transaction(account.ID, tx))
			posted += n
			if err != nil {
				return posted, err
			}
		}

		nextToken = page.NextToken
		if nextToken == "" {
			return posted, nil
		}
	}
}

func (o *Orchestrator) syncLegacyWindow(ctx context.Context, account *accountdomain.Account, client spapi.Client, win window) (int, error) {
	posted := 0
	nextToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return posted, err
		}

		page, err := client.ListFinancialEvents(ctx, win.start, win.end, nextToken)
		if err != nil {
			return posted, err
		}
		o.metrics.PageFetched("financial_events")

		for _, shipment := range page.Shipments {
			n, err := o.postCandidates(ctx, o.norm.LegacyShipment(account.ID, shipment))
			posted += n
			if err != nil {
				return posted, err
			}
		}
		for _, refund := range page.Refunds {
			n, err := o.postCandidates(ctx, o.norm.LegacyRefund(account.ID, refund))
			posted += n
			if err != nil {
				return posted, err
			}
		}
		for _, fee := range page.ServiceFees {
			n, err := o.postCandidates(ctx, o.norm.LegacyServiceFee(account.ID, fee))
			posted += n
			if err != nil {
				return posted, err
			}
		}

		nextToken = page.NextToken
		if nextToken == "" {
			return posted, nil
		}
	}
}

// postCandidates runs each candidate through the dedup engine. The count is
// rows actually inserted.
func (o *Orchestrator) postCandidates(ctx context.Context, candidates []ledgerdomain.FinancialEvent) (int, error) {
	posted := 0
	for i := range candidates {
		inserted, err := o.dedup.Post(ctx, &candidates[i])
		if err != nil {
			return posted, err
		}
		if inserted {
			posted++
			o.metrics.EventPosted(string(candidates[i].EventType))
		} else {
			o.metrics.EventDeduplicated(string(candidates[i].EventType))
		}
	}
	return posted, nil
}
