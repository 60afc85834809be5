package normalize

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/spapi"
	"go.uber.org/zap"
)

const (
	breakdownSales             = "Sales"
	breakdownExpenses          = "Expenses"
	breakdownAmazonFees        = "AmazonFees"
	breakdownDigitalServiceFee = "DigitalServicesFee"

	relatedIdentifierOrderID = "ORDER_ID"
	contextTypeProduct       = "ProductContext"
)

// Transaction maps one breakdown tree into ledger candidates. Deferred
// amounts are provisional and reappear as released later, so only RELEASED
// transactions produce candidates.
func (n *Normalizer) Transaction(accountID snowflake.ID, tx spapi.Transaction) []ledgerdomain.FinancialEvent {
	if tx.TransactionStatus != spapi.TransactionStatusReleased {
		return nil
	}
	posted, ok := n.postedDate(tx.PostedDate, "transaction")
	if !ok {
		return nil
	}

	orderID := relatedOrderID(tx.RelatedIdentifiers)
	sku := productSKU(tx.Items)
	currency := tx.TotalAmount.CurrencyCode
	refund := tx.TransactionType == "Refund"

	var out []ledgerdomain.FinancialEvent
	for _, node := range tx.Breakdowns {
		switch node.BreakdownType {
		case breakdownSales:
			eventType := ledgerdomain.EventTypeOrderRevenue
			if refund {
				eventType = ledgerdomain.EventTypeRefund
			}
			out = append(out, ledgerdomain.FinancialEvent{
				AccountID:        accountID,
				EventType:        eventType,
				PostedDate:       posted,
				AmazonOrderID:    orderID,
				SKU:              sku,
				FinancialEventID: tx.TransactionID,
				Amount:           node.BreakdownAmount.Cents(),
				Currency:         currency,
				MarketplaceID:    tx.Marketplace.MarketplaceID,
			})
		case breakdownExpenses:
			out = append(out, n.expenseFees(accountID, tx, node, posted, orderID, sku, currency)...)
		}
	}

	if len(out) == 0 {
		n.log.Debug("transaction produced no candidates",
			zap.String("transaction_id", tx.TransactionID),
			zap.String("transaction_type", tx.TransactionType),
		)
	}
	return out
}

// expenseFees emits one fee candidate per leaf under the AmazonFees subtree
// plus any DigitalServicesFee leaf. Other expense nodes (promotions, cost of
// points) are not marketplace fees and stay out of the fee breakdown.
func (n *Normalizer) expenseFees(accountID snowflake.ID, tx spapi.Transaction, expenses spapi.Breakdown, posted time.Time, orderID, sku, currency string) []ledgerdomain.FinancialEvent {
	var out []ledgerdomain.FinancialEvent

	emit := func(leaf spapi.Breakdown) {
		res := n.tax.Resolve(leaf.BreakdownType)
		out = append(out, ledgerdomain.FinancialEvent{
			AccountID:        accountID,
			EventType:        ledgerdomain.EventTypeFee,
			PostedDate:       posted,
			AmazonOrderID:    orderID,
			SKU:              sku,
			FinancialEventID: fmt.Sprintf("%s:%s", tx.TransactionID, leaf.BreakdownType),
			Amount:           leaf.BreakdownAmount.Cents(),
			Currency:         currency,
			FeeType:          leaf.BreakdownType,
			FeeCategory:      res.Category,
			MarketplaceID:    tx.Marketplace.MarketplaceID,
		})
	}

	for _, child := range expenses.Breakdowns {
		switch child.BreakdownType {
		case breakdownAmazonFees:
			for _, leaf := range collectLeaves(child) {
				emit(leaf)
			}
		case breakdownDigitalServiceFee:
			emit(child)
		}
	}
	return out
}

// collectLeaves walks a breakdown subtree and returns its leaf nodes.
func collectLeaves(node spapi.Breakdown) []spapi.Breakdown {
	if len(node.Breakdowns) == 0 {
		return []spapi.Breakdown{node}
	}
	var leaves []spapi.Breakdown
	for _, child := range node.Breakdowns {
		leaves = append(leaves, collectLeaves(child)...)
	}
	return leaves
}

func relatedOrderID(identifiers []spapi.RelatedIdentifier) string {
	for _, id := range identifiers {
		if id.Name == relatedIdentifierOrderID {
			return id.Value
		}
	}
	return ""
}

func productSKU(items []spapi.TransactionItem) string {
	for _, item := range items {
		for _, ctx := range item.Contexts {
			if ctx.ContextType == contextTypeProduct && ctx.SKU != "" {
				return ctx.SKU
			}
		}
	}
	return ""
}
