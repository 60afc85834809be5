package sync

import (
	"context"
	"testing"

	accountdomain "github.com/marginfox/marginfox/internal/account/domain"
	catalogdomain "github.com/marginfox/marginfox/internal/catalog/domain"
	ledgerdomain "github.com/marginfox/marginfox/internal/ledger/domain"
	"github.com/marginfox/marginfox/internal/spapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncInventoryUpsertsQuantities(t *testing.T) {
	r := newTestRig(t)
	r.seedAccount(t, false)

	r.client.listInventory = func(_ context.Context, marketplaceID, nextToken string) (*spapi.InventoryPage, error) {
		require.Equal(t, "A1PA6795UKMFR9", marketplaceID)
		if nextToken == "" {
			return &spapi.InventoryPage{
				Summaries: []spapi.InventorySummary{
					{SellerSKU: "SKU-RED-M", ASIN: "B00RED", ProductName: "Red Shirt M", TotalQuantity: 14},
					{SellerSKU: "", TotalQuantity: 3},
				},
				NextToken: "page-2",
			}, nil
		}
		return &spapi.InventoryPage{
			Summaries: []spapi.InventorySummary{
				{SellerSKU: "SKU-BLUE-L", ASIN: "B00BLUE", ProductName: "Blue Shirt L", TotalQuantity: 0},
			},
		}, nil
	}

	processed, err := r.orch.SyncInventory(context.Background(), testAccountID)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	var products []catalogdomain.Product
	require.NoError(t, r.db.Order("sku").Find(&products).Error)
	require.Len(t, products, 2)
	assert.Equal(t, "SKU-BLUE-L", products[0].SKU)
	assert.Equal(t, "B00BLUE", products[0].ASIN)
	assert.Equal(t, "SKU-RED-M", products[1].SKU)

	var stock []catalogdomain.Inventory
	require.NoError(t, r.db.Order("sku").Find(&stock).Error)
	require.Len(t, stock, 2)
	assert.Equal(t, 0, stock[0].Quantity)
	assert.Equal(t, 14, stock[1].Quantity)

	var job ledgerdomain.SyncJob
	require.NoError(t, r.db.Where("job_type = ?", ledgerdomain.SyncJobTypeInventory).First(&job).Error)
	assert.Equal(t, ledgerdomain.SyncJobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.RecordsProcessed)
}

func TestSyncInventoryRefreshesExistingRows(t *testing.T) {
	r := newTestRig(t)
	r.seedAccount(t, false)

	quantity := 5
	r.client.listInventory = func(_ context.Context, _, _ string) (*spapi.InventoryPage, error) {
		return &spapi.InventoryPage{
			Summaries: []spapi.InventorySummary{
				{SellerSKU: "SKU-RED-M", TotalQuantity: quantity},
			},
		}, nil
	}

	_, err := r.orch.SyncInventory(context.Background(), testAccountID)
	require.NoError(t, err)

	quantity = 2
	_, err = r.orch.SyncInventory(context.Background(), testAccountID)
	require.NoError(t, err)

	var stock []catalogdomain.Inventory
	require.NoError(t, r.db.Find(&stock).Error)
	require.Len(t, stock, 1)
	assert.Equal(t, 2, stock[0].Quantity)
}

func TestSyncInventoryUnknownAccount(t *testing.T) {
	r := newTestRig(t)

	_, err := r.orch.SyncInventory(context.Background(), testAccountID)
	assert.ErrorIs(t, err, accountdomain.ErrAccountNotFound)
}
