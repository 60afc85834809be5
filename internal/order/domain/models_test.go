package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetPrice(t *testing.T) {
	item := OrderItem{
		ItemPrice: 12100,
		ItemTax:   2100,
	}

	assert.Equal(t, int64(10000), item.NetPrice(false), "consumer order subtracts collected tax")
	assert.Equal(t, int64(12100), item.NetPrice(true), "business order is already VAT-exclusive")
}

func TestIsPending(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusUnshipped} {
		order := Order{Status: status}
		assert.True(t, order.IsPending(), string(status))
	}
	for _, status := range []OrderStatus{OrderStatusShipped, OrderStatusPartiallyShipped, OrderStatusCanceled} {
		order := Order{Status: status}
		assert.False(t, order.IsPending(), string(status))
	}
}
