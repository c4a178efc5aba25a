package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAmountDue(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		shipping string
		discount string
		want     string
	}{
		{"no discount", "250", "15", "0", "265"},
		{"fixed discount", "200", "10", "20", "190"},
		{"free shipping larger than subtotal", "5", "10", "10", "5"},
		{"discount above everything", "5", "0", "20", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Total: dec(tt.total), ShippingCost: dec(tt.shipping), DiscountAmount: dec(tt.discount)}
			assert.True(t, dec(tt.want).Equal(o.AmountDue()), "got %s", o.AmountDue())
		})
	}
}

func TestItemCount(t *testing.T) {
	o := &Order{Items: []OrderItem{{Quantity: 2}, {Quantity: 3}}}
	assert.Equal(t, 5, o.ItemCount())
}
