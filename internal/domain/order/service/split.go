package service

import (
	"marketplace/internal/domain/order/model"
	"marketplace/pkg/money"

	"github.com/shopspring/decimal"
)

// SplitCommission 按卖家分组计算平台佣金
// 佣金四舍五入到分，卖家实得 = 小计 - 佣金，保证 Amount + Commission 恰好等于小计
// 结算单顺序与卖家在明细中首次出现的顺序一致
func SplitCommission(items []model.OrderItem, rate decimal.Decimal) (decimal.Decimal, []model.SellerPayout) {
	total := money.Zero
	subtotals := make(map[string]decimal.Decimal)
	var sellers []string

	for _, item := range items {
		line := money.LineTotal(item.Price, item.Quantity)
		total = total.Add(line)

		if _, ok := subtotals[item.SellerID]; !ok {
			sellers = append(sellers, item.SellerID)
			subtotals[item.SellerID] = money.Zero
		}
		subtotals[item.SellerID] = subtotals[item.SellerID].Add(line)
	}

	payouts := make([]model.SellerPayout, 0, len(sellers))
	for _, sellerID := range sellers {
		sellerTotal := subtotals[sellerID]
		commission := money.Round(sellerTotal.Mul(rate))
		payouts = append(payouts, model.SellerPayout{
			SellerID:   sellerID,
			Amount:     sellerTotal.Sub(commission),
			Commission: commission,
			Status:     model.PayoutStatusPending,
		})
	}
	return total, payouts
}

// PlatformFee 订单平台收入 = 各卖家佣金之和
func PlatformFee(payouts []model.SellerPayout) decimal.Decimal {
	fee := money.Zero
	for _, p := range payouts {
		fee = fee.Add(p.Commission)
	}
	return fee
}
