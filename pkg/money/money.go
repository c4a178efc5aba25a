// Package money 金额计算辅助，统一使用 decimal 避免浮点误差
package money

import "github.com/shopspring/decimal"

// Zero 零值
var Zero = decimal.Zero

// Round 按货币规则保留两位小数（四舍五入，half-up）
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal 单价 × 数量
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Min 取较小值
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ToCents 转换为分（最小货币单位），用于支付渠道接口
func ToCents(d decimal.Decimal) int64 {
	return Round(d).Shift(2).IntPart()
}

// Format 格式化为两位小数字符串
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(2)
}
