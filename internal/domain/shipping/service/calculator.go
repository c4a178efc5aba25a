package service

import (
	"fmt"
	"marketplace/internal/pkg/config"
	"marketplace/pkg/money"
	"strings"

	"github.com/shopspring/decimal"
)

// Calculator 运费计算，订单运费与包邮券优惠共用同一来源
type Calculator struct {
	defaultCost decimal.Decimal
	perItemCost decimal.Decimal
	freeAbove   *decimal.Decimal
	regions     map[string]decimal.Decimal
}

// Quote 运费报价
type Quote struct {
	Region   string          `json:"region"`
	Items    int             `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Cost     decimal.Decimal `json:"cost"`
	Free     bool            `json:"free"`
}

// NewCalculator 解析配置中的金额，配置非法时返回错误
func NewCalculator(cfg config.ShippingConfig) (*Calculator, error) {
	c := &Calculator{regions: make(map[string]decimal.Decimal, len(cfg.Regions))}

	var err error
	if c.defaultCost, err = parseAmount("shipping.default_cost", cfg.DefaultCost); err != nil {
		return nil, err
	}
	if c.perItemCost, err = parseAmount("shipping.per_item_cost", cfg.PerItemCost); err != nil {
		return nil, err
	}
	if cfg.FreeAbove != "" {
		threshold, err := parseAmount("shipping.free_above", cfg.FreeAbove)
		if err != nil {
			return nil, err
		}
		c.freeAbove = &threshold
	}
	for region, cost := range cfg.Regions {
		amount, err := parseAmount("shipping.regions."+region, cost)
		if err != nil {
			return nil, err
		}
		c.regions[normalizeRegion(region)] = amount
	}
	return c, nil
}

func parseAmount(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}

// viper 会把 map 的 key 转成小写
func normalizeRegion(region string) string {
	return strings.ToLower(strings.TrimSpace(region))
}

// BaseCost 地区基础运费，未配置的地区使用默认运费
func (c *Calculator) BaseCost(region string) decimal.Decimal {
	if cost, ok := c.regions[normalizeRegion(region)]; ok {
		return cost
	}
	return c.defaultCost
}

// Quote 基础运费 + 第二件起每件附加费，满额包邮
func (c *Calculator) Quote(region string, itemCount int, subtotal decimal.Decimal) Quote {
	if itemCount < 1 {
		itemCount = 1
	}
	q := Quote{Region: region, Items: itemCount, Subtotal: subtotal}

	if c.freeAbove != nil && subtotal.GreaterThanOrEqual(*c.freeAbove) {
		q.Cost = money.Zero
		q.Free = true
		return q
	}

	extra := c.perItemCost.Mul(decimal.NewFromInt(int64(itemCount - 1)))
	q.Cost = money.Round(c.BaseCost(region).Add(extra))
	return q
}
