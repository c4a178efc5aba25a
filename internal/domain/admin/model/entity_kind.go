package model

import (
	"fmt"
	"strings"
)

// EntityKind 可导出的实体类型
type EntityKind string

const (
	KindOrders        EntityKind = "orders"
	KindOrderItems    EntityKind = "order_items"
	KindSellerPayouts EntityKind = "seller_payouts"
	KindCoupons       EntityKind = "coupons"
	KindCouponUsages  EntityKind = "coupon_usages"
	KindPixPayments   EntityKind = "pix_payments"
	KindProducts      EntityKind = "products"
	KindUsers         EntityKind = "users"
)

// AllKinds 固定顺序，用于错误提示
var AllKinds = []EntityKind{
	KindOrders,
	KindOrderItems,
	KindSellerPayouts,
	KindCoupons,
	KindCouponUsages,
	KindPixPayments,
	KindProducts,
	KindUsers,
}

// ErrUnknownKind 不在枚举内的实体类型
type ErrUnknownKind struct {
	Kind string
}

func (e *ErrUnknownKind) Error() string {
	names := make([]string, len(AllKinds))
	for i, k := range AllKinds {
		names[i] = string(k)
	}
	return fmt.Sprintf("unknown export kind %q, expected one of: %s", e.Kind, strings.Join(names, ", "))
}

// ParseEntityKind 大小写不敏感，'-' 视同 '_'
func ParseEntityKind(s string) (EntityKind, error) {
	normalized := EntityKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, k := range AllKinds {
		if k == normalized {
			return k, nil
		}
	}
	return "", &ErrUnknownKind{Kind: s}
}
