package model

import (
	"marketplace/pkg/model"
	"time"

	"github.com/shopspring/decimal"
)

// 优惠券类型
const (
	TypePercentage   = "PERCENTAGE"
	TypeFixedAmount  = "FIXED_AMOUNT"
	TypeFreeShipping = "FREE_SHIPPING"
)

// Coupon 优惠券定义，可选字段为 nil 表示不限制
type Coupon struct {
	model.BaseModel
	Code           string           `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Type           string           `gorm:"size:20;not null" json:"type"`
	Value          decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"value"`
	MinOrderAmount *decimal.Decimal `gorm:"type:numeric(12,2)" json:"minOrderAmount"`
	MaxDiscount    *decimal.Decimal `gorm:"type:numeric(12,2)" json:"maxDiscount"`
	Category       *string          `gorm:"size:100" json:"category"`
	UsageLimit     *int             `json:"usageLimit"`
	UsageCount     int              `gorm:"not null;default:0" json:"usageCount"`
	UserLimit      *int             `json:"userLimit"`
	IsActive       bool             `gorm:"not null;default:true" json:"isActive"`
	ValidFrom      time.Time        `gorm:"not null" json:"validFrom"`
	ValidUntil     *time.Time       `json:"validUntil"`
}

// CouponUsage 用户核销记录，用于每人限用次数统计
type CouponUsage struct {
	model.BaseModel
	CouponID string          `gorm:"type:uuid;index;not null" json:"couponId"`
	UserID   string          `gorm:"type:uuid;index;not null" json:"userId"`
	OrderID  string          `gorm:"type:uuid;uniqueIndex;not null" json:"orderId"`
	Discount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	UsedAt   time.Time       `gorm:"not null" json:"usedAt"`
}
