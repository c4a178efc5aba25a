package model

import (
	"marketplace/pkg/model"
	"time"

	"github.com/shopspring/decimal"
)

// 订单状态
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
)

// 订单支付状态
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusExpired = "EXPIRED"
)

// 物流状态
const (
	ShippingStatusPending   = "PENDING"
	ShippingStatusShipped   = "SHIPPED"
	ShippingStatusDelivered = "DELIVERED"
)

// 卖家结算状态
const (
	PayoutStatusPending = "PENDING"
	PayoutStatusPaid    = "PAID"
)

// Order 主订单，一个订单可包含多个卖家的商品
type Order struct {
	model.BaseModel
	UserID          string          `gorm:"type:uuid;index;not null" json:"userId"`
	CustomerName    string          `gorm:"size:100" json:"customerName"`
	CustomerEmail   string          `gorm:"size:150" json:"customerEmail"`
	CustomerPhone   string          `gorm:"size:30" json:"customerPhone"`
	CustomerAddress string          `gorm:"size:300" json:"customerAddress"`
	CustomerState   string          `gorm:"size:50" json:"customerState"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	ShippingCost    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shippingCost"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discountAmount"`
	CouponID        *string         `gorm:"type:uuid" json:"couponId"`
	Status          string          `gorm:"size:20;index;not null" json:"status"`
	PaymentStatus   string          `gorm:"size:20;not null" json:"paymentStatus"`
	ShippingStatus  string          `gorm:"size:20;not null" json:"shippingStatus"`
	PaymentMethod   string          `gorm:"size:30" json:"paymentMethod"`
	CommissionRate  decimal.Decimal `gorm:"type:numeric(5,4);not null" json:"commissionRate"`
	PlatformFee     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"platformFee"`
	ConfirmedAt     *time.Time      `json:"confirmedAt"`

	Items         []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	SellerPayouts []SellerPayout `gorm:"foreignKey:OrderID" json:"sellerPayouts,omitempty"`
}

// AmountDue 应付金额 = 商品总额 + 运费 - 优惠，不低于 0
// 免运费券的优惠额等于运费报价，可能大于商品总额
func (o *Order) AmountDue() decimal.Decimal {
	due := o.Total.Add(o.ShippingCost).Sub(o.DiscountAmount)
	if due.IsNegative() {
		due = decimal.Zero
	}
	return due.Round(2)
}

// ItemCount 商品件数
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// OrderItem 订单明细，价格为下单时快照
type OrderItem struct {
	model.BaseModel
	OrderID   string          `gorm:"type:uuid;index;not null" json:"orderId"`
	ProductID string          `gorm:"type:uuid;index;not null" json:"productId"`
	SellerID  string          `gorm:"type:uuid;index;not null" json:"sellerId"`
	Category  string          `gorm:"size:100" json:"category"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

// SellerPayout 卖家结算单，每个订单每个卖家一条
// Amount + Commission 等于该卖家在订单中的商品小计
type SellerPayout struct {
	model.BaseModel
	OrderID    string          `gorm:"type:uuid;index;not null" json:"orderId"`
	SellerID   string          `gorm:"type:uuid;index;not null" json:"sellerId"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Commission decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"commission"`
	Status     string          `gorm:"size:20;index;not null" json:"status"`
	PaidAt     *time.Time      `json:"paidAt"`
}

// PayoutSummary 卖家结算汇总
type PayoutSummary struct {
	Count           int64           `json:"count"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	TotalCommission decimal.Decimal `json:"totalCommission"`
	PendingAmount   decimal.Decimal `json:"pendingAmount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
}
