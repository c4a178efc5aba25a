package model

import (
	"marketplace/pkg/model"
	"time"

	"github.com/shopspring/decimal"
)

// 支付渠道
const (
	ProviderMercadoPago = "mercadopago"
	ProviderStripe      = "stripe"
	ProviderSimulated   = "simulated"
)

// PIX 支付状态：PENDING -> PAID | PENDING -> EXPIRED
const (
	StatusPending = "PENDING"
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
)

// PixPayment 一次 PIX 收款，ExternalID 为渠道侧支付 ID
type PixPayment struct {
	model.BaseModel
	OrderID      string          `gorm:"type:uuid;index;not null" json:"orderId"`
	UserID       string          `gorm:"type:uuid;index;not null" json:"userId"`
	Provider     string          `gorm:"size:20;not null;uniqueIndex:idx_pix_provider_external" json:"provider"`
	ExternalID   string          `gorm:"size:100;not null;uniqueIndex:idx_pix_provider_external" json:"externalId"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	QRCode       string          `gorm:"type:text" json:"qrCode"`
	QRCodeBase64 string          `gorm:"type:text" json:"qrCodeBase64,omitempty"`
	TicketURL    string          `gorm:"size:500" json:"ticketUrl,omitempty"`
	Status       string          `gorm:"size:20;index;not null" json:"status"`
	ExpiresAt    time.Time       `gorm:"not null" json:"expiresAt"`
	PaidAt       *time.Time      `json:"paidAt"`
}

// IsDue 待支付且已过期
func (p *PixPayment) IsDue(now time.Time) bool {
	return p.Status == StatusPending && now.After(p.ExpiresAt)
}
