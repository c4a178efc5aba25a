package strategy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// 渠道状态归一化
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusExpired  = "expired"
)

var (
	// ErrIgnoredEvent 与支付状态无关的回调，直接确认即可
	ErrIgnoredEvent = errors.New("event ignored")
	// ErrInvalidSignature 回调验签失败
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// ChargeRequest 发起收款
type ChargeRequest struct {
	Reference   string // 本地支付 ID，同时作为幂等键
	Amount      decimal.Decimal
	Description string
	PayerEmail  string
	ExpiresAt   time.Time
}

// Charge 渠道返回的收款信息
type Charge struct {
	ExternalID   string
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
}

// Notification 回调解析结果，Status 为空表示需要主动查询
type Notification struct {
	ExternalID string
	Status     string
	EventType  string
}

// PaymentStrategy 支付渠道
type PaymentStrategy interface {
	Name() string

	// CreateCharge 创建 PIX 收款，返回二维码等支付参数
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)

	// FetchStatus 查询渠道侧状态（以渠道为准）
	FetchStatus(ctx context.Context, externalID string) (string, error)

	// ParseWebhook 验签并解析回调
	ParseWebhook(r *http.Request, body []byte) (*Notification, error)
}
