package strategy

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"marketplace/internal/domain/payment/model"
	"marketplace/internal/pkg/config"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// MercadoPagoStrategy Mercado Pago PIX
type MercadoPagoStrategy struct {
	client        *resty.Client
	limiter       *rate.Limiter
	webhookSecret string
	notifyURL     string
}

type mpTransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

type mpPayment struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	PointOfInteraction struct {
		TransactionData mpTransactionData `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

type mpError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

type mpPayer struct {
	Email string `json:"email"`
}

type mpCreatePayment struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Payer             mpPayer `json:"payer"`
	DateOfExpiration  string  `json:"date_of_expiration"`
	ExternalReference string  `json:"external_reference"`
	NotificationURL   string  `json:"notification_url,omitempty"`
}

// NewMercadoPagoStrategy 出站请求按 RPS 限速
func NewMercadoPagoStrategy(cfg config.MercadoPagoConfig) (*MercadoPagoStrategy, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("mercadopago access token is missing")
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.AccessToken).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &MercadoPagoStrategy{
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		webhookSecret: cfg.WebhookSecret,
		notifyURL:     cfg.NotifyURL,
	}, nil
}

func (s *MercadoPagoStrategy) Name() string {
	return model.ProviderMercadoPago
}

func (s *MercadoPagoStrategy) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result mpPayment
	var apiErr mpError
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Idempotency-Key", req.Reference).
		SetBody(mpCreatePayment{
			TransactionAmount: req.Amount.InexactFloat64(),
			Description:       req.Description,
			PaymentMethodID:   "pix",
			Payer:             mpPayer{Email: req.PayerEmail},
			DateOfExpiration:  req.ExpiresAt.Format("2006-01-02T15:04:05.000-07:00"),
			ExternalReference: req.Reference,
			NotificationURL:   s.notifyURL,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/payments")
	if err != nil {
		return nil, fmt.Errorf("mercadopago create payment: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("mercadopago create payment: status %d: %s", resp.StatusCode(), apiErr.Message)
	}

	data := result.PointOfInteraction.TransactionData
	return &Charge{
		ExternalID:   result.ID.String(),
		QRCode:       data.QRCode,
		QRCodeBase64: data.QRCodeBase64,
		TicketURL:    data.TicketURL,
	}, nil
}

func (s *MercadoPagoStrategy) FetchStatus(ctx context.Context, externalID string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var result mpPayment
	var apiErr mpError
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", externalID).
		SetResult(&result).
		SetError(&apiErr).
		Get("/v1/payments/{id}")
	if err != nil {
		return "", fmt.Errorf("mercadopago get payment: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("mercadopago get payment %s: status %d: %s", externalID, resp.StatusCode(), apiErr.Message)
	}
	return mapMercadoPagoStatus(result.Status), nil
}

func mapMercadoPagoStatus(status string) string {
	switch status {
	case "approved":
		return StatusApproved
	case "cancelled", "expired":
		return StatusExpired
	default:
		return StatusPending
	}
}

type mpWebhook struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// ParseWebhook 回调只携带支付 ID，状态需要回查
// 同时兼容 body 与 query (?type=payment&data.id=) 两种格式
func (s *MercadoPagoStrategy) ParseWebhook(r *http.Request, body []byte) (*Notification, error) {
	var hook mpWebhook
	if len(body) > 0 {
		if err := json.Unmarshal(body, &hook); err != nil {
			return nil, fmt.Errorf("mercadopago webhook: %w", err)
		}
	}

	eventType := hook.Type
	if eventType == "" {
		eventType = r.URL.Query().Get("type")
	}
	id := rawID(hook.Data.ID)
	if id == "" {
		id = r.URL.Query().Get("data.id")
	}

	if eventType != "payment" || id == "" {
		return nil, ErrIgnoredEvent
	}

	if s.webhookSecret != "" {
		if err := verifyMercadoPagoSignature(s.webhookSecret, r.Header.Get("x-signature"), r.Header.Get("x-request-id"), id); err != nil {
			return nil, err
		}
	}

	return &Notification{ExternalID: id, EventType: eventType}, nil
}

// rawID data.id 可能是字符串也可能是数字
func rawID(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

// verifyMercadoPagoSignature x-signature: ts=<ts>,v1=<hmac>
// 签名内容 id:<data.id>;request-id:<x-request-id>;ts:<ts>;
func verifyMercadoPagoSignature(secret, header, requestID, dataID string) error {
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return ErrInvalidSignature
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return ErrInvalidSignature
	}
	return nil
}

var _ PaymentStrategy = (*MercadoPagoStrategy)(nil)
