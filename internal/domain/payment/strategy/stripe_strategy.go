package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"marketplace/internal/domain/payment/model"
	"marketplace/internal/pkg/config"
	"marketplace/pkg/money"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeStrategy Stripe PaymentIntent (pix)
type StripeStrategy struct {
	api           *client.API
	webhookSecret string
}

func NewStripeStrategy(cfg config.StripeConfig) (*StripeStrategy, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is missing")
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeStrategy{api: api, webhookSecret: cfg.WebhookSecret}, nil
}

func (s *StripeStrategy) Name() string {
	return model.ProviderStripe
}

func (s *StripeStrategy) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(money.ToCents(req.Amount)),
		Currency:           stripe.String(string(stripe.CurrencyBRL)),
		PaymentMethodTypes: stripe.StringSlice([]string{"pix"}),
		PaymentMethodData: &stripe.PaymentIntentPaymentMethodDataParams{
			Type: stripe.String("pix"),
		},
		PaymentMethodOptions: &stripe.PaymentIntentPaymentMethodOptionsParams{
			Pix: &stripe.PaymentIntentPaymentMethodOptionsPixParams{
				ExpiresAt: stripe.Int64(req.ExpiresAt.Unix()),
			},
		},
		Description: stripe.String(req.Description),
		Confirm:     stripe.Bool(true),
	}
	if req.PayerEmail != "" {
		params.ReceiptEmail = stripe.String(req.PayerEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Reference)
	params.AddMetadata("payment_id", req.Reference)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}

	charge := &Charge{ExternalID: pi.ID}
	if pi.NextAction != nil && pi.NextAction.PixDisplayQRCode != nil {
		qr := pi.NextAction.PixDisplayQRCode
		charge.QRCode = qr.Data
		charge.TicketURL = qr.HostedInstructionsURL
	}
	return charge, nil
}

func (s *StripeStrategy) FetchStatus(ctx context.Context, externalID string) (string, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(externalID, params)
	if err != nil {
		return "", fmt.Errorf("stripe get payment intent %s: %w", externalID, err)
	}
	return mapStripeStatus(pi.Status), nil
}

func mapStripeStatus(status stripe.PaymentIntentStatus) string {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusApproved
	case stripe.PaymentIntentStatusCanceled:
		return StatusExpired
	default:
		return StatusPending
	}
}

// ParseWebhook payment_intent.succeeded 视为支付成功
func (s *StripeStrategy) ParseWebhook(r *http.Request, body []byte) (*Notification, error) {
	event, err := webhook.ConstructEventWithOptions(body, r.Header.Get("Stripe-Signature"), s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var status string
	switch string(event.Type) {
	case "payment_intent.succeeded":
		status = StatusApproved
	case "payment_intent.canceled":
		status = StatusExpired
	default:
		return nil, ErrIgnoredEvent
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe webhook: %w", err)
	}
	return &Notification{ExternalID: pi.ID, Status: status, EventType: string(event.Type)}, nil
}

var _ PaymentStrategy = (*StripeStrategy)(nil)
