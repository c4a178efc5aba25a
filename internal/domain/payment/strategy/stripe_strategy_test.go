package strategy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"marketplace/internal/pkg/config"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stripeSecret = "whsec_test"

func stripeRequest(t *testing.T, payload, secret string) *http.Request {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook/stripe", nil)
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return req
}

func stripeEvent(eventType, intentID string) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":%q,"data":{"object":{"id":%q,"object":"payment_intent","status":"succeeded"}}}`,
		eventType, intentID)
}

func newStripe(t *testing.T) *StripeStrategy {
	s, err := NewStripeStrategy(config.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: stripeSecret})
	require.NoError(t, err)
	return s
}

func TestNewStripeRequiresKey(t *testing.T) {
	_, err := NewStripeStrategy(config.StripeConfig{})
	assert.Error(t, err)
}

func TestStripeParseWebhook(t *testing.T) {
	s := newStripe(t)

	t.Run("succeeded", func(t *testing.T) {
		body := stripeEvent("payment_intent.succeeded", "pi_123")
		n, err := s.ParseWebhook(stripeRequest(t, body, stripeSecret), []byte(body))
		require.NoError(t, err)
		assert.Equal(t, "pi_123", n.ExternalID)
		assert.Equal(t, StatusApproved, n.Status)
	})

	t.Run("canceled", func(t *testing.T) {
		body := stripeEvent("payment_intent.canceled", "pi_456")
		n, err := s.ParseWebhook(stripeRequest(t, body, stripeSecret), []byte(body))
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, n.Status)
	})

	t.Run("unrelated event", func(t *testing.T) {
		body := stripeEvent("customer.created", "cus_1")
		_, err := s.ParseWebhook(stripeRequest(t, body, stripeSecret), []byte(body))
		assert.ErrorIs(t, err, ErrIgnoredEvent)
	})

	t.Run("wrong secret", func(t *testing.T) {
		body := stripeEvent("payment_intent.succeeded", "pi_123")
		_, err := s.ParseWebhook(stripeRequest(t, body, "whsec_other"), []byte(body))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestMapStripeStatus(t *testing.T) {
	assert.Equal(t, StatusApproved, mapStripeStatus("succeeded"))
	assert.Equal(t, StatusExpired, mapStripeStatus("canceled"))
	assert.Equal(t, StatusPending, mapStripeStatus("requires_action"))
}
