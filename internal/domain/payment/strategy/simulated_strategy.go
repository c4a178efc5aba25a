package strategy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"marketplace/internal/domain/payment/model"
	"marketplace/pkg/money"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// SimulatedStrategy 本地开发/测试渠道，不对接真实支付
// 状态始终为 pending，通过 simulate 接口或模拟回调完成支付
type SimulatedStrategy struct{}

func NewSimulatedStrategy() *SimulatedStrategy {
	return &SimulatedStrategy{}
}

func (s *SimulatedStrategy) Name() string {
	return model.ProviderSimulated
}

func (s *SimulatedStrategy) CreateCharge(_ context.Context, req ChargeRequest) (*Charge, error) {
	id := "sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	payload := fmt.Sprintf("00020126580014BR.GOV.BCB.PIX0136%s5204000053039865406%s5802BR6009SAO PAULO62070503***",
		req.Reference, money.Format(req.Amount))
	return &Charge{
		ExternalID:   id,
		QRCode:       payload,
		QRCodeBase64: base64.StdEncoding.EncodeToString([]byte(payload)),
	}, nil
}

func (s *SimulatedStrategy) FetchStatus(_ context.Context, _ string) (string, error) {
	return StatusPending, nil
}

type simulatedWebhook struct {
	ExternalID string `json:"externalId"`
	Status     string `json:"status"`
}

// ParseWebhook body: {"externalId": "...", "status": "approved"}
func (s *SimulatedStrategy) ParseWebhook(_ *http.Request, body []byte) (*Notification, error) {
	var hook simulatedWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("simulated webhook: %w", err)
	}
	if hook.ExternalID == "" {
		return nil, ErrIgnoredEvent
	}
	switch hook.Status {
	case StatusApproved, StatusExpired, StatusPending, "":
	default:
		return nil, ErrIgnoredEvent
	}
	return &Notification{ExternalID: hook.ExternalID, Status: hook.Status, EventType: "simulated"}, nil
}

var _ PaymentStrategy = (*SimulatedStrategy)(nil)
