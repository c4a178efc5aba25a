package push

import (
	"context"
	"encoding/json"
	"fmt"
	"marketplace/internal/pkg/config"
	"marketplace/internal/pkg/events"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/push"
)

type PushService interface {
	PushToAccount(accountID string, title, body string, extParameters map[string]string) error
}

type AliyunPushService struct {
	client *push.Client
	appKey int64
}

func NewAliyunPushService(cfg config.PushConfig) (*AliyunPushService, error) {
	if cfg.AccessKeyID == "" || cfg.AppKey == 0 {
		return nil, fmt.Errorf("push config is missing")
	}

	client, err := push.NewClientWithAccessKey(
		cfg.RegionID,
		cfg.AccessKeyID,
		cfg.AccessKeySecret,
	)
	if err != nil {
		return nil, err
	}

	return &AliyunPushService{
		client: client,
		appKey: cfg.AppKey,
	}, nil
}

func (s *AliyunPushService) PushToAccount(accountID string, title, body string, extParameters map[string]string) error {
	request := push.CreatePushRequest()
	request.AppKey = requests.NewInteger(int(s.appKey))
	request.Target = "ACCOUNT"
	request.TargetValue = accountID
	request.Title = title
	request.Body = body
	request.DeviceType = "ALL"  // iOS & Android
	request.PushType = "NOTICE" // 通知

	// 扩展参数 (JSON 序列化)
	if len(extParameters) > 0 {
		extJSON, _ := json.Marshal(extParameters)
		request.AndroidExtParameters = string(extJSON)
		request.IOSExtParameters = string(extJSON)
	}

	_, err := s.client.Push(request)
	return err
}

// Notifier 把领域事件转换成用户通知
type Notifier struct {
	push PushService
}

func NewNotifier(push PushService) *Notifier {
	return &Notifier{push: push}
}

// Deliver 实现 events.Sink，不需要通知的事件直接忽略
func (n *Notifier) Deliver(_ context.Context, evt events.Event) error {
	if evt.UserID == "" {
		return nil
	}
	title, body, ok := render(evt)
	if !ok {
		return nil
	}
	return n.push.PushToAccount(evt.UserID, title, body, map[string]string{
		"type": evt.Type,
		"id":   evt.AggregateID,
	})
}

func render(evt events.Event) (title, body string, ok bool) {
	switch evt.Type {
	case events.TypePaymentConfirmed:
		return "Payment confirmed", fmt.Sprintf("Your payment for order %v was confirmed.", evt.Payload["orderId"]), true
	case events.TypePaymentExpired:
		return "PIX expired", fmt.Sprintf("The PIX code for order %v expired. Generate a new one to finish checkout.", evt.Payload["orderId"]), true
	case events.TypePayoutPaid:
		return "Payout sent", fmt.Sprintf("Your payout of %v was paid.", evt.Payload["amount"]), true
	default:
		return "", "", false
	}
}

var _ events.Sink = (*Notifier)(nil)
