package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// 领域事件类型
const (
	TypeOrderCreated     = "order.created"
	TypeCouponRedeemed   = "coupon.redeemed"
	TypePaymentCreated   = "payment.created"
	TypePaymentConfirmed = "payment.confirmed"
	TypePaymentExpired   = "payment.expired"
	TypePayoutPaid       = "payout.paid"
)

// Event 领域事件
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	AggregateID string                 `json:"aggregateId"`
	UserID      string                 `json:"userId,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

// New 构造事件
func New(eventType, aggregateID, userID string, payload map[string]interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		UserID:      userID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
}

// Dispatcher 异步投递入口，由 worker pool 实现
type Dispatcher interface {
	Dispatch(evt Event)
}

// Sink 事件的最终去处 (Kafka / 推送 / 日志)
type Sink interface {
	Deliver(ctx context.Context, evt Event) error
}

// MultiSink 依次投递到多个 Sink，收集全部错误
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, evt Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopDispatcher 丢弃所有事件，测试或未配置时使用
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(Event) {}
