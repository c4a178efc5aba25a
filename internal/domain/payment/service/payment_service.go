package service

import (
	"context"
	"errors"
	"fmt"
	orderModel "marketplace/internal/domain/order/model"
	"marketplace/internal/domain/payment/model"
	"marketplace/internal/domain/payment/repository"
	"marketplace/internal/domain/payment/strategy"
	"marketplace/internal/pkg/events"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/pkg/money"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotPending   = errors.New("payment is not pending")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotPayable     = errors.New("order is not awaiting payment")
	ErrProviderUnsupported = errors.New("unsupported payment provider")
	// ErrProviderUnavailable 渠道调用失败，本地状态未变化，可稍后重试
	ErrProviderUnavailable = errors.New("payment provider unavailable, try again later")
)

// 确认来源，用于指标
const (
	SourcePolling   = "polling"
	SourceWebhook   = "webhook"
	SourceSimulated = "simulated"
)

// OrderReader 读取待支付订单
type OrderReader interface {
	GetByID(ctx context.Context, id string) (*orderModel.Order, error)
}

// CreatePixRequest 发起 PIX 支付
type CreatePixRequest struct {
	OrderID  string
	UserID   string
	Provider string
}

type PaymentService interface {
	RegisterStrategy(s strategy.PaymentStrategy)
	CreatePix(ctx context.Context, req CreatePixRequest) (*model.PixPayment, error)
	// CheckPayment 轮询：过期则置为 EXPIRED，否则向渠道查询并在成功时确认
	CheckPayment(ctx context.Context, paymentID, userID string, isAdmin bool) (*model.PixPayment, error)
	// HandleWebhook 返回的错误只用于日志，调用方始终应答 200
	HandleWebhook(ctx context.Context, provider string, r *http.Request, body []byte) error
	// SimulatePayment 非生产环境手动确认
	SimulatePayment(ctx context.Context, paymentID, userID string, isAdmin bool) (*model.PixPayment, error)
}

type paymentService struct {
	repo            repository.PaymentRepository
	orders          OrderReader
	strategies      map[string]strategy.PaymentStrategy
	defaultProvider string
	expiration      time.Duration
	events          events.Dispatcher
	metrics         *metrics.MetricsCollector
	now             func() time.Time
}

func NewPaymentService(
	repo repository.PaymentRepository,
	orders OrderReader,
	defaultProvider string,
	expiration time.Duration,
	dispatcher events.Dispatcher,
	collector *metrics.MetricsCollector,
) PaymentService {
	if dispatcher == nil {
		dispatcher = events.NopDispatcher{}
	}
	return &paymentService{
		repo:            repo,
		orders:          orders,
		strategies:      make(map[string]strategy.PaymentStrategy),
		defaultProvider: defaultProvider,
		expiration:      expiration,
		events:          dispatcher,
		metrics:         collector,
		now:             time.Now,
	}
}

// RegisterStrategy 注册支付渠道
func (s *paymentService) RegisterStrategy(st strategy.PaymentStrategy) {
	s.strategies[st.Name()] = st
}

func (s *paymentService) strategy(name string) (strategy.PaymentStrategy, error) {
	st, ok := s.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnsupported, name)
	}
	return st, nil
}

func (s *paymentService) CreatePix(ctx context.Context, req CreatePixRequest) (*model.PixPayment, error) {
	name := req.Provider
	if name == "" {
		name = s.defaultProvider
	}
	st, err := s.strategy(name)
	if err != nil {
		return nil, err
	}

	// 1. 订单校验
	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != req.UserID {
		return nil, ErrOrderNotFound
	}
	if order.Status != orderModel.OrderStatusPending || order.PaymentStatus == orderModel.PaymentStatusPaid {
		return nil, ErrOrderNotPayable
	}
	amount := order.AmountDue()
	if !amount.IsPositive() {
		return nil, ErrOrderNotPayable
	}

	// 2. 已有未过期的待支付记录直接返回
	now := s.now()
	existing, err := s.repo.FindActiveByOrder(ctx, order.ID, now)
	if err == nil && existing.Provider == name && existing.Amount.Equal(amount) {
		return existing, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 3. 调用渠道，失败不落库
	payment := &model.PixPayment{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Provider:  name,
		Amount:    amount,
		Status:    model.StatusPending,
		ExpiresAt: now.Add(s.expiration),
	}
	payment.ID = uuid.NewString()

	charge, err := st.CreateCharge(ctx, strategy.ChargeRequest{
		Reference:   payment.ID,
		Amount:      amount,
		Description: "Order " + order.ID,
		PayerEmail:  order.CustomerEmail,
		ExpiresAt:   payment.ExpiresAt,
	})
	if err != nil {
		logger.Log.Error("create pix charge failed",
			zap.String("provider", name),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	payment.ExternalID = charge.ExternalID
	payment.QRCode = charge.QRCode
	payment.QRCodeBase64 = charge.QRCodeBase64
	payment.TicketURL = charge.TicketURL

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.events.Dispatch(events.New(events.TypePaymentCreated, payment.ID, payment.UserID, map[string]interface{}{
		"orderId":  payment.OrderID,
		"provider": payment.Provider,
		"amount":   money.Format(payment.Amount),
	}))
	return payment, nil
}

func (s *paymentService) load(ctx context.Context, paymentID, userID string, isAdmin bool) (*model.PixPayment, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if !isAdmin && payment.UserID != userID {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *paymentService) CheckPayment(ctx context.Context, paymentID, userID string, isAdmin bool) (*model.PixPayment, error) {
	payment, err := s.load(ctx, paymentID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if payment.Status != model.StatusPending {
		return payment, nil
	}

	// 被动过期
	if payment.IsDue(s.now()) {
		if _, err := s.expire(ctx, payment); err != nil {
			return nil, err
		}
		return payment, nil
	}

	st, err := s.strategy(payment.Provider)
	if err != nil {
		return nil, err
	}
	status, err := st.FetchStatus(ctx, payment.ExternalID)
	if err != nil {
		logger.Log.Warn("fetch payment status failed",
			zap.String("payment_id", payment.ID),
			zap.String("provider", payment.Provider),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if _, err := s.apply(ctx, payment, status, SourcePolling); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, provider string, r *http.Request, body []byte) error {
	st, err := s.strategy(provider)
	if err != nil {
		s.metrics.WebhookReceived(provider, "unsupported")
		return err
	}

	n, err := st.ParseWebhook(r, body)
	if err != nil {
		if errors.Is(err, strategy.ErrIgnoredEvent) {
			s.metrics.WebhookReceived(provider, "ignored")
			return nil
		}
		s.metrics.WebhookReceived(provider, "rejected")
		return err
	}

	payment, err := s.repo.GetByExternalID(ctx, provider, n.ExternalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.WebhookReceived(provider, "unknown")
			return fmt.Errorf("%w: %s %s", ErrPaymentNotFound, provider, n.ExternalID)
		}
		s.metrics.WebhookReceived(provider, "error")
		return err
	}

	// 回调未携带状态时以渠道查询结果为准
	status := n.Status
	if status == "" {
		status, err = st.FetchStatus(ctx, n.ExternalID)
		if err != nil {
			s.metrics.WebhookReceived(provider, "error")
			return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}

	if status == strategy.StatusApproved && payment.Status == model.StatusExpired {
		// 过期后才到账，需要人工处理退款或补单
		logger.Log.Warn("approval received for expired payment",
			zap.String("payment_id", payment.ID),
			zap.String("order_id", payment.OrderID),
			zap.String("provider", provider),
		)
	}

	applied, err := s.apply(ctx, payment, status, SourceWebhook)
	if err != nil {
		s.metrics.WebhookReceived(provider, "error")
		return err
	}
	if applied {
		s.metrics.WebhookReceived(provider, "applied")
	} else {
		s.metrics.WebhookReceived(provider, "duplicate")
	}
	return nil
}

func (s *paymentService) SimulatePayment(ctx context.Context, paymentID, userID string, isAdmin bool) (*model.PixPayment, error) {
	payment, err := s.load(ctx, paymentID, userID, isAdmin)
	if err != nil {
		return nil, err
	}
	if payment.IsDue(s.now()) {
		if _, err := s.expire(ctx, payment); err != nil {
			return nil, err
		}
	}
	if payment.Status != model.StatusPending {
		return nil, ErrPaymentNotPending
	}

	applied, err := s.confirm(ctx, payment, SourceSimulated)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrPaymentNotPending
	}
	return payment, nil
}

// apply 根据渠道状态推进本地状态，已终结的支付不再变化
func (s *paymentService) apply(ctx context.Context, payment *model.PixPayment, status, source string) (bool, error) {
	if payment.Status != model.StatusPending {
		return false, nil
	}
	switch status {
	case strategy.StatusApproved:
		return s.confirm(ctx, payment, source)
	case strategy.StatusExpired:
		return s.expire(ctx, payment)
	default:
		return false, nil
	}
}

// confirm 返回本次调用是否完成了状态迁移
func (s *paymentService) confirm(ctx context.Context, payment *model.PixPayment, source string) (bool, error) {
	paidAt := s.now()
	applied, err := s.repo.ConfirmPayment(ctx, payment, paidAt)
	if err != nil {
		return false, err
	}
	if !applied {
		// 其他路径已经处理过，返回最新状态
		return false, s.refresh(ctx, payment)
	}

	payment.Status = model.StatusPaid
	payment.PaidAt = &paidAt
	s.metrics.PaymentConfirmed(source)
	s.events.Dispatch(events.New(events.TypePaymentConfirmed, payment.ID, payment.UserID, map[string]interface{}{
		"orderId":  payment.OrderID,
		"amount":   money.Format(payment.Amount),
		"provider": payment.Provider,
		"source":   source,
	}))
	logger.Log.Info("pix payment confirmed",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", payment.OrderID),
		zap.String("source", source),
	)
	return true, nil
}

func (s *paymentService) expire(ctx context.Context, payment *model.PixPayment) (bool, error) {
	applied, err := s.repo.MarkExpired(ctx, payment)
	if err != nil {
		return false, err
	}
	if !applied {
		return false, s.refresh(ctx, payment)
	}

	payment.Status = model.StatusExpired
	s.metrics.PaymentExpired()
	s.events.Dispatch(events.New(events.TypePaymentExpired, payment.ID, payment.UserID, map[string]interface{}{
		"orderId": payment.OrderID,
	}))
	return true, nil
}

func (s *paymentService) refresh(ctx context.Context, payment *model.PixPayment) error {
	latest, err := s.repo.GetByID(ctx, payment.ID)
	if err != nil {
		return err
	}
	*payment = *latest
	return nil
}
