package service

import (
	"context"
	"errors"
	"fmt"
	"marketplace/internal/domain/order/model"
	"marketplace/internal/domain/order/repository"
	productRepo "marketplace/internal/domain/product/repository"
	shippingService "marketplace/internal/domain/shipping/service"
	userModel "marketplace/internal/domain/user/model"
	"marketplace/internal/pkg/events"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/pkg/money"
	"marketplace/pkg/utils"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmptyItems          = errors.New("order must contain at least one item")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidPrice        = errors.New("price must not be negative")
	ErrProductNotFound     = errors.New("product not found")
	ErrSellerMissing       = errors.New("product has no seller")
	ErrPriceChanged        = errors.New("product price has changed")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidCommission   = errors.New("commission rate must be in [0, 1)")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderForbidden      = errors.New("order belongs to another user")
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrInvalidPayoutStatus = errors.New("invalid payout status")
)

// CustomerInfo 收货人信息
type CustomerInfo struct {
	Name    string
	Email   string
	Phone   string
	Address string
	State   string
}

// ItemRequest 下单明细，Price 为客户端看到的单价（可选）
type ItemRequest struct {
	ProductID string
	Quantity  int
	Price     *decimal.Decimal
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	UserID         string
	Role           string
	Customer       CustomerInfo
	Items          []ItemRequest
	PaymentMethod  string
	CommissionRate *decimal.Decimal
}

// PayoutList 结算单分页 + 汇总
type PayoutList struct {
	utils.PageResult
	Summary *model.PayoutSummary `json:"summary"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, id, userID string, isAdmin bool) (*model.Order, error)
	ListPayouts(ctx context.Context, sellerID string, p utils.Pagination) (*PayoutList, error)
	UpdatePayoutStatus(ctx context.Context, payoutID, status string) (*model.SellerPayout, error)
}

type orderService struct {
	repo        repository.OrderRepository
	products    productRepo.ProductRepository
	shipping    *shippingService.Calculator
	events      events.Dispatcher
	metrics     *metrics.MetricsCollector
	defaultRate decimal.Decimal
}

func NewOrderService(
	repo repository.OrderRepository,
	products productRepo.ProductRepository,
	shipping *shippingService.Calculator,
	dispatcher events.Dispatcher,
	collector *metrics.MetricsCollector,
	defaultRate decimal.Decimal,
) OrderService {
	if dispatcher == nil {
		dispatcher = events.NopDispatcher{}
	}
	return &orderService{
		repo:        repo,
		products:    products,
		shipping:    shipping,
		events:      dispatcher,
		metrics:     collector,
		defaultRate: defaultRate,
	}
}

// commissionRate 佣金比例以服务端配置为准，仅管理员可以指定
func (s *orderService) commissionRate(req CreateOrderRequest) (decimal.Decimal, error) {
	if req.CommissionRate == nil || req.Role != userModel.RoleAdmin {
		return s.defaultRate, nil
	}
	rate := *req.CommissionRate
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, ErrInvalidCommission
	}
	return rate, nil
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	// 1. 参数校验
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	ids := make([]string, 0, len(req.Items))
	// 同一商品可能出现在多行，库存按合计数量校验
	wanted := make(map[string]int, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidQuantity, item.ProductID)
		}
		if item.Price != nil && item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: product %s", ErrInvalidPrice, item.ProductID)
		}
		if _, seen := wanted[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		wanted[item.ProductID] += item.Quantity
	}

	rate, err := s.commissionRate(req)
	if err != nil {
		return nil, err
	}

	// 2. 解析商品与卖家，任何一个失败则整单失败
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, reqItem := range req.Items {
		product, ok := products[reqItem.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, reqItem.ProductID)
		}
		if product.SellerID() == "" {
			return nil, fmt.Errorf("%w: %s", ErrSellerMissing, reqItem.ProductID)
		}
		if reqItem.Price != nil && !reqItem.Price.Equal(product.Price) {
			return nil, fmt.Errorf("%w: %s", ErrPriceChanged, reqItem.ProductID)
		}
		if product.Stock < wanted[reqItem.ProductID] {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, reqItem.ProductID)
		}
		items = append(items, model.OrderItem{
			ProductID: product.ID,
			SellerID:  product.SellerID(),
			Category:  product.Category,
			Quantity:  reqItem.Quantity,
			Price:     product.Price,
		})
	}

	// 3. 按卖家拆分佣金
	total, payouts := SplitCommission(items, rate)

	order := &model.Order{
		UserID:          req.UserID,
		CustomerName:    req.Customer.Name,
		CustomerEmail:   req.Customer.Email,
		CustomerPhone:   req.Customer.Phone,
		CustomerAddress: req.Customer.Address,
		CustomerState:   req.Customer.State,
		Total:           total,
		DiscountAmount:  money.Zero,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		ShippingStatus:  model.ShippingStatusPending,
		PaymentMethod:   req.PaymentMethod,
		CommissionRate:  rate,
		PlatformFee:     PlatformFee(payouts),
		Items:           items,
		SellerPayouts:   payouts,
	}
	order.ShippingCost = s.shipping.Quote(order.CustomerState, order.ItemCount(), total).Cost

	// 4. 订单 + 明细 + 结算单同一事务
	if err := s.repo.CreateWithPayouts(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.OrderCreated(len(payouts))
	s.events.Dispatch(events.New(events.TypeOrderCreated, order.ID, order.UserID, map[string]interface{}{
		"total":   money.Format(order.Total),
		"sellers": len(payouts),
	}))
	logger.Log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("total", money.Format(order.Total)),
		zap.Int("sellers", len(payouts)),
	)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id, userID string, isAdmin bool) (*model.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrOrderForbidden
	}
	return order, nil
}

func (s *orderService) ListPayouts(ctx context.Context, sellerID string, p utils.Pagination) (*PayoutList, error) {
	offset, limit := p.GetPageOffset()
	payouts, total, err := s.repo.ListPayouts(ctx, sellerID, offset, limit)
	if err != nil {
		return nil, err
	}
	summary, err := s.repo.SummarizePayouts(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	return &PayoutList{
		PageResult: utils.NewPageResult(payouts, total, p),
		Summary:    summary,
	}, nil
}

func (s *orderService) UpdatePayoutStatus(ctx context.Context, payoutID, status string) (*model.SellerPayout, error) {
	var paidAt *time.Time
	switch status {
	case model.PayoutStatusPaid:
		now := time.Now()
		paidAt = &now
	case model.PayoutStatusPending:
	default:
		return nil, ErrInvalidPayoutStatus
	}

	payout, err := s.repo.UpdatePayoutStatus(ctx, payoutID, status, paidAt)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}

	if payout.Status == model.PayoutStatusPaid {
		s.events.Dispatch(events.New(events.TypePayoutPaid, payout.ID, payout.SellerID, map[string]interface{}{
			"orderId": payout.OrderID,
			"amount":  money.Format(payout.Amount),
		}))
	}
	return payout, nil
}
