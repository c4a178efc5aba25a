package service

import (
	"context"
	"errors"
	"fmt"
	"marketplace/internal/domain/coupon/model"
	"marketplace/internal/domain/coupon/repository"
	orderModel "marketplace/internal/domain/order/model"
	productModel "marketplace/internal/domain/product/model"
	shippingService "marketplace/internal/domain/shipping/service"
	"marketplace/internal/pkg/events"
	"marketplace/pkg/logger"
	"marketplace/pkg/metrics"
	"marketplace/pkg/money"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 校验失败原因，按检查顺序排列
var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	ErrUserLimitReached  = errors.New("you have reached the usage limit for this coupon")
	ErrMinOrderAmount    = errors.New("minimum order amount not met")
	ErrCategoryMismatch  = errors.New("coupon does not apply to these items")
)

var (
	ErrCouponExists       = errors.New("coupon code already exists")
	ErrInvalidCoupon      = errors.New("invalid coupon definition")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotRedeemable = errors.New("order is not pending or already has a coupon")
)

// OrderReader 核销时读取订单
type OrderReader interface {
	GetByID(ctx context.Context, id string) (*orderModel.Order, error)
}

// ProductReader 补全明细的商品类目
type ProductReader interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*productModel.Product, error)
}

// Item 参与类目匹配的明细，Category 为空时按 ProductID 查询
type Item struct {
	ProductID string
	Category  string
	Quantity  int
}

// ValidateRequest 校验请求
type ValidateRequest struct {
	Code        string
	UserID      string
	OrderAmount decimal.Decimal
	Items       []Item
	Region      string
}

// CouponView 对外展示的券信息 + 本次可抵扣金额
type CouponView struct {
	ID             string           `json:"id"`
	Code           string           `json:"code"`
	Type           string           `json:"type"`
	Value          decimal.Decimal  `json:"value"`
	Discount       decimal.Decimal  `json:"discount"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount"`
	MaxDiscount    *decimal.Decimal `json:"maxDiscount"`
	Category       *string          `json:"category"`
}

// ValidationResult 校验结果
type ValidationResult struct {
	Valid  bool       `json:"valid"`
	Coupon CouponView `json:"coupon"`
}

// CreateCouponRequest 创建优惠券
type CreateCouponRequest struct {
	Code           string
	Type           string
	Value          decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxDiscount    *decimal.Decimal
	Category       *string
	UsageLimit     *int
	UserLimit      *int
	ValidFrom      *time.Time
	ValidUntil     *time.Time
}

// RedeemRequest 下单后核销
type RedeemRequest struct {
	Code    string
	UserID  string
	OrderID string
}

// RedeemResult 核销结果
type RedeemResult struct {
	Coupon    CouponView         `json:"coupon"`
	Usage     *model.CouponUsage `json:"usage"`
	AmountDue decimal.Decimal    `json:"amountDue"`
}

type CouponService interface {
	// Validate 只读校验，不修改使用次数
	Validate(ctx context.Context, req ValidateRequest) (*ValidationResult, error)
	Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error)
	CreateCoupon(ctx context.Context, req CreateCouponRequest) (*model.Coupon, error)
}

type couponService struct {
	repo     repository.CouponRepository
	orders   OrderReader
	products ProductReader
	shipping *shippingService.Calculator
	events   events.Dispatcher
	metrics  *metrics.MetricsCollector
	now      func() time.Time
}

func NewCouponService(
	repo repository.CouponRepository,
	orders OrderReader,
	products ProductReader,
	shipping *shippingService.Calculator,
	dispatcher events.Dispatcher,
	collector *metrics.MetricsCollector,
) CouponService {
	if dispatcher == nil {
		dispatcher = events.NopDispatcher{}
	}
	return &couponService{
		repo:     repo,
		orders:   orders,
		products: products,
		shipping: shipping,
		events:   dispatcher,
		metrics:  collector,
		now:      time.Now,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *couponService) Validate(ctx context.Context, req ValidateRequest) (*ValidationResult, error) {
	result, _, err := s.validate(ctx, req)
	switch {
	case err == nil:
		s.metrics.CouponValidated("valid")
	case isRejection(err):
		s.metrics.CouponValidated("rejected")
	default:
		s.metrics.CouponValidated("error")
	}
	return result, err
}

func isRejection(err error) bool {
	for _, target := range []error{
		ErrCouponNotFound, ErrCouponInactive, ErrCouponNotYetValid, ErrCouponExpired,
		ErrUsageLimitReached, ErrUserLimitReached, ErrMinOrderAmount, ErrCategoryMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *couponService) validate(ctx context.Context, req ValidateRequest) (*ValidationResult, *model.Coupon, error) {
	// 1. 券码存在
	coupon, err := s.repo.GetByCode(ctx, normalizeCode(req.Code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCouponNotFound
		}
		return nil, nil, err
	}

	// 2. 已启用
	if !coupon.IsActive {
		return nil, nil, ErrCouponInactive
	}

	// 3. 4. 有效期
	now := s.now()
	if now.Before(coupon.ValidFrom) {
		return nil, nil, ErrCouponNotYetValid
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return nil, nil, ErrCouponExpired
	}

	// 5. 全局次数
	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return nil, nil, ErrUsageLimitReached
	}

	// 6. 每人次数
	if coupon.UserLimit != nil {
		used, err := s.repo.CountUserUsages(ctx, coupon.ID, req.UserID)
		if err != nil {
			return nil, nil, err
		}
		if used >= int64(*coupon.UserLimit) {
			return nil, nil, ErrUserLimitReached
		}
	}

	// 7. 最低消费
	if coupon.MinOrderAmount != nil && req.OrderAmount.LessThan(*coupon.MinOrderAmount) {
		return nil, nil, fmt.Errorf("%w, must be at least $%s", ErrMinOrderAmount, money.Format(*coupon.MinOrderAmount))
	}

	// 8. 适用类目
	if coupon.Category != nil && *coupon.Category != "" {
		ok, err := s.matchCategory(ctx, *coupon.Category, req.Items)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, fmt.Errorf("%w: coupon only applies to %s products", ErrCategoryMismatch, *coupon.Category)
		}
	}

	discount := s.discount(coupon, req)
	return &ValidationResult{Valid: true, Coupon: view(coupon, discount)}, coupon, nil
}

// matchCategory 任一明细的类目包含券类目即可（不区分大小写）
func (s *couponService) matchCategory(ctx context.Context, category string, items []Item) (bool, error) {
	want := strings.ToLower(category)

	var unresolved []string
	for _, item := range items {
		if item.Category != "" {
			if strings.Contains(strings.ToLower(item.Category), want) {
				return true, nil
			}
			continue
		}
		if item.ProductID != "" {
			unresolved = append(unresolved, item.ProductID)
		}
	}
	if len(unresolved) == 0 || s.products == nil {
		return false, nil
	}

	products, err := s.products.GetByIDs(ctx, unresolved)
	if err != nil {
		return false, err
	}
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Category), want) {
			return true, nil
		}
	}
	return false, nil
}

func (s *couponService) discount(coupon *model.Coupon, req ValidateRequest) decimal.Decimal {
	var d decimal.Decimal
	switch coupon.Type {
	case model.TypePercentage:
		d = req.OrderAmount.Mul(coupon.Value).Div(decimal.NewFromInt(100))
		if coupon.MaxDiscount != nil {
			d = money.Min(d, *coupon.MaxDiscount)
		}
	case model.TypeFixedAmount:
		d = money.Min(coupon.Value, req.OrderAmount)
	case model.TypeFreeShipping:
		// 与订单运费同一来源
		items := 0
		for _, item := range req.Items {
			if item.Quantity > 0 {
				items += item.Quantity
			} else {
				items++
			}
		}
		d = s.shipping.Quote(req.Region, items, req.OrderAmount).Cost
	}
	if d.IsNegative() {
		d = money.Zero
	}
	return money.Round(d)
}

func view(c *model.Coupon, discount decimal.Decimal) CouponView {
	return CouponView{
		ID:             c.ID,
		Code:           c.Code,
		Type:           c.Type,
		Value:          c.Value,
		Discount:       discount,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
		Category:       c.Category,
	}
}

func (s *couponService) Redeem(ctx context.Context, req RedeemRequest) (*RedeemResult, error) {
	// 1. 订单必须属于当前用户，且仍待支付
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
	if order.Status != orderModel.OrderStatusPending || order.CouponID != nil {
		return nil, ErrOrderNotRedeemable
	}

	// 2. 以订单实际内容重新校验
	vr := ValidateRequest{
		Code:        req.Code,
		UserID:      req.UserID,
		OrderAmount: order.Total,
		Region:      order.CustomerState,
	}
	for _, item := range order.Items {
		vr.Items = append(vr.Items, Item{ProductID: item.ProductID, Category: item.Category, Quantity: item.Quantity})
	}
	result, coupon, err := s.validate(ctx, vr)
	if err != nil {
		return nil, err
	}
	discount := result.Coupon.Discount

	// 3. 事务内占用次数并写入订单
	usage, err := s.repo.Redeem(ctx, repository.Redemption{
		CouponID:  coupon.ID,
		UserID:    req.UserID,
		OrderID:   order.ID,
		Discount:  discount,
		UsedAt:    s.now(),
		UserLimit: coupon.UserLimit,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsageExhausted):
			return nil, ErrUsageLimitReached
		case errors.Is(err, repository.ErrUserUsageExhausted):
			return nil, ErrUserLimitReached
		case errors.Is(err, repository.ErrOrderNotRedeemable):
			return nil, ErrOrderNotRedeemable
		}
		return nil, err
	}

	order.DiscountAmount = discount
	s.metrics.CouponRedeemed()
	s.events.Dispatch(events.New(events.TypeCouponRedeemed, coupon.ID, req.UserID, map[string]interface{}{
		"orderId":  order.ID,
		"code":     coupon.Code,
		"discount": money.Format(discount),
	}))
	logger.Log.Info("coupon redeemed",
		zap.String("code", coupon.Code),
		zap.String("order_id", order.ID),
		zap.String("discount", money.Format(discount)),
	)

	return &RedeemResult{Coupon: result.Coupon, Usage: usage, AmountDue: order.AmountDue()}, nil
}

func (s *couponService) CreateCoupon(ctx context.Context, req CreateCouponRequest) (*model.Coupon, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidCoupon)
	}

	switch req.Type {
	case model.TypePercentage:
		if !req.Value.IsPositive() || req.Value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%w: percentage must be in (0, 100]", ErrInvalidCoupon)
		}
	case model.TypeFixedAmount:
		if !req.Value.IsPositive() {
			return nil, fmt.Errorf("%w: value must be positive", ErrInvalidCoupon)
		}
	case model.TypeFreeShipping:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidCoupon, req.Type)
	}

	validFrom := s.now()
	if req.ValidFrom != nil {
		validFrom = *req.ValidFrom
	}
	if req.ValidUntil != nil && !req.ValidUntil.After(validFrom) {
		return nil, fmt.Errorf("%w: validUntil must be after validFrom", ErrInvalidCoupon)
	}

	coupon := &model.Coupon{
		Code:           code,
		Type:           req.Type,
		Value:          req.Value,
		MinOrderAmount: req.MinOrderAmount,
		MaxDiscount:    req.MaxDiscount,
		Category:       req.Category,
		UsageLimit:     req.UsageLimit,
		UserLimit:      req.UserLimit,
		IsActive:       true,
		ValidFrom:      validFrom,
		ValidUntil:     req.ValidUntil,
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCouponExists
		}
		return nil, err
	}
	return coupon, nil
}
