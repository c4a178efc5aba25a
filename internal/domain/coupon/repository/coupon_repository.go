package repository

import (
	"context"
	"errors"
	"marketplace/internal/domain/coupon/model"
	orderModel "marketplace/internal/domain/order/model"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUsageExhausted 核销时全局次数已用完（并发下被其他请求抢先）
	ErrUsageExhausted = errors.New("coupon usage exhausted")
	// ErrUserUsageExhausted 核销时该用户的次数已用完
	ErrUserUsageExhausted = errors.New("coupon usage exhausted for user")
	// ErrOrderNotRedeemable 订单已不是待支付状态或已使用过优惠券
	ErrOrderNotRedeemable = errors.New("order cannot take a coupon")
)

// Redemption 一次核销
type Redemption struct {
	CouponID  string
	UserID    string
	OrderID   string
	Discount  decimal.Decimal
	UsedAt    time.Time
	UserLimit *int // 每个用户的核销上限，nil 表示不限
}

type CouponRepository interface {
	Create(ctx context.Context, coupon *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	CountUserUsages(ctx context.Context, couponID, userID string) (int64, error)
	// Redeem 同一事务内：占用次数、写核销记录、把优惠写入订单
	Redeem(ctx context.Context, r Redemption) (*model.CouponUsage, error)
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// GetByCode 券码统一按大写存储
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *couponRepository) CountUserUsages(ctx context.Context, couponID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

func (r *couponRepository) Redeem(ctx context.Context, red Redemption) (*model.CouponUsage, error) {
	usage := &model.CouponUsage{
		CouponID: red.CouponID,
		UserID:   red.UserID,
		OrderID:  red.OrderID,
		Discount: red.Discount,
		UsedAt:   red.UsedAt,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 0. 有用户上限时锁住券行再计数，同一用户的并发核销在此串行
		if red.UserLimit != nil {
			var locked model.Coupon
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id = ?", red.CouponID).
				First(&locked).Error; err != nil {
				return err
			}
			var used int64
			if err := tx.Model(&model.CouponUsage{}).
				Where("coupon_id = ? AND user_id = ?", red.CouponID, red.UserID).
				Count(&used).Error; err != nil {
				return err
			}
			if used >= int64(*red.UserLimit) {
				return ErrUserUsageExhausted
			}
		}

		// 1. 乐观占用全局次数
		result := tx.Model(&model.Coupon{}).
			Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", red.CouponID).
			UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUsageExhausted
		}

		// 2. 核销记录，order_id 唯一
		if err := tx.Create(usage).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrOrderNotRedeemable
			}
			return err
		}

		// 3. 仅待支付且未用券的订单可以写入优惠
		result = tx.Model(&orderModel.Order{}).
			Where("id = ? AND user_id = ? AND status = ? AND coupon_id IS NULL",
				red.OrderID, red.UserID, orderModel.OrderStatusPending).
			Updates(map[string]interface{}{
				"coupon_id":       red.CouponID,
				"discount_amount": red.Discount,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOrderNotRedeemable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}
