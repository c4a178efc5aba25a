package repository

import (
	"context"
	"marketplace/internal/domain/order/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	// CreateWithPayouts 在同一事务内写入订单、明细与卖家结算单
	CreateWithPayouts(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	ListPayouts(ctx context.Context, sellerID string, offset, limit int) ([]model.SellerPayout, int64, error)
	SummarizePayouts(ctx context.Context, sellerID string) (*model.PayoutSummary, error)
	UpdatePayoutStatus(ctx context.Context, id, status string, paidAt *time.Time) (*model.SellerPayout, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateWithPayouts(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return err
		}

		for i := range order.Items {
			order.Items[i].OrderID = order.ID
		}
		for i := range order.SellerPayouts {
			order.SellerPayouts[i].OrderID = order.ID
		}

		if len(order.Items) > 0 {
			if err := tx.Create(&order.Items).Error; err != nil {
				return err
			}
		}
		if len(order.SellerPayouts) > 0 {
			if err := tx.Create(&order.SellerPayouts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("SellerPayouts").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// sellerScope 卖家为空时查询全部（管理员视角）
func sellerScope(sellerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if sellerID == "" {
			return db
		}
		return db.Where("seller_id = ?", sellerID)
	}
}

func (r *orderRepository) ListPayouts(ctx context.Context, sellerID string, offset, limit int) ([]model.SellerPayout, int64, error) {
	var payouts []model.SellerPayout
	var total int64

	db := r.db.WithContext(ctx).Model(&model.SellerPayout{}).Scopes(sellerScope(sellerID))
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payouts).Error; err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}

func (r *orderRepository) SummarizePayouts(ctx context.Context, sellerID string) (*model.PayoutSummary, error) {
	var summary model.PayoutSummary
	err := r.db.WithContext(ctx).
		Model(&model.SellerPayout{}).
		Scopes(sellerScope(sellerID)).
		Select(`COUNT(*) AS count,
			COALESCE(SUM(amount), 0) AS total_amount,
			COALESCE(SUM(commission), 0) AS total_commission,
			COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS pending_amount,
			COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS paid_amount`,
			model.PayoutStatusPending, model.PayoutStatusPaid).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// UpdatePayoutStatus 更新结算状态，结算单不存在返回 gorm.ErrRecordNotFound
func (r *orderRepository) UpdatePayoutStatus(ctx context.Context, id, status string, paidAt *time.Time) (*model.SellerPayout, error) {
	var payout model.SellerPayout
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&payout).Error; err != nil {
			return err
		}
		payout.Status = status
		payout.PaidAt = paidAt
		return tx.Model(&payout).Select("status", "paid_at").Updates(&payout).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}
