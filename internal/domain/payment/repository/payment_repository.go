package repository

import (
	"context"
	orderModel "marketplace/internal/domain/order/model"
	"marketplace/internal/domain/payment/model"
	productModel "marketplace/internal/domain/product/model"
	"time"

	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.PixPayment) error
	GetByID(ctx context.Context, id string) (*model.PixPayment, error)
	GetByExternalID(ctx context.Context, provider, externalID string) (*model.PixPayment, error)
	// FindActiveByOrder 订单下未过期的待支付记录
	FindActiveByOrder(ctx context.Context, orderID string, now time.Time) (*model.PixPayment, error)
	// MarkExpired PENDING -> EXPIRED，返回是否发生了状态变化
	MarkExpired(ctx context.Context, payment *model.PixPayment) (bool, error)
	// ConfirmPayment PENDING -> PAID，并确认订单、扣减库存，返回是否发生了状态变化
	ConfirmPayment(ctx context.Context, payment *model.PixPayment, paidAt time.Time) (bool, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.PixPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*model.PixPayment, error) {
	var payment model.PixPayment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByExternalID(ctx context.Context, provider, externalID string) (*model.PixPayment, error) {
	var payment model.PixPayment
	err := r.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindActiveByOrder(ctx context.Context, orderID string, now time.Time) (*model.PixPayment, error) {
	var payment model.PixPayment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ? AND expires_at > ?", orderID, model.StatusPending, now).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkExpired 条件更新，重复调用不会产生第二次变化
func (r *paymentRepository) MarkExpired(ctx context.Context, payment *model.PixPayment) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.PixPayment{}).
			Where("id = ? AND status = ?", payment.ID, model.StatusPending).
			Update("status", model.StatusExpired)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		applied = true

		// 订单仍待支付时同步支付状态，订单本身保持 PENDING 可重新发起支付
		return tx.Model(&orderModel.Order{}).
			Where("id = ? AND status = ? AND payment_status = ?",
				payment.OrderID, orderModel.OrderStatusPending, orderModel.PaymentStatusPending).
			Update("payment_status", orderModel.PaymentStatusExpired).Error
	})
	return applied, err
}

// ConfirmPayment 同一事务内完成：
//  1. 支付记录 PENDING -> PAID，影响 0 行说明已处理过，直接返回
//  2. 订单 PENDING -> CONFIRMED/PAID
//  3. 仅当订单确实发生转换时扣减库存，保证每个订单只扣一次
func (r *paymentRepository) ConfirmPayment(ctx context.Context, payment *model.PixPayment, paidAt time.Time) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.PixPayment{}).
			Where("id = ? AND status = ?", payment.ID, model.StatusPending).
			Updates(map[string]interface{}{
				"status":  model.StatusPaid,
				"paid_at": paidAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		applied = true

		result = tx.Model(&orderModel.Order{}).
			Where("id = ? AND status = ?", payment.OrderID, orderModel.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":         orderModel.OrderStatusConfirmed,
				"payment_status": orderModel.PaymentStatusPaid,
				"confirmed_at":   paidAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var items []orderModel.OrderItem
		if err := tx.Where("order_id = ?", payment.OrderID).Find(&items).Error; err != nil {
			return err
		}
		for _, item := range items {
			err := tx.Model(&productModel.Product{}).
				Where("id = ?", item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
