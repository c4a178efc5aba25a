package repository

import (
	"context"
	"fmt"
	"marketplace/internal/domain/admin/model"
	couponModel "marketplace/internal/domain/coupon/model"
	orderModel "marketplace/internal/domain/order/model"
	paymentModel "marketplace/internal/domain/payment/model"
	productModel "marketplace/internal/domain/product/model"
	userModel "marketplace/internal/domain/user/model"

	"gorm.io/gorm"
)

// accessor 按页读取某一类实体
type accessor func(ctx context.Context, db *gorm.DB, offset, limit int) (interface{}, int64, error)

// accessors 静态注册表，每个实体类型对应一个强类型读取函数
var accessors = map[model.EntityKind]accessor{
	model.KindOrders:        pageOf[orderModel.Order]("created_at DESC"),
	model.KindOrderItems:    pageOf[orderModel.OrderItem]("created_at DESC"),
	model.KindSellerPayouts: pageOf[orderModel.SellerPayout]("created_at DESC"),
	model.KindCoupons:       pageOf[couponModel.Coupon]("created_at DESC"),
	model.KindCouponUsages:  pageOf[couponModel.CouponUsage]("used_at DESC"),
	model.KindPixPayments:   pageOf[paymentModel.PixPayment]("created_at DESC"),
	model.KindProducts:      pageOf[productModel.Product]("created_at DESC"),
	model.KindUsers:         pageOf[userModel.User]("created_at DESC"),
}

func pageOf[T any](order string) accessor {
	return func(ctx context.Context, db *gorm.DB, offset, limit int) (interface{}, int64, error) {
		var rows []T
		var total int64

		q := db.WithContext(ctx).Model(new(T))
		if err := q.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		if err := q.Order(order).Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
			return nil, 0, err
		}
		if rows == nil {
			rows = []T{}
		}
		return rows, total, nil
	}
}

type ExportRepository interface {
	List(ctx context.Context, kind model.EntityKind, offset, limit int) (interface{}, int64, error)
}

type exportRepository struct {
	db *gorm.DB
}

func NewExportRepository(db *gorm.DB) ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) List(ctx context.Context, kind model.EntityKind, offset, limit int) (interface{}, int64, error) {
	fn, ok := accessors[kind]
	if !ok {
		return nil, 0, fmt.Errorf("export accessor missing for %s", kind)
	}
	return fn(ctx, r.db, offset, limit)
}
