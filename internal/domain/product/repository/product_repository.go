package repository

import (
	"context"
	"marketplace/internal/domain/product/model"

	"gorm.io/gorm"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*model.Product, error)
	// GetByIDs 批量查询，返回 id -> 商品，不存在的 id 不会出现在结果中
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Product, error) {
	result := make(map[string]*model.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var products []*model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}
