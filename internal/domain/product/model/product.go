package model

import (
	"marketplace/pkg/model"

	"github.com/shopspring/decimal"
)

// Product 商品，UserID 为所属卖家
type Product struct {
	model.BaseModel
	UserID   *string         `gorm:"type:uuid;index" json:"userId"`
	Name     string          `gorm:"size:200;not null" json:"name"`
	Category string          `gorm:"size:100;index" json:"category"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock    int             `gorm:"not null;default:0" json:"stock"`
}

// SellerID 所属卖家，未绑定卖家时返回空串
func (p *Product) SellerID() string {
	if p.UserID == nil {
		return ""
	}
	return *p.UserID
}
