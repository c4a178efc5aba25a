package model

import (
	"time"

	baseModel "marketplace/pkg/model"
)

// 角色
const (
	RoleCustomer = "CUSTOMER"
	RoleSeller   = "SELLER"
	RoleAdmin    = "ADMIN"
)

// 状态
const (
	StatusNormal  = 1
	StatusBanned  = 2
	StatusDeleted = 3
)

// User 用户模型（买家、卖家、管理员共用）
type User struct {
	baseModel.BaseModel
	Mobile      string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"mobile"`
	Name        string     `gorm:"type:varchar(100)" json:"name"`
	Email       string     `gorm:"type:varchar(255)" json:"email"`
	Role        string     `gorm:"type:varchar(20);not null;default:'CUSTOMER'" json:"role"`
	Status      int        `gorm:"not null;default:1" json:"status"`
	BannedUntil *time.Time `json:"bannedUntil,omitempty"`
}
