package handler

import (
	"errors"
	"marketplace/internal/domain/coupon/service"
	"marketplace/internal/pkg/middleware"
	"marketplace/pkg/logger"
	"marketplace/pkg/response"
	"marketplace/pkg/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CouponHandler struct {
	service service.CouponService
}

func NewCouponHandler(service service.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

type ValidateItemInput struct {
	ID       string `json:"id" binding:"omitempty,uuid"`
	Category string `json:"category"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1"`
}

type ValidateCouponInput struct {
	Code        string              `json:"code" binding:"required,max=50"`
	OrderAmount decimal.Decimal     `json:"orderAmount"`
	Items       []ValidateItemInput `json:"items" binding:"omitempty,dive"`
	Region      string              `json:"region"`
}

// ValidateCoupon 校验优惠券并计算可抵扣金额，不占用次数
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	var input ValidateCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if input.OrderAmount.IsNegative() {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "orderAmount must not be negative")
		return
	}

	req := service.ValidateRequest{
		Code:        input.Code,
		UserID:      middleware.CurrentUserID(c),
		OrderAmount: input.OrderAmount,
		Region:      input.Region,
	}
	for _, item := range input.Items {
		req.Items = append(req.Items, service.Item{ProductID: item.ID, Category: item.Category, Quantity: item.Quantity})
	}

	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Success(c, result)
}

type CreateCouponInput struct {
	Code           string           `json:"code" binding:"required,max=50"`
	Type           string           `json:"type" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT FREE_SHIPPING"`
	Value          decimal.Decimal  `json:"value"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount"`
	MaxDiscount    *decimal.Decimal `json:"maxDiscount"`
	Category       *string          `json:"category"`
	UsageLimit     *int             `json:"usageLimit" binding:"omitempty,min=1"`
	UserLimit      *int             `json:"userLimit" binding:"omitempty,min=1"`
	ValidFrom      *time.Time       `json:"validFrom"`
	ValidUntil     *time.Time       `json:"validUntil"`
}

// CreateCoupon 管理员创建优惠券
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var input CreateCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	coupon, err := h.service.CreateCoupon(c.Request.Context(), service.CreateCouponRequest{
		Code:           input.Code,
		Type:           input.Type,
		Value:          input.Value,
		MinOrderAmount: input.MinOrderAmount,
		MaxDiscount:    input.MaxDiscount,
		Category:       input.Category,
		UsageLimit:     input.UsageLimit,
		UserLimit:      input.UserLimit,
		ValidFrom:      input.ValidFrom,
		ValidUntil:     input.ValidUntil,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Created(c, coupon)
}

type RedeemCouponInput struct {
	Code    string `json:"code" binding:"required,max=50"`
	OrderID string `json:"orderId" binding:"required"`
}

// RedeemCoupon 订单确认前核销优惠券
func (h *CouponHandler) RedeemCoupon(c *gin.Context) {
	var input RedeemCouponInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if !utils.IsUUID(input.OrderID) {
		h.handleError(c, service.ErrOrderNotFound)
		return
	}

	result, err := h.service.Redeem(c.Request.Context(), service.RedeemRequest{
		Code:    input.Code,
		UserID:  middleware.CurrentUserID(c),
		OrderID: input.OrderID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *CouponHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		response.Error(c, http.StatusNotFound, response.ErrCouponNotFound, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, err.Error())
	case errors.Is(err, service.ErrCouponExists):
		response.Error(c, http.StatusConflict, response.ErrCouponExists, err.Error())
	case errors.Is(err, service.ErrOrderNotRedeemable):
		response.Error(c, http.StatusConflict, response.ErrCouponRedeemed, err.Error())
	case errors.Is(err, service.ErrInvalidCoupon):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	case errors.Is(err, service.ErrCouponInactive),
		errors.Is(err, service.ErrCouponNotYetValid),
		errors.Is(err, service.ErrCouponExpired),
		errors.Is(err, service.ErrUsageLimitReached),
		errors.Is(err, service.ErrUserLimitReached),
		errors.Is(err, service.ErrMinOrderAmount),
		errors.Is(err, service.ErrCategoryMismatch):
		response.Error(c, http.StatusBadRequest, response.ErrCouponInvalid, err.Error())
	default:
		logger.Log.Error("coupon request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c)
	}
}
