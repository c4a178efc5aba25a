package handler

import (
	"errors"
	"marketplace/internal/domain/order/service"
	userModel "marketplace/internal/domain/user/model"
	"marketplace/internal/pkg/middleware"
	"marketplace/pkg/logger"
	"marketplace/pkg/response"
	"marketplace/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(service service.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

type CustomerInfoInput struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"omitempty,max=30"`
	Address string `json:"address" binding:"required,max=300"`
	State   string `json:"state" binding:"omitempty,max=50"`
}

type OrderItemInput struct {
	ID       string           `json:"id" binding:"required,uuid"`
	Quantity int              `json:"quantity" binding:"required,min=1"`
	Price    *decimal.Decimal `json:"price"`
}

type CreateOrderInput struct {
	CustomerInfo   CustomerInfoInput `json:"customerInfo"`
	Items          []OrderItemInput  `json:"items" binding:"required,min=1,dive"`
	PaymentMethod  string            `json:"paymentMethod" binding:"required,max=30"`
	CommissionRate *decimal.Decimal  `json:"commissionRate"`
}

// CreateOrder 下单并按卖家拆分结算单
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	req := service.CreateOrderRequest{
		UserID: middleware.CurrentUserID(c),
		Role:   middleware.CurrentRole(c),
		Customer: service.CustomerInfo{
			Name:    input.CustomerInfo.Name,
			Email:   input.CustomerInfo.Email,
			Phone:   input.CustomerInfo.Phone,
			Address: input.CustomerInfo.Address,
			State:   input.CustomerInfo.State,
		},
		PaymentMethod:  input.PaymentMethod,
		CommissionRate: input.CommissionRate,
	}
	for _, item := range input.Items {
		req.Items = append(req.Items, service.ItemRequest{
			ProductID: item.ID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			response.Error(c, http.StatusNotFound, response.ErrProductNotFound, err.Error())
		case errors.Is(err, service.ErrSellerMissing):
			response.Error(c, http.StatusBadRequest, response.ErrSellerMissing, err.Error())
		case errors.Is(err, service.ErrPriceChanged):
			response.Error(c, http.StatusConflict, response.ErrOrderState, err.Error())
		case errors.Is(err, service.ErrEmptyItems),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrInvalidPrice),
			errors.Is(err, service.ErrInsufficientStock),
			errors.Is(err, service.ErrInvalidCommission):
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		default:
			logger.Log.Error("create order failed", zap.String("user_id", req.UserID), zap.Error(err))
			response.Internal(c)
		}
		return
	}

	response.Created(c, order)
}

// GetOrder 订单详情（本人或管理员）
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsUUID(id) {
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "Order not found")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), id, middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "Order not found")
		case errors.Is(err, service.ErrOrderForbidden):
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Insufficient permission")
		default:
			logger.Log.Error("get order failed", zap.Error(err))
			response.Internal(c)
		}
		return
	}
	response.Success(c, order)
}

// ListPayouts 卖家查看自己的结算单，管理员查看全部
func (h *OrderHandler) ListPayouts(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	sellerID := middleware.CurrentUserID(c)
	if middleware.CurrentRole(c) == userModel.RoleAdmin {
		sellerID = c.Query("sellerId")
		if sellerID != "" && !utils.IsUUID(sellerID) {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "sellerId must be a UUID")
			return
		}
	}

	list, err := h.service.ListPayouts(c.Request.Context(), sellerID, p)
	if err != nil {
		logger.Log.Error("list payouts failed", zap.Error(err))
		response.Internal(c)
		return
	}
	response.Success(c, list)
}

type UpdatePayoutInput struct {
	PayoutID string `json:"payoutId" binding:"required"`
	Status   string `json:"status" binding:"required,oneof=PENDING PAID"`
}

// UpdatePayout 管理员更新结算状态
func (h *OrderHandler) UpdatePayout(c *gin.Context) {
	var input UpdatePayoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if !utils.IsUUID(input.PayoutID) {
		response.Error(c, http.StatusNotFound, response.ErrPayoutNotFound, "Payout not found")
		return
	}

	payout, err := h.service.UpdatePayoutStatus(c.Request.Context(), input.PayoutID, input.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPayoutNotFound):
			response.Error(c, http.StatusNotFound, response.ErrPayoutNotFound, "Payout not found")
		case errors.Is(err, service.ErrInvalidPayoutStatus):
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		default:
			logger.Log.Error("update payout failed", zap.String("payout_id", input.PayoutID), zap.Error(err))
			response.Internal(c)
		}
		return
	}

	logger.Log.Info("payout updated",
		zap.String("payout_id", payout.ID),
		zap.String("status", payout.Status),
		zap.String("admin_id", middleware.CurrentUserID(c)),
	)
	response.Success(c, payout)
}

