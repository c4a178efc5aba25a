package handler

import (
	"errors"
	"io"
	"marketplace/internal/domain/payment/service"
	"marketplace/internal/pkg/middleware"
	"marketplace/pkg/logger"
	"marketplace/pkg/response"
	"marketplace/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 回调报文上限
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	service service.PaymentService
}

func NewPaymentHandler(s service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: s}
}

type CreatePixInput struct {
	OrderID  string `json:"orderId" binding:"required"`
	Provider string `json:"provider" binding:"omitempty,oneof=mercadopago stripe simulated"`
}

// CreatePix 为待支付订单生成 PIX 二维码
func (h *PaymentHandler) CreatePix(c *gin.Context) {
	var input CreatePixInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if !utils.IsUUID(input.OrderID) {
		h.handleError(c, service.ErrOrderNotFound)
		return
	}

	payment, err := h.service.CreatePix(c.Request.Context(), service.CreatePixRequest{
		OrderID:  input.OrderID,
		UserID:   middleware.CurrentUserID(c),
		Provider: input.Provider,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Created(c, payment)
}

// CheckPayment 客户端轮询支付状态
func (h *PaymentHandler) CheckPayment(c *gin.Context) {
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "paymentId is required")
		return
	}
	if !utils.IsUUID(paymentID) {
		h.handleError(c, service.ErrPaymentNotFound)
		return
	}

	payment, err := h.service.CheckPayment(c.Request.Context(), paymentID, middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Success(c, payment)
}

// Webhook 渠道异步通知
// 无论处理结果如何都返回 200，避免渠道对已知失败无限重试；失败记录日志
func (h *PaymentHandler) Webhook(c *gin.Context) {
	provider := c.Param("provider")
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		logger.Log.Warn("read webhook body failed", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), provider, c.Request, body); err != nil {
		logger.Log.Warn("webhook not applied",
			zap.String("provider", provider),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// SimulatePayment 非生产环境模拟到账
func (h *PaymentHandler) SimulatePayment(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsUUID(id) {
		h.handleError(c, service.ErrPaymentNotFound)
		return
	}

	payment, err := h.service.SimulatePayment(c.Request.Context(), id, middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.Success(c, payment)
}

func (h *PaymentHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		response.Error(c, http.StatusNotFound, response.ErrPaymentNotFound, err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, err.Error())
	case errors.Is(err, service.ErrOrderNotPayable):
		response.Error(c, http.StatusConflict, response.ErrOrderState, err.Error())
	case errors.Is(err, service.ErrPaymentNotPending):
		response.Error(c, http.StatusConflict, response.ErrPaymentState, err.Error())
	case errors.Is(err, service.ErrProviderUnsupported):
		response.Error(c, http.StatusBadRequest, response.ErrProviderUnsupported, err.Error())
	case errors.Is(err, service.ErrProviderUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.ErrProviderUnavailable, service.ErrProviderUnavailable.Error())
	default:
		logger.Log.Error("payment request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c)
	}
}
