package handler

import (
	"errors"
	"marketplace/internal/domain/user/service"
	"marketplace/internal/pkg/middleware"
	"marketplace/internal/pkg/otp"
	"marketplace/pkg/logger"
	"marketplace/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type SendOTPInput struct {
	Mobile string `json:"mobile" binding:"required,min=8,max=20"`
}

type LoginInput struct {
	Mobile string `json:"mobile" binding:"required,min=8,max=20"`
	Code   string `json:"code" binding:"required,len=6"`
}

// SendOTP 发送验证码
func (h *UserHandler) SendOTP(c *gin.Context) {
	var input SendOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	if err := h.service.SendOTP(c.Request.Context(), input.Mobile); err != nil {
		if errors.Is(err, otp.ErrTooFrequent) {
			response.Error(c, http.StatusTooManyRequests, response.ErrTooManyRequests, err.Error())
			return
		}
		logger.Log.Error("send otp failed", zap.Error(err))
		response.Internal(c)
		return
	}

	response.Success(c, gin.H{"sent": true})
}

// Login 验证码登录（不存在则注册）
func (h *UserHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.LoginOrRegister(c.Request.Context(), input.Mobile, input.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode):
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, err.Error())
		case errors.Is(err, service.ErrAccountBanned), errors.Is(err, service.ErrAccountDeleted):
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, err.Error())
		default:
			logger.Log.Error("login failed", zap.Error(err))
			response.Internal(c)
		}
		return
	}

	response.Success(c, result)
}

// Me 当前登录用户
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrUserNotFound, "User not found")
			return
		}
		logger.Log.Error("get user failed", zap.Error(err))
		response.Internal(c)
		return
	}
	response.Success(c, user)
}
