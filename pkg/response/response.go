package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
// 失败时 Error 与 Message 相同，方便前端直接读取 error 字段
type Response struct {
	Code    int         `json:"code"`            // 业务码
	Message string      `json:"message"`         // 提示信息
	Error   string      `json:"error,omitempty"` // 错误信息（仅失败时）
	Data    interface{} `json:"data"`            // 数据
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应 (HTTP 201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    CodeSuccess,
		Message: "created",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: msg,
		Error:   msg,
		Data:    nil,
	})
}

// Abort 错误响应并终止后续中间件
func Abort(c *gin.Context, httpCode int, errCode int, msg string) {
	Error(c, httpCode, errCode, msg)
	c.Abort()
}

// Internal 内部错误：详细错误只记录在服务端日志，对外返回通用信息
func Internal(c *gin.Context) {
	Error(c, http.StatusInternalServerError, ErrServerInternal, "Internal server error")
}
