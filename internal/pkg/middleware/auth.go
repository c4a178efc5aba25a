package middleware

import (
	"net/http"
	"strings"

	"marketplace/internal/domain/user/model"
	"marketplace/pkg/response"
	"marketplace/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Authorization header is required")
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil || claims.UserID == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			return
		}

		// 将 userID 和 role 存入上下文
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)

		c.Next()
	}
}

// RequireRole 角色校验中间件，需放在 AuthMiddleware 之后
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, response.ErrNoPermission, "Unauthorized")
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, response.ErrNoPermission, "Insufficient permission")
	}
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin)
}

// CurrentUserID 当前登录用户 ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// CurrentRole 当前登录用户角色
func CurrentRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// IsAdmin 当前用户是否管理员
func IsAdmin(c *gin.Context) bool {
	return CurrentRole(c) == model.RoleAdmin
}
