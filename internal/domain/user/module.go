package user

import (
	"marketplace/internal/domain/user/handler"
	"marketplace/internal/domain/user/repository"
	"marketplace/internal/domain/user/service"
	"marketplace/internal/pkg/middleware"
	"marketplace/internal/pkg/otp"
	"marketplace/internal/pkg/registry"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	// 用户模块优先级最高，因为其他模块可能依赖它
	return 1
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	fixedCode := ""
	if !ctx.Config.App.IsProduction() {
		fixedCode = ctx.Config.App.TestOTPCode
	}
	userRepo := repository.NewUserRepository(ctx.DB)
	otpService := otp.NewOTPService(ctx.Redis, fixedCode)
	userService := service.NewUserService(userRepo, otpService)
	userHandler := handler.NewUserHandler(userService)

	// 2. 路由注册
	setupRoutes(ctx, userHandler)

	return nil
}

func setupRoutes(ctx *registry.ModuleContext, h *handler.UserHandler) {
	r := ctx.Router

	// 公开路由，登录类接口限流
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/otp", middleware.RateLimitMiddleware(ctx.Limiter, "/auth/otp", ctx.Metrics), h.SendOTP)
		authGroup.POST("/login", middleware.RateLimitMiddleware(ctx.Limiter, "/auth/login", ctx.Metrics), h.Login)
	}

	// 受保护的路由
	userGroup := r.Group("/users")
	userGroup.Use(middleware.AuthMiddleware())
	{
		userGroup.GET("/me", h.Me)
	}
}
