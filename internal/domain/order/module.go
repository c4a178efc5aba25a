package order

import (
	"marketplace/internal/domain/order/handler"
	"marketplace/internal/domain/order/repository"
	"marketplace/internal/domain/order/service"
	productRepo "marketplace/internal/domain/product/repository"
	shippingService "marketplace/internal/domain/shipping/service"
	userModel "marketplace/internal/domain/user/model"
	"marketplace/internal/pkg/middleware"
	"marketplace/internal/pkg/registry"

	"github.com/shopspring/decimal"
)

// OrderModule 订单与卖家结算模块
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	return 10
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	calculator, err := shippingService.NewCalculator(ctx.Config.Shipping)
	if err != nil {
		return err
	}
	oRepo := repository.NewOrderRepository(ctx.DB)
	pRepo := productRepo.NewProductRepository(ctx.DB)
	oService := service.NewOrderService(
		oRepo,
		pRepo,
		calculator,
		ctx.Events,
		ctx.Metrics,
		decimal.NewFromFloat(ctx.Config.Commission.DefaultRate),
	)
	oHandler := handler.NewOrderHandler(oService)

	// 2. 路由注册
	setupRoutes(ctx, oHandler)

	return nil
}

func setupRoutes(ctx *registry.ModuleContext, h *handler.OrderHandler) {
	r := ctx.Router

	orders := r.Group("/orders")
	orders.Use(middleware.AuthMiddleware())
	{
		orders.POST("", middleware.RateLimitMiddleware(ctx.Limiter, "/orders", ctx.Metrics), h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
	}

	payouts := r.Group("/payouts")
	payouts.Use(middleware.AuthMiddleware())
	{
		payouts.GET("", middleware.RequireRole(userModel.RoleSeller, userModel.RoleAdmin), h.ListPayouts)
		payouts.PUT("", middleware.AdminMiddleware(), h.UpdatePayout)
	}
}
