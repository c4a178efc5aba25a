package coupon

import (
	"marketplace/internal/domain/coupon/handler"
	"marketplace/internal/domain/coupon/repository"
	"marketplace/internal/domain/coupon/service"
	orderRepo "marketplace/internal/domain/order/repository"
	productRepo "marketplace/internal/domain/product/repository"
	shippingService "marketplace/internal/domain/shipping/service"
	"marketplace/internal/pkg/middleware"
	"marketplace/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CouponModule 优惠券模块
type CouponModule struct{}

func init() {
	registry.Register(&CouponModule{})
}

func (m *CouponModule) Name() string {
	return "coupon"
}

func (m *CouponModule) Priority() int {
	return 15
}

func (m *CouponModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	calculator, err := shippingService.NewCalculator(ctx.Config.Shipping)
	if err != nil {
		return err
	}
	cRepo := repository.NewCouponRepository(ctx.DB)
	cService := service.NewCouponService(
		cRepo,
		orderRepo.NewOrderRepository(ctx.DB),
		productRepo.NewProductRepository(ctx.DB),
		calculator,
		ctx.Events,
		ctx.Metrics,
	)
	cHandler := handler.NewCouponHandler(cService)

	// 2. 路由注册
	setupRoutes(ctx.Router, cHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CouponHandler) {
	g := r.Group("/coupons")

	// 需要认证的路由组
	authorized := g.Group("")
	authorized.Use(middleware.AuthMiddleware())
	{
		// 校验只读，可重复调用
		authorized.POST("/validate", h.ValidateCoupon)
		// 下单后核销
		authorized.POST("/redeem", h.RedeemCoupon)

		// 需要管理员权限的路由组
		admin := authorized.Group("")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.POST("", h.CreateCoupon)
		}
	}
}
