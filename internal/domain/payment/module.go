package payment

import (
	orderRepo "marketplace/internal/domain/order/repository"
	"marketplace/internal/domain/payment/handler"
	"marketplace/internal/domain/payment/repository"
	"marketplace/internal/domain/payment/service"
	"marketplace/internal/domain/payment/strategy"
	"marketplace/internal/pkg/middleware"
	"marketplace/internal/pkg/registry"
	"marketplace/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentModule PIX 支付模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 依赖订单模块的表和状态
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	cfg := ctx.Config

	// 1. 依赖注入
	pRepo := repository.NewPaymentRepository(ctx.DB)
	pService := service.NewPaymentService(
		pRepo,
		orderRepo.NewOrderRepository(ctx.DB),
		cfg.Pix.DefaultProvider,
		cfg.Pix.Expiration,
		ctx.Events,
		ctx.Metrics,
	)

	// 2. 注册支付渠道
	if !cfg.App.IsProduction() {
		pService.RegisterStrategy(strategy.NewSimulatedStrategy())
	}

	if cfg.MercadoPago.AccessToken != "" {
		mp, err := strategy.NewMercadoPagoStrategy(cfg.MercadoPago)
		if err != nil {
			logger.Log.Error("failed to init mercadopago strategy", zap.Error(err))
		} else {
			pService.RegisterStrategy(mp)
		}
	}

	if cfg.Stripe.SecretKey != "" {
		st, err := strategy.NewStripeStrategy(cfg.Stripe)
		if err != nil {
			logger.Log.Error("failed to init stripe strategy", zap.Error(err))
		} else {
			pService.RegisterStrategy(st)
		}
	}

	pHandler := handler.NewPaymentHandler(pService)

	// 3. 路由注册
	setupRoutes(ctx.Router, pHandler, !cfg.App.IsProduction())

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler, simulate bool) {
	g := r.Group("/payments")

	// 渠道回调 (无需鉴权，由各渠道验签)
	g.POST("/webhook/:provider", h.Webhook)

	authorized := g.Group("")
	authorized.Use(middleware.AuthMiddleware())
	{
		authorized.POST("/pix", h.CreatePix)
		authorized.GET("/pix/check", h.CheckPayment)
		if simulate {
			authorized.POST("/pix/:id/simulate", h.SimulatePayment)
		}
	}
}
