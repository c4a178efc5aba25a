package shipping

import (
	"marketplace/internal/domain/shipping/handler"
	"marketplace/internal/domain/shipping/service"
	"marketplace/internal/pkg/registry"
)

// ShippingModule 运费模块
type ShippingModule struct{}

func init() {
	registry.Register(&ShippingModule{})
}

func (m *ShippingModule) Name() string {
	return "shipping"
}

func (m *ShippingModule) Priority() int {
	return 5
}

func (m *ShippingModule) Init(ctx *registry.ModuleContext) error {
	calculator, err := service.NewCalculator(ctx.Config.Shipping)
	if err != nil {
		return err
	}
	h := handler.NewShippingHandler(calculator)

	ctx.Router.GET("/shipping/quote", h.GetQuote)
	return nil
}
