package handler

import (
	"marketplace/internal/domain/shipping/service"
	"marketplace/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ShippingHandler struct {
	calculator *service.Calculator
}

func NewShippingHandler(calculator *service.Calculator) *ShippingHandler {
	return &ShippingHandler{calculator: calculator}
}

type QuoteQuery struct {
	Region   string `form:"region"`
	Items    int    `form:"items" binding:"omitempty,min=1"`
	Subtotal string `form:"subtotal"`
}

// GetQuote 运费报价
func (h *ShippingHandler) GetQuote(c *gin.Context) {
	var query QuoteQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	subtotal := decimal.Zero
	if query.Subtotal != "" {
		d, err := decimal.NewFromString(query.Subtotal)
		if err != nil || d.IsNegative() {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "subtotal must be a non-negative amount")
			return
		}
		subtotal = d
	}

	response.Success(c, h.calculator.Quote(query.Region, query.Items, subtotal))
}
