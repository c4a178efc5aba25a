package handler

import (
	"encoding/json"
	"marketplace/internal/domain/shipping/service"
	"marketplace/internal/pkg/config"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	calc, err := service.NewCalculator(config.ShippingConfig{DefaultCost: "15", PerItemCost: "2"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/shipping/quote", NewShippingHandler(calc).GetQuote)
	return r
}

func TestGetQuote(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/shipping/quote?region=SP&items=2&subtotal=80", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Cost string `json:"cost"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "17", body.Data.Cost)
}

func TestGetQuoteInvalidSubtotal(t *testing.T) {
	r := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/shipping/quote?subtotal=-5", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
