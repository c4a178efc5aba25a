package handler

import (
	"context"
	"errors"
	"marketplace/internal/domain/admin/model"
	"marketplace/internal/domain/admin/service"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockExportRepository struct {
	mock.Mock
}

func (m *MockExportRepository) List(ctx context.Context, kind model.EntityKind, offset, limit int) (interface{}, int64, error) {
	args := m.Called(ctx, kind, offset, limit)
	return args.Get(0), args.Get(1).(int64), args.Error(2)
}

func setupRouter(repo *MockExportRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewExportHandler(service.NewExportService(repo))
	r := gin.New()
	r.GET("/admin/export/:kind", h.Export)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExportHandler(t *testing.T) {
	t.Run("Paginated export", func(t *testing.T) {
		repo := new(MockExportRepository)
		repo.On("List", mock.Anything, model.KindCoupons, 10, 10).
			Return([]map[string]string{{"code": "SAVE20"}}, int64(11), nil)

		w := get(setupRouter(repo), "/admin/export/coupons?page=2&limit=10")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":11`)
		assert.Contains(t, w.Body.String(), `"page":2`)
		assert.Contains(t, w.Body.String(), `"SAVE20"`)
		repo.AssertExpectations(t)
	})

	t.Run("Default page size", func(t *testing.T) {
		repo := new(MockExportRepository)
		repo.On("List", mock.Anything, model.KindPixPayments, 0, 20).Return([]string{}, int64(0), nil)

		w := get(setupRouter(repo), "/admin/export/pix_payments")

		assert.Equal(t, http.StatusOK, w.Code)
		repo.AssertExpectations(t)
	})

	t.Run("Unknown kind", func(t *testing.T) {
		repo := new(MockExportRepository)

		w := get(setupRouter(repo), "/admin/export/wishlists")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown export kind")
		repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Database failure", func(t *testing.T) {
		repo := new(MockExportRepository)
		repo.On("List", mock.Anything, model.KindOrders, 0, 20).Return(nil, int64(0), errors.New("connection refused"))

		w := get(setupRouter(repo), "/admin/export/orders")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}
