package handler

import (
	"errors"
	"marketplace/internal/domain/admin/model"
	"marketplace/internal/domain/admin/service"
	"marketplace/pkg/logger"
	"marketplace/pkg/response"
	"marketplace/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ExportHandler struct {
	service service.ExportService
}

func NewExportHandler(s service.ExportService) *ExportHandler {
	return &ExportHandler{service: s}
}

// Export 管理员按实体类型分页导出
func (h *ExportHandler) Export(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.Export(c.Request.Context(), c.Param("kind"), page)
	if err != nil {
		var unknown *model.ErrUnknownKind
		if errors.As(err, &unknown) {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
			return
		}
		logger.Log.Error("export failed", zap.String("kind", c.Param("kind")), zap.Error(err))
		response.Internal(c)
		return
	}
	response.Success(c, result)
}
