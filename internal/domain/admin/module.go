package admin

import (
	"marketplace/internal/domain/admin/handler"
	"marketplace/internal/domain/admin/repository"
	"marketplace/internal/domain/admin/service"
	"marketplace/internal/pkg/middleware"
	"marketplace/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// AdminModule 管理后台导出
type AdminModule struct{}

func init() {
	registry.Register(&AdminModule{})
}

func (m *AdminModule) Name() string {
	return "admin"
}

func (m *AdminModule) Priority() int {
	return 100 // 最后初始化
}

func (m *AdminModule) Init(ctx *registry.ModuleContext) error {
	h := handler.NewExportHandler(service.NewExportService(repository.NewExportRepository(ctx.DB)))
	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ExportHandler) {
	g := r.Group("/admin")
	g.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		g.GET("/export/:kind", h.Export)
	}
}
