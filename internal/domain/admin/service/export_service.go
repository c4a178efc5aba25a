package service

import (
	"context"
	"marketplace/internal/domain/admin/model"
	"marketplace/internal/domain/admin/repository"
	"marketplace/pkg/utils"
)

type ExportService interface {
	// Export 解析实体类型并分页导出，未知类型返回 *model.ErrUnknownKind
	Export(ctx context.Context, kind string, page utils.Pagination) (*utils.PageResult, error)
}

type exportService struct {
	repo repository.ExportRepository
}

func NewExportService(repo repository.ExportRepository) ExportService {
	return &exportService{repo: repo}
}

func (s *exportService) Export(ctx context.Context, kind string, page utils.Pagination) (*utils.PageResult, error) {
	k, err := model.ParseEntityKind(kind)
	if err != nil {
		return nil, err
	}

	offset, limit := page.GetPageOffset()
	list, total, err := s.repo.List(ctx, k, offset, limit)
	if err != nil {
		return nil, err
	}
	result := utils.NewPageResult(list, total, page)
	return &result, nil
}
