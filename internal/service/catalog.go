package service

import (
	"context"

	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
)

// Catalog 汇总某学期全部开课类别的课程总表
type Catalog struct {
	docs repository.DocumentStore
}

// NewCatalog 创建 Catalog
func NewCatalog(docs repository.DocumentStore) *Catalog {
	return &Catalog{docs: docs}
}

// Aggregate 按 日间部 → 进修部 → 研究所 的固定顺序拼接课程，保留文件内顺序，不按 id 去重
func (c *Catalog) Aggregate(ctx context.Context, year, semester string) ([]model.Course, error) {
	var all []model.Course
	for _, category := range repository.CourseCategories {
		courses, err := c.docs.LoadCourses(ctx, year, semester, category)
		if err != nil {
			return nil, err
		}
		all = append(all, courses...)
	}
	return all, nil
}
