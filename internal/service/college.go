package service

import (
	"context"
	"strings"
	"time"

	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
)

// CollegeResolver 将 department.json 的扁平系所记录组装为 学院 → 系所 → 班级
type CollegeResolver struct {
	docs repository.DocumentStore
	now  func() time.Time
}

// NewCollegeResolver 创建 CollegeResolver
func NewCollegeResolver(docs repository.DocumentStore) *CollegeResolver {
	return &CollegeResolver{docs: docs, now: time.Now}
}

// ResolveColleges 读取并分组；department.json 不存在时返回 nil
func (r *CollegeResolver) ResolveColleges(ctx context.Context, year, semester string) (*model.CollegeStructure, error) {
	raw, found, err := r.docs.LoadDepartments(ctx, year, semester)
	if err != nil || !found {
		return nil, err
	}
	return &model.CollegeStructure{
		Year:      year,
		Semester:  semester,
		Colleges:  groupColleges(raw),
		UpdatedAt: r.now(),
	}, nil
}

// groupColleges 按 category 分组，学院按首次出现顺序排列，系所保持原顺序
func groupColleges(raw []model.DepartmentRaw) []model.College {
	colleges := make([]model.College, 0)
	index := make(map[string]int)

	for _, d := range raw {
		name := d.Category
		if strings.TrimSpace(name) == "" {
			name = model.DefaultCollegeName
		}
		i, ok := index[name]
		if !ok {
			i = len(colleges)
			index[name] = i
			colleges = append(colleges, model.College{Name: name, Departments: make([]model.Department, 0)})
		}

		grades := d.Class
		if grades == nil {
			grades = make([]model.Grade, 0)
		}
		colleges[i].Departments = append(colleges[i].Departments, model.Department{
			Name:   d.Name,
			Href:   d.Href,
			Grades: grades,
		})
	}
	return colleges
}
