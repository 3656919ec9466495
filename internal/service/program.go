package service

import (
	"context"
	"time"

	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
)

// ProgramResolver 读取学程 / 微学程定义
type ProgramResolver struct {
	docs repository.DocumentStore
	now  func() time.Time
}

// NewProgramResolver 创建 ProgramResolver
func NewProgramResolver(docs repository.DocumentStore) *ProgramResolver {
	return &ProgramResolver{docs: docs, now: time.Now}
}

// ResolvePrograms 读取 mprogram.json；文件不存在时返回 nil
//
// 爬虫只在 mprogram.json 中输出微学程，未标注 type 的记录一律视为 micro-program。
func (r *ProgramResolver) ResolvePrograms(ctx context.Context, year, semester string) (*model.ProgramStructure, error) {
	raw, found, err := r.docs.LoadPrograms(ctx, year, semester)
	if err != nil || !found {
		return nil, err
	}

	// 文档切片可能来自缓存，复制后再补类型
	programs := make([]model.Program, len(raw))
	copy(programs, raw)
	for i := range programs {
		if programs[i].Type == "" {
			programs[i].Type = model.ProgramTypeMicroProgram
		}
		if programs[i].Course == nil {
			programs[i].Course = make([]string, 0)
		}
	}

	return &model.ProgramStructure{
		Year:      year,
		Semester:  semester,
		Programs:  programs,
		UpdatedAt: r.now(),
	}, nil
}
