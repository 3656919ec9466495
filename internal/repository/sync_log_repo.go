package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/changrun1/QAQ-backend/internal/model"
)

// SyncLogRepository 同步记录数据访问接口
type SyncLogRepository interface {
	Create(ctx context.Context, log *model.SyncLog) error
	ListRecent(ctx context.Context, studentID string, limit int) ([]model.SyncLog, error)
}

// syncLogRepo SyncLogRepository 的 GORM 实现
type syncLogRepo struct {
	db *gorm.DB
}

// NewSyncLogRepo 创建 SyncLogRepository 实例
func NewSyncLogRepo(db *gorm.DB) SyncLogRepository {
	return &syncLogRepo{db: db}
}

func (r *syncLogRepo) Create(ctx context.Context, log *model.SyncLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListRecent 最近的同步记录，按时间倒序
func (r *syncLogRepo) ListRecent(ctx context.Context, studentID string, limit int) ([]model.SyncLog, error) {
	var logs []model.SyncLog
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("synced_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
