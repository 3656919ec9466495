package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/changrun1/QAQ-backend/internal/model"
)

// SessionRepository 登录会话数据访问接口
type SessionRepository interface {
	Upsert(ctx context.Context, session *model.UserSession) error
	GetBySessionID(ctx context.Context, sessionID string, now time.Time) (*model.UserSession, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// sessionRepo SessionRepository 的 GORM 实现
type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

// Upsert 按 student_id 插入或覆盖会话，同一学生只保留最新一次登录
func (r *sessionRepo) Upsert(ctx context.Context, session *model.UserSession) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"session_id", "name", "email", "expires_at", "updated_at"}),
		}).
		Create(session).Error
}

// GetBySessionID 查询未过期会话；不存在或已过期返回 gorm.ErrRecordNotFound
func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string, now time.Time) (*model.UserSession, error) {
	var session model.UserSession
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND expires_at > ?", sessionID, now).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) DeleteBySessionID(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&model.UserSession{}).Error
}

// DeleteExpired 清理过期会话，返回删除条数
func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.UserSession{})
	return result.RowsAffected, result.Error
}
