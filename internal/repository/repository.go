package repository

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Documents DocumentStore
	Session   SessionRepository
	Student   StudentRepository
	SyncLog   SyncLogRepository
}

// NewRepository 创建 Repository 聚合；cache 为 nil 时文档不缓存
func NewRepository(db *gorm.DB, crawlerPath string, cache *DocumentCache, logger *zap.Logger) *Repository {
	return &Repository{
		Documents: NewDocumentStore(crawlerPath, cache, logger),
		Session:   NewSessionRepo(db),
		Student:   NewStudentRepo(db),
		SyncLog:   NewSyncLogRepo(db),
	}
}
