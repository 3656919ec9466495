package service

import (
	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/repository"
	"github.com/changrun1/QAQ-backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Course    CourseService
	Classroom ClassroomService
	Calendar  CalendarService
	Auth      AuthService
	Data      DataService
	Export    ExportService
}

// NewService 创建 Service 聚合；cache 为 nil 时会话只存数据库
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	portalClient PortalClient,
	jwtMgr *jwt.Manager,
	cache SessionCache,
	logger *zap.Logger,
) *Service {
	data := NewDataService(repo, logger)
	return &Service{
		Course:    NewCourseService(repo, logger),
		Classroom: NewClassroomService(repo, logger),
		Calendar:  NewCalendarService(&cfg.Calendar, repo, logger),
		Auth:      NewAuthService(&cfg.Auth, repo, portalClient, jwtMgr, cache, logger),
		Data:      data,
		Export:    NewExportService(data, logger),
	}
}
