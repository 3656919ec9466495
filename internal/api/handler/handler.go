package handler

import (
	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Course *CourseHandler
	Auth   *AuthHandler
	Data   *DataHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Course: NewCourseHandler(&cfg.Data, svc.Course, svc.Classroom, svc.Calendar),
		Auth:   NewAuthHandler(svc.Auth),
		Data:   NewDataHandler(svc.Data),
		Export: NewExportHandler(svc.Export),
	}
}
