package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/service"
	"github.com/changrun1/QAQ-backend/pkg/response"
)

// DataHandler 学生数据同步与查询 HTTP 处理器
//
// 路由上已挂 SessionAuth + SelfOnly("studentId")，这里的 :studentId 即本人学号。
type DataHandler struct {
	dataSvc service.DataService
}

// NewDataHandler 创建 DataHandler
func NewDataHandler(dataSvc service.DataService) *DataHandler {
	return &DataHandler{dataSvc: dataSvc}
}

// Sync 移动端上传基本资料 / 课表 / 成绩
// POST /api/data/sync
func (h *DataHandler) Sync(c *gin.Context) {
	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	var req dto.SyncDataRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.StudentID != studentID {
		response.Forbidden(c, 17002, "只能同步本人资料")
		return
	}

	result, err := h.dataSvc.Sync(c.Request.Context(), &req)
	if err != nil {
		h.handleDataError(c, err)
		return
	}
	response.OK(c, result)
}

// GetProfile GET /api/data/:studentId/profile
func (h *DataHandler) GetProfile(c *gin.Context) {
	profile, err := h.dataSvc.GetProfile(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.handleDataError(c, err)
		return
	}
	response.OK(c, profile)
}

// GetCourses GET /api/data/:studentId/courses?semester=114-1
func (h *DataHandler) GetCourses(c *gin.Context) {
	var q dto.SemesterFilter
	_ = c.ShouldBindQuery(&q)

	courses, err := h.dataSvc.GetCourses(c.Request.Context(), c.Param("studentId"), q.Semester)
	if err != nil {
		h.handleDataError(c, err)
		return
	}
	response.OKList(c, courses, len(courses))
}

// GetGrades GET /api/data/:studentId/grades?semester=114-1
func (h *DataHandler) GetGrades(c *gin.Context) {
	var q dto.SemesterFilter
	_ = c.ShouldBindQuery(&q)

	grades, err := h.dataSvc.GetGrades(c.Request.Context(), c.Param("studentId"), q.Semester)
	if err != nil {
		h.handleDataError(c, err)
		return
	}
	response.OKList(c, grades, len(grades))
}

// GetGPA GET /api/data/:studentId/gpa?semester=114-1
func (h *DataHandler) GetGPA(c *gin.Context) {
	var q dto.SemesterFilter
	_ = c.ShouldBindQuery(&q)

	gpa, err := h.dataSvc.GetGPA(c.Request.Context(), c.Param("studentId"), q.Semester)
	if err != nil {
		h.handleDataError(c, err)
		return
	}
	response.OK(c, gpa)
}

// GetSyncLogs GET /api/data/:studentId/sync-logs?limit=10
func (h *DataHandler) GetSyncLogs(c *gin.Context) {
	var q dto.SyncLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "limit 必须为正整数")
		return
	}

	logs, err := h.dataSvc.GetSyncLogs(c.Request.Context(), c.Param("studentId"), q.Limit)
	if err != nil {
		h.handleDataError(c, err)
		return
	}
	response.OKList(c, logs, len(logs))
}

// GetAll GET /api/data/:studentId/all
func (h *DataHandler) GetAll(c *gin.Context) {
	all, err := h.dataSvc.GetAll(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		h.handleDataError(c, err)
		return
	}
	response.OK(c, all)
}

func (h *DataHandler) handleDataError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 17001, "找不到学生资料，请先同步")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
