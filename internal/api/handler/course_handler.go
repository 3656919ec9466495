package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/service"
	pkgerrors "github.com/changrun1/QAQ-backend/pkg/errors"
	"github.com/changrun1/QAQ-backend/pkg/response"
)

// CourseHandler 课程查询 / 空教室 / 课表导出 HTTP 处理器
type CourseHandler struct {
	dataCfg      *config.DataConfig
	courseSvc    service.CourseService
	classroomSvc service.ClassroomService
	calendarSvc  service.CalendarService
	now          func() time.Time
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(
	dataCfg *config.DataConfig,
	courseSvc service.CourseService,
	classroomSvc service.ClassroomService,
	calendarSvc service.CalendarService,
) *CourseHandler {
	return &CourseHandler{
		dataCfg:      dataCfg,
		courseSvc:    courseSvc,
		classroomSvc: classroomSvc,
		calendarSvc:  calendarSvc,
		now:          time.Now,
	}
}

// SearchCourses 综合搜索
// GET /api/courses/search
func (h *CourseHandler) SearchCourses(c *gin.Context) {
	var q dto.CourseSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	year, semester := h.term(&q.SemesterQuery)

	params := &dto.CourseSearchParams{
		Keyword:     q.Keyword,
		Year:        year,
		Semester:    semester,
		Category:    q.Category,
		College:     q.College,
		GradeCode:   q.GradeCode,
		ProgramCode: q.ProgramCode,
	}

	if q.ProgramType != "" {
		pt, ok := model.ParseProgramType(q.ProgramType)
		if !ok {
			response.BadRequest(c, 10001, "programType 仅支持 program 或 micro-program")
			return
		}
		params.ProgramType = pt
	}

	if q.TimeSlots != "" {
		slots, err := parseTimeSlots(q.TimeSlots)
		if err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "timeSlots 格式错误", err.Error())
			return
		}
		params.TimeSlots = slots
	}

	courses, err := h.courseSvc.Search(c.Request.Context(), params)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OKList(c, courses, len(courses))
}

// GetColleges 学院 → 系所 → 班级 结构
// GET /api/courses/colleges
func (h *CourseHandler) GetColleges(c *gin.Context) {
	var q dto.SemesterQuery
	_ = c.ShouldBindQuery(&q)
	year, semester := h.term(&q)

	structure, err := h.courseSvc.GetColleges(c.Request.Context(), year, semester)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, structure)
}

// GetCoursesByGrade 班级课表
// GET /api/courses/by-grade?gradeCode=xxx
func (h *CourseHandler) GetCoursesByGrade(c *gin.Context) {
	var q dto.ByGradeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "gradeCode 不能为空")
		return
	}
	year, semester := h.term(&q.SemesterQuery)

	courses, err := h.courseSvc.GetCoursesByGrade(c.Request.Context(), q.GradeCode, year, semester)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OKList(c, courses, len(courses))
}

// ExportGradeCalendar 班级课表导出为 iCalendar
// GET /api/courses/by-grade/calendar?gradeCode=xxx&weeks=18
func (h *CourseHandler) ExportGradeCalendar(c *gin.Context) {
	var q dto.GradeCalendarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	year, semester := h.term(&q.SemesterQuery)

	ics, err := h.calendarSvc.ExportGradeCalendar(c.Request.Context(), q.GradeCode, year, semester, q.Weeks)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s-%s.ics", q.GradeCode, year, semester)
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

// GetPrograms 学程 / 微学程列表
// GET /api/courses/programs
func (h *CourseHandler) GetPrograms(c *gin.Context) {
	var q dto.SemesterQuery
	_ = c.ShouldBindQuery(&q)
	year, semester := h.term(&q)

	structure, err := h.courseSvc.GetPrograms(c.Request.Context(), year, semester)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, structure)
}

// GetCoursesByProgram 学程课程
// GET /api/courses/by-program?programCode=xxx&type=micro-program
func (h *CourseHandler) GetCoursesByProgram(c *gin.Context) {
	var q dto.ByProgramQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "programCode 不能为空")
		return
	}
	year, semester := h.term(&q.SemesterQuery)

	programType := model.ProgramTypeMicroProgram
	if q.Type != "" {
		pt, ok := model.ParseProgramType(q.Type)
		if !ok {
			response.BadRequest(c, 10001, "type 仅支持 program 或 micro-program")
			return
		}
		programType = pt
	}

	courses, err := h.courseSvc.GetCoursesByProgram(c.Request.Context(), q.ProgramCode, programType, year, semester)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OKList(c, courses, len(courses))
}

// GetCourseDetail 课程大纲
// GET /api/courses/detail/:courseId
func (h *CourseHandler) GetCourseDetail(c *gin.Context) {
	var q dto.SemesterQuery
	_ = c.ShouldBindQuery(&q)
	year, semester := h.term(&q)

	syllabus, err := h.courseSvc.GetCourseDetail(c.Request.Context(), c.Param("courseId"), year, semester)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, syllabus)
}

// GetEmptyClassrooms 空教室查询
// GET /api/courses/empty-classrooms?dayOfWeek=mon&periods=["3","4"]
func (h *CourseHandler) GetEmptyClassrooms(c *gin.Context) {
	var q dto.EmptyClassroomQuery
	_ = c.ShouldBindQuery(&q)
	year, semester := h.term(&q.SemesterQuery)

	day := model.WeekdayOf(h.now())
	if q.DayOfWeek != "" {
		d, ok := model.ParseWeekday(q.DayOfWeek)
		if !ok {
			response.BadRequest(c, 10001, "dayOfWeek 必须是 mon, tue, wed, thu, fri, sat, sun 之一")
			return
		}
		day = d
	}
	periods := parsePeriods(q.Periods)

	rooms, err := h.classroomSvc.GetEmptyClassrooms(c.Request.Context(), day, periods, year, semester, q.Keyword)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}
	response.OK(c, dto.EmptyClassroomResponse{
		DayOfWeek: day,
		Periods:   periods,
		Count:     len(rooms),
		List:      rooms,
	})
}

// ── 内部方法 ──

// term 学年度 / 学期缺省取配置
func (h *CourseHandler) term(q *dto.SemesterQuery) (string, string) {
	year, semester := strings.TrimSpace(q.Year), strings.TrimSpace(q.Semester)
	if year == "" {
		year = h.dataCfg.DefaultYear
	}
	if semester == "" {
		semester = h.dataCfg.DefaultSemester
	}
	return year, semester
}

// parseTimeSlots 解析 [{"day":"mon","periods":["3","4"]}]；星期不合法时报错
func parseTimeSlots(raw string) ([]dto.TimeSlotRequirement, error) {
	var slots []dto.TimeSlotRequirement
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		return nil, fmt.Errorf("timeSlots 必须是 JSON 数组: %w", err)
	}
	for i := range slots {
		d, ok := model.ParseWeekday(string(slots[i].Day))
		if !ok {
			return nil, fmt.Errorf("第 %d 个时段的 day %q 不合法", i, slots[i].Day)
		}
		slots[i].Day = d
	}
	return slots, nil
}

// parsePeriods 优先按 JSON 字符串数组解析，失败时按逗号分隔
func parsePeriods(raw string) []string {
	periods := make([]string, 0)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return periods
	}
	if err := json.Unmarshal([]byte(raw), &periods); err == nil && periods != nil {
		return periods
	}
	periods = make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			periods = append(periods, p)
		}
	}
	return periods
}

func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrDataIntegrity):
		_ = c.Error(err)
		response.DataIntegrityError(c, err.Error())
	case errors.Is(err, service.ErrCollegeStructureNotFound):
		response.NotFound(c, 16001, "找不到该学期的学院资料")
	case errors.Is(err, service.ErrProgramStructureNotFound):
		response.NotFound(c, 16002, "找不到该学期的学程资料")
	case errors.Is(err, service.ErrCourseDetailNotFound):
		response.NotFound(c, 16003, "找不到课程详细资料")
	case errors.Is(err, service.ErrCalendarEmpty):
		response.NotFound(c, 16004, "该班级本学期没有可导出的课程")
	case errors.Is(err, service.ErrInvalidWeekday):
		response.BadRequest(c, 10001, "dayOfWeek 不合法")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
