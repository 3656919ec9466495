package dto

import "github.com/changrun1/QAQ-backend/internal/model"

// ── 课程查询 DTO ──

// SemesterQuery 学年度 / 学期（缺省由 handler 填入配置默认值）
type SemesterQuery struct {
	Year     string `form:"year"`
	Semester string `form:"semester"`
}

// CourseSearchQuery GET /api/courses/search 原始查询参数
type CourseSearchQuery struct {
	SemesterQuery
	Keyword     string `form:"keyword"`
	Category    string `form:"category"`
	College     string `form:"college"`
	GradeCode   string `form:"gradeCode"`
	ProgramCode string `form:"programCode"`
	ProgramType string `form:"programType"`
	TimeSlots   string `form:"timeSlots"` // JSON 数组 [{day, periods}]
}

// TimeSlotRequirement 单个时段条件：某天的任意一节
type TimeSlotRequirement struct {
	Day     model.Weekday `json:"day"`
	Periods []string      `json:"periods"`
}

// CourseSearchParams 课程搜索参数（已通过边界校验）
type CourseSearchParams struct {
	Keyword     string
	Year        string
	Semester    string
	Category    string
	College     string
	GradeCode   string
	ProgramCode string
	ProgramType model.ProgramType
	TimeSlots   []TimeSlotRequirement
}

// ByGradeQuery GET /api/courses/by-grade
type ByGradeQuery struct {
	SemesterQuery
	GradeCode string `form:"gradeCode" binding:"required"`
}

// GradeCalendarQuery GET /api/courses/by-grade/calendar
type GradeCalendarQuery struct {
	SemesterQuery
	GradeCode string `form:"gradeCode" binding:"required"`
	Weeks     int    `form:"weeks"     binding:"omitempty,min=1,max=30"`
}

// ByProgramQuery GET /api/courses/by-program
type ByProgramQuery struct {
	SemesterQuery
	ProgramCode string `form:"programCode" binding:"required"`
	Type        string `form:"type"` // 缺省为 micro-program
}

// EmptyClassroomQuery GET /api/courses/empty-classrooms
type EmptyClassroomQuery struct {
	SemesterQuery
	DayOfWeek string `form:"dayOfWeek"` // 缺省为今天
	Periods   string `form:"periods"`   // JSON 数组或逗号分隔
	Keyword   string `form:"keyword"`
}

// ── 课程查询响应 ──

// EmptyClassroomResponse 空教室查询响应
type EmptyClassroomResponse struct {
	DayOfWeek model.Weekday                 `json:"dayOfWeek"`
	Periods   []string                      `json:"periods"`
	Count     int                           `json:"count"`
	List      []model.ClassroomAvailability `json:"list"`
}
