package dto

import (
	"encoding/json"

	"github.com/changrun1/QAQ-backend/internal/model"
)

// ── 学生数据同步 DTO ──

// SyncDataRequest POST /api/data/sync
type SyncDataRequest struct {
	StudentID string           `json:"studentId" binding:"required"`
	Profile   *SyncProfile     `json:"profile"`
	Courses   []SyncCourseItem `json:"courses"`
	Grades    []SyncGradeItem  `json:"grades"`
}

// SyncProfile 学生基本资料
type SyncProfile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Grade      *int   `json:"grade"`
}

// SyncCourseItem 单门课表记录；Raw 保留移动端上传的原始 JSON（含未声明字段）
type SyncCourseItem struct {
	CourseID   string   `json:"courseId"`
	CourseName string   `json:"courseName"`
	Instructor string   `json:"instructor"`
	Location   string   `json:"location"`
	TimeSlots  string   `json:"timeSlots"`
	Semester   string   `json:"semester"`
	Credits    *float64 `json:"credits"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON 解析已知字段并保留原始内容
func (c *SyncCourseItem) UnmarshalJSON(b []byte) error {
	type alias SyncCourseItem
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = SyncCourseItem(a)
	c.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// SyncGradeItem 单门成绩记录
type SyncGradeItem struct {
	CourseID   string   `json:"courseId"`
	CourseName string   `json:"courseName"`
	Semester   string   `json:"semester"`
	Credits    *float64 `json:"credits"`
	Grade      string   `json:"grade"`
	GradePoint *float64 `json:"gradePoint"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON 解析已知字段并保留原始内容
func (g *SyncGradeItem) UnmarshalJSON(b []byte) error {
	type alias SyncGradeItem
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*g = SyncGradeItem(a)
	g.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// ── 同步响应 ──

// SyncedParts 各部分同步结果：profile 为是否成功，courses/grades 为写入条数
type SyncedParts struct {
	Profile *bool `json:"profile,omitempty"`
	Courses *int  `json:"courses,omitempty"`
	Grades  *int  `json:"grades,omitempty"`
}

// SyncError 单部分同步失败
type SyncError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// SyncDataResponse 同步结果；任何一部分失败时 Success=false，其余部分照常写入
type SyncDataResponse struct {
	Success   bool        `json:"success"`
	StudentID string      `json:"studentId"`
	Synced    SyncedParts `json:"synced"`
	Errors    []SyncError `json:"errors"`
}

// SyncLogQuery GET /api/data/:studentId/sync-logs
type SyncLogQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"` // 超过 100 时截断
}

// SemesterFilter 可选学期过滤
type SemesterFilter struct {
	Semester string `form:"semester"`
}

// GPAResponse GPA 统计
type GPAResponse struct {
	GPA          float64 `json:"gpa"`
	TotalCredits float64 `json:"totalCredits"`
	Message      string  `json:"message,omitempty"`
}

// StudentDataResponse 学生全部资料
type StudentDataResponse struct {
	Profile  *model.Student        `json:"profile"`
	Courses  []model.StudentCourse `json:"courses"`
	Grades   []model.StudentGrade  `json:"grades"`
	GPA      GPAResponse           `json:"gpa"`
	SyncLogs []model.SyncLog       `json:"syncLogs"`
}
