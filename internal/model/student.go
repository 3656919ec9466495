package model

import "time"

// Student 学生基本资料表 — 对应 students（由移动端同步上传）
type Student struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"              json:"-"`
	StudentID  string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"studentId"`
	Name       string    `gorm:"type:varchar(100)"                     json:"name,omitempty"`
	Email      string    `gorm:"type:varchar(255)"                     json:"email,omitempty"`
	Department string    `gorm:"type:varchar(100)"                     json:"department,omitempty"`
	Grade      *int      `                                             json:"grade,omitempty"`
	LastSync   time.Time `gorm:"not null"                              json:"lastSync"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// StudentCourse 学生课表表 — 对应 courses
type StudentCourse struct {
	ID         uint     `gorm:"primaryKey;autoIncrement"                                        json:"-"`
	StudentID  string   `gorm:"type:varchar(20);not null;uniqueIndex:uk_courses_student_course" json:"studentId"`
	CourseID   string   `gorm:"type:varchar(32);not null;uniqueIndex:uk_courses_student_course" json:"courseId"`
	Semester   string   `gorm:"type:varchar(10);not null;uniqueIndex:uk_courses_student_course" json:"semester"`
	CourseName string   `gorm:"type:varchar(200);not null"                                      json:"courseName"`
	Instructor string   `gorm:"type:varchar(200)"                                               json:"instructor,omitempty"`
	Location   string   `gorm:"type:varchar(200)"                                               json:"location,omitempty"`
	TimeSlots  string   `gorm:"type:text"                                                       json:"timeSlots,omitempty"`
	Credits    *float64 `                                                                       json:"credits,omitempty"`
	CourseData string   `gorm:"type:text"                                                       json:"courseData,omitempty"` // 原始上传 JSON
	BaseModel
}

// TableName 指定表名
func (StudentCourse) TableName() string { return "courses" }

// StudentGrade 学生成绩表 — 对应 grades
type StudentGrade struct {
	ID         uint     `gorm:"primaryKey;autoIncrement"                                       json:"-"`
	StudentID  string   `gorm:"type:varchar(20);not null;uniqueIndex:uk_grades_student_course" json:"studentId"`
	CourseID   string   `gorm:"type:varchar(32);not null;uniqueIndex:uk_grades_student_course" json:"courseId"`
	Semester   string   `gorm:"type:varchar(10);not null;uniqueIndex:uk_grades_student_course" json:"semester"`
	CourseName string   `gorm:"type:varchar(200);not null"                                     json:"courseName"`
	Credits    *float64 `                                                                      json:"credits,omitempty"`
	Grade      string   `gorm:"type:varchar(10)"                                               json:"grade,omitempty"`
	GradePoint *float64 `                                                                      json:"gradePoint,omitempty"`
	GradeData  string   `gorm:"type:text"                                                      json:"gradeData,omitempty"` // 原始上传 JSON
	BaseModel
}

// TableName 指定表名
func (StudentGrade) TableName() string { return "grades" }

// 同步类型与状态
const (
	SyncTypeProfile = "profile"
	SyncTypeCourses = "courses"
	SyncTypeGrades  = "grades"

	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// SyncLog 同步记录表 — 对应 sync_logs
type SyncLog struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"       json:"id"`
	StudentID    string    `gorm:"type:varchar(20);not null;index" json:"studentId"`
	SyncType     string    `gorm:"type:varchar(20);not null"       json:"syncType"`
	Status       string    `gorm:"type:varchar(10);not null"       json:"status"`
	DataCount    *int      `                                       json:"dataCount,omitempty"`
	ErrorMessage string    `gorm:"type:text"                       json:"errorMessage,omitempty"`
	SyncedAt     time.Time `gorm:"not null;autoCreateTime"         json:"syncedAt"`
}

// TableName 指定表名
func (SyncLog) TableName() string { return "sync_logs" }
