package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/changrun1/QAQ-backend/internal/model"
)

const upsertBatchSize = 100

// GPAStat 学分加权绩点统计；没有带绩点的成绩时 GPA 为 nil
type GPAStat struct {
	GPA          *float64
	TotalCredits *float64
}

// StudentRepository 移动端同步数据访问接口（基本资料 / 课表 / 成绩）
type StudentRepository interface {
	UpsertProfile(ctx context.Context, student *model.Student) error
	GetProfile(ctx context.Context, studentID string) (*model.Student, error)

	UpsertCourses(ctx context.Context, courses []model.StudentCourse) error
	ListCourses(ctx context.Context, studentID, semester string) ([]model.StudentCourse, error)

	UpsertGrades(ctx context.Context, grades []model.StudentGrade) error
	ListGrades(ctx context.Context, studentID, semester string) ([]model.StudentGrade, error)
	GPA(ctx context.Context, studentID, semester string) (*GPAStat, error)
}

// studentRepo StudentRepository 的 GORM 实现
type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

// ── 基本资料 ──

func (r *studentRepo) UpsertProfile(ctx context.Context, student *model.Student) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "department", "grade", "last_sync", "updated_at"}),
		}).
		Create(student).Error
}

func (r *studentRepo) GetProfile(ctx context.Context, studentID string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// ── 课表 ──

// UpsertCourses 在单个事务内按 (student_id, course_id, semester) 批量 upsert
func (r *studentRepo) UpsertCourses(ctx context.Context, courses []model.StudentCourse) error {
	if len(courses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: studentCourseKey,
			DoUpdates: clause.AssignmentColumns([]string{
				"course_name", "instructor", "location", "time_slots", "credits", "course_data", "updated_at",
			}),
		}).CreateInBatches(&courses, upsertBatchSize).Error
	})
}

// ListCourses 指定学期时按课号排序，否则按学期倒序
func (r *studentRepo) ListCourses(ctx context.Context, studentID, semester string) ([]model.StudentCourse, error) {
	var courses []model.StudentCourse
	q := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if semester != "" {
		q = q.Where("semester = ?", semester).Order("course_id ASC")
	} else {
		q = q.Order("semester DESC").Order("course_id ASC")
	}
	err := q.Find(&courses).Error
	return courses, err
}

// ── 成绩 ──

func (r *studentRepo) UpsertGrades(ctx context.Context, grades []model.StudentGrade) error {
	if len(grades) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: studentCourseKey,
			DoUpdates: clause.AssignmentColumns([]string{
				"course_name", "credits", "grade", "grade_point", "grade_data", "updated_at",
			}),
		}).CreateInBatches(&grades, upsertBatchSize).Error
	})
}

func (r *studentRepo) ListGrades(ctx context.Context, studentID, semester string) ([]model.StudentGrade, error) {
	var grades []model.StudentGrade
	q := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if semester != "" {
		q = q.Where("semester = ?", semester)
	}
	err := q.Order("semester DESC").Order("course_id ASC").Find(&grades).Error
	return grades, err
}

// GPA SUM(credits * grade_point) / SUM(credits)，只统计有绩点的成绩
func (r *studentRepo) GPA(ctx context.Context, studentID, semester string) (*GPAStat, error) {
	var row struct {
		GPA          *float64
		TotalCredits *float64
	}
	q := r.db.WithContext(ctx).
		Model(&model.StudentGrade{}).
		Select("SUM(credits * grade_point) / SUM(credits) AS gpa, SUM(credits) AS total_credits").
		Where("student_id = ? AND grade_point IS NOT NULL", studentID)
	if semester != "" {
		q = q.Where("semester = ?", semester)
	}
	if err := q.Scan(&row).Error; err != nil {
		return nil, err
	}
	return &GPAStat{GPA: row.GPA, TotalCredits: row.TotalCredits}, nil
}

var studentCourseKey = []clause.Column{{Name: "student_id"}, {Name: "course_id"}, {Name: "semester"}}
