package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
)

// ── 学生数据模块业务错误 ──

var (
	ErrStudentNotFound = errors.New("找不到学生资料")
)

const (
	DefaultSyncLogLimit = 10
	MaxSyncLogLimit     = 100

	allDataSyncLogLimit = 5
	noGradeMessage      = "尚无成绩资料"
)

// DataService 学生数据同步与查询接口
type DataService interface {
	Sync(ctx context.Context, req *dto.SyncDataRequest) (*dto.SyncDataResponse, error)
	GetProfile(ctx context.Context, studentID string) (*model.Student, error)
	GetCourses(ctx context.Context, studentID, semester string) ([]model.StudentCourse, error)
	GetGrades(ctx context.Context, studentID, semester string) ([]model.StudentGrade, error)
	GetGPA(ctx context.Context, studentID, semester string) (*dto.GPAResponse, error)
	GetSyncLogs(ctx context.Context, studentID string, limit int) ([]model.SyncLog, error)
	GetAll(ctx context.Context, studentID string) (*dto.StudentDataResponse, error)
}

type dataService struct {
	repo   *repository.Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewDataService 创建 DataService 实例
func NewDataService(repo *repository.Repository, logger *zap.Logger) DataService {
	return &dataService{repo: repo, now: time.Now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Sync 移动端数据同步
//
// profile / courses / grades 三部分互相独立：某部分失败只记录到 errors，
// 其余部分照常写入；每个尝试过的部分都写一条 sync_logs。
// ═══════════════════════════════════════════════════════════

func (s *dataService) Sync(ctx context.Context, req *dto.SyncDataRequest) (*dto.SyncDataResponse, error) {
	resp := &dto.SyncDataResponse{
		StudentID: req.StudentID,
		Errors:    make([]dto.SyncError, 0),
	}

	if req.Profile != nil {
		err := s.syncProfile(ctx, req.StudentID, req.Profile)
		s.recordSync(ctx, req.StudentID, model.SyncTypeProfile, 1, err, resp)
		if err == nil {
			ok := true
			resp.Synced.Profile = &ok
		}
	}

	if len(req.Courses) > 0 {
		n, err := s.syncCourses(ctx, req.StudentID, req.Courses)
		s.recordSync(ctx, req.StudentID, model.SyncTypeCourses, n, err, resp)
		if err == nil {
			resp.Synced.Courses = &n
		}
	}

	if len(req.Grades) > 0 {
		n, err := s.syncGrades(ctx, req.StudentID, req.Grades)
		s.recordSync(ctx, req.StudentID, model.SyncTypeGrades, n, err, resp)
		if err == nil {
			resp.Synced.Grades = &n
		}
	}

	resp.Success = len(resp.Errors) == 0
	s.logger.Info("学生数据同步完成",
		zap.String("student_id", req.StudentID),
		zap.Bool("success", resp.Success),
		zap.Int("errors", len(resp.Errors)),
	)
	return resp, nil
}

func (s *dataService) syncProfile(ctx context.Context, studentID string, p *dto.SyncProfile) error {
	return s.repo.Student.UpsertProfile(ctx, &model.Student{
		StudentID:  studentID,
		Name:       p.Name,
		Email:      p.Email,
		Department: p.Department,
		Grade:      p.Grade,
		LastSync:   s.now(),
	})
}

func (s *dataService) syncCourses(ctx context.Context, studentID string, items []dto.SyncCourseItem) (int, error) {
	rows := make([]model.StudentCourse, 0, len(items))
	for i, c := range items {
		if err := requireKeys(i, c.CourseID, c.CourseName, c.Semester); err != nil {
			return 0, err
		}
		rows = append(rows, model.StudentCourse{
			StudentID:  studentID,
			CourseID:   c.CourseID,
			Semester:   c.Semester,
			CourseName: c.CourseName,
			Instructor: c.Instructor,
			Location:   c.Location,
			TimeSlots:  c.TimeSlots,
			Credits:    c.Credits,
			CourseData: string(c.Raw),
		})
	}
	if err := s.repo.Student.UpsertCourses(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *dataService) syncGrades(ctx context.Context, studentID string, items []dto.SyncGradeItem) (int, error) {
	rows := make([]model.StudentGrade, 0, len(items))
	for i, g := range items {
		if err := requireKeys(i, g.CourseID, g.CourseName, g.Semester); err != nil {
			return 0, err
		}
		rows = append(rows, model.StudentGrade{
			StudentID:  studentID,
			CourseID:   g.CourseID,
			Semester:   g.Semester,
			CourseName: g.CourseName,
			Credits:    g.Credits,
			Grade:      g.Grade,
			GradePoint: g.GradePoint,
			GradeData:  string(g.Raw),
		})
	}
	if err := s.repo.Student.UpsertGrades(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// recordSync 写同步记录并把失败追加到响应；记录本身写入失败只打日志
func (s *dataService) recordSync(ctx context.Context, studentID, syncType string, count int, syncErr error, resp *dto.SyncDataResponse) {
	log := &model.SyncLog{
		StudentID: studentID,
		SyncType:  syncType,
		Status:    model.SyncStatusSuccess,
		SyncedAt:  s.now(),
	}
	if syncErr != nil {
		log.Status = model.SyncStatusError
		log.ErrorMessage = syncErr.Error()
		resp.Errors = append(resp.Errors, dto.SyncError{Type: syncType, Error: syncErr.Error()})
		s.logger.Warn("同步部分失败", zap.String("student_id", studentID), zap.String("type", syncType), zap.Error(syncErr))
	} else {
		log.DataCount = &count
	}

	if err := s.repo.SyncLog.Create(ctx, log); err != nil {
		s.logger.Error("写入同步记录失败", zap.String("student_id", studentID), zap.Error(err))
	}
}

func requireKeys(i int, courseID, courseName, semester string) error {
	var missing []string
	if strings.TrimSpace(courseID) == "" {
		missing = append(missing, "courseId")
	}
	if strings.TrimSpace(courseName) == "" {
		missing = append(missing, "courseName")
	}
	if strings.TrimSpace(semester) == "" {
		missing = append(missing, "semester")
	}
	if len(missing) > 0 {
		return fmt.Errorf("第 %d 笔缺少 %s", i, strings.Join(missing, ", "))
	}
	return nil
}

// ────────────────────── 查询 ──────────────────────

func (s *dataService) GetProfile(ctx context.Context, studentID string) (*model.Student, error) {
	student, err := s.repo.Student.GetProfile(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生资料失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return student, nil
}

func (s *dataService) GetCourses(ctx context.Context, studentID, semester string) ([]model.StudentCourse, error) {
	courses, err := s.repo.Student.ListCourses(ctx, studentID, semester)
	if err != nil {
		s.logger.Error("查询课表失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if courses == nil {
		courses = make([]model.StudentCourse, 0)
	}
	return courses, nil
}

func (s *dataService) GetGrades(ctx context.Context, studentID, semester string) ([]model.StudentGrade, error) {
	grades, err := s.repo.Student.ListGrades(ctx, studentID, semester)
	if err != nil {
		s.logger.Error("查询成绩失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if grades == nil {
		grades = make([]model.StudentGrade, 0)
	}
	return grades, nil
}

// GetGPA 学分加权平均，保留两位小数；没有带绩点的成绩时返回 0 与提示
func (s *dataService) GetGPA(ctx context.Context, studentID, semester string) (*dto.GPAResponse, error) {
	stat, err := s.repo.Student.GPA(ctx, studentID, semester)
	if err != nil {
		s.logger.Error("计算 GPA 失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if stat == nil || stat.GPA == nil {
		return &dto.GPAResponse{GPA: 0, TotalCredits: 0, Message: noGradeMessage}, nil
	}

	resp := &dto.GPAResponse{GPA: math.Round(*stat.GPA*100) / 100}
	if stat.TotalCredits != nil {
		resp.TotalCredits = *stat.TotalCredits
	}
	return resp, nil
}

// GetSyncLogs limit 缺省 10，上限 100
func (s *dataService) GetSyncLogs(ctx context.Context, studentID string, limit int) ([]model.SyncLog, error) {
	if limit <= 0 {
		limit = DefaultSyncLogLimit
	}
	if limit > MaxSyncLogLimit {
		limit = MaxSyncLogLimit
	}
	logs, err := s.repo.SyncLog.ListRecent(ctx, studentID, limit)
	if err != nil {
		s.logger.Error("查询同步记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if logs == nil {
		logs = make([]model.SyncLog, 0)
	}
	return logs, nil
}

// GetAll 基本资料 + 课表 + 成绩 + GPA + 最近 5 条同步记录；没有基本资料时返回 ErrStudentNotFound
func (s *dataService) GetAll(ctx context.Context, studentID string) (*dto.StudentDataResponse, error) {
	profile, err := s.GetProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	courses, err := s.GetCourses(ctx, studentID, "")
	if err != nil {
		return nil, err
	}
	grades, err := s.GetGrades(ctx, studentID, "")
	if err != nil {
		return nil, err
	}
	gpa, err := s.GetGPA(ctx, studentID, "")
	if err != nil {
		return nil, err
	}
	logs, err := s.GetSyncLogs(ctx, studentID, allDataSyncLogLimit)
	if err != nil {
		return nil, err
	}

	return &dto.StudentDataResponse{
		Profile:  profile,
		Courses:  courses,
		Grades:   grades,
		GPA:      *gpa,
		SyncLogs: logs,
	}, nil
}
