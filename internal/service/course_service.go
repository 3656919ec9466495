package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
)

// ── 课程查询模块业务错误 ──

var (
	ErrCollegeStructureNotFound = errors.New("找不到该学期的学院结构")
	ErrProgramStructureNotFound = errors.New("找不到该学期的学程资料")
	ErrCourseDetailNotFound     = errors.New("找不到课程详细资料")
)

// CourseService 课程查询业务接口
type CourseService interface {
	// Search 综合搜索：gradeCode 优先，其次 programCode+programType，否则走一般筛选
	Search(ctx context.Context, params *dto.CourseSearchParams) ([]model.CourseWithDetails, error)
	GetColleges(ctx context.Context, year, semester string) (*model.CollegeStructure, error)
	GetCoursesByGrade(ctx context.Context, gradeCode, year, semester string) ([]model.CourseWithDetails, error)
	GetPrograms(ctx context.Context, year, semester string) (*model.ProgramStructure, error)
	GetCoursesByProgram(ctx context.Context, programCode string, programType model.ProgramType, year, semester string) ([]model.CourseWithDetails, error)
	GetCourseDetail(ctx context.Context, courseID, year, semester string) ([]model.CourseSyllabus, error)
}

type courseService struct {
	docs     repository.DocumentStore
	catalog  *Catalog
	colleges *CollegeResolver
	programs *ProgramResolver
	logger   *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{
		docs:     repo.Documents,
		catalog:  NewCatalog(repo.Documents),
		colleges: NewCollegeResolver(repo.Documents),
		programs: NewProgramResolver(repo.Documents),
		logger:   logger,
	}
}

// ────────────────────── Search ──────────────────────

func (s *courseService) Search(ctx context.Context, params *dto.CourseSearchParams) ([]model.CourseWithDetails, error) {
	// 1. 班级代码：直接走班级查询，忽略其它条件
	if params.GradeCode != "" {
		return s.GetCoursesByGrade(ctx, params.GradeCode, params.Year, params.Semester)
	}

	// 2. 学程代码 + 类型：直接走学程查询
	if params.ProgramCode != "" && params.ProgramType != "" {
		return s.GetCoursesByProgram(ctx, params.ProgramCode, params.ProgramType, params.Year, params.Semester)
	}

	// 3. 一般筛选
	courses, err := s.catalog.Aggregate(ctx, params.Year, params.Semester)
	if err != nil {
		return nil, err
	}
	total := len(courses)

	if strings.TrimSpace(params.Keyword) != "" {
		courses = filterCourses(courses, keywordPredicate(params.Keyword))
	}

	if params.Category != "" {
		courses = filterCourses(courses, categoryPredicate(params.Category))
	}

	// 学院是软条件：结构或学院名不存在时不过滤
	if params.College != "" {
		structure, err := s.colleges.ResolveColleges(ctx, params.Year, params.Semester)
		if err != nil {
			return nil, err
		}
		if structure != nil {
			if college, ok := structure.FindCollege(params.College); ok {
				courses = filterCourses(courses, gradePredicate(college.GradeIDs()))
			}
		}
	}

	if len(params.TimeSlots) > 0 {
		courses = filterCourses(courses, timeSlotPredicate(params.TimeSlots))
	}

	s.logger.Debug("课程搜索完成",
		zap.String("year", params.Year),
		zap.String("semester", params.Semester),
		zap.Int("total", total),
		zap.Int("matched", len(courses)),
	)

	// 一般搜索不附带大纲，前端需要时按课号单独请求
	return withoutSyllabus(courses), nil
}

// ────────────────────── Colleges ──────────────────────

func (s *courseService) GetColleges(ctx context.Context, year, semester string) (*model.CollegeStructure, error) {
	structure, err := s.colleges.ResolveColleges(ctx, year, semester)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, ErrCollegeStructureNotFound
	}
	return structure, nil
}

// ────────────────────── By grade ──────────────────────

// GetCoursesByGrade 班级代码为主键的精确查询，查无结果返回空切片
func (s *courseService) GetCoursesByGrade(ctx context.Context, gradeCode, year, semester string) ([]model.CourseWithDetails, error) {
	courses, err := s.catalog.Aggregate(ctx, year, semester)
	if err != nil {
		return nil, err
	}
	matched := filterCourses(courses, gradeCodePredicate(gradeCode))
	return s.attachSyllabus(ctx, matched, year, semester)
}

// ────────────────────── Programs ──────────────────────

func (s *courseService) GetPrograms(ctx context.Context, year, semester string) (*model.ProgramStructure, error) {
	structure, err := s.programs.ResolvePrograms(ctx, year, semester)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return nil, ErrProgramStructureNotFound
	}
	return structure, nil
}

// GetCoursesByProgram 学程代码精确匹配；学程资料或代码不存在时返回空切片
func (s *courseService) GetCoursesByProgram(ctx context.Context, programCode string, programType model.ProgramType, year, semester string) ([]model.CourseWithDetails, error) {
	structure, err := s.programs.ResolvePrograms(ctx, year, semester)
	if err != nil {
		return nil, err
	}
	if structure == nil {
		return []model.CourseWithDetails{}, nil
	}
	program, ok := structure.ByID(programCode)
	if !ok {
		s.logger.Debug("学程代码不存在", zap.String("programCode", programCode), zap.String("type", string(programType)))
		return []model.CourseWithDetails{}, nil
	}

	courses, err := s.catalog.Aggregate(ctx, year, semester)
	if err != nil {
		return nil, err
	}
	matched := filterCourses(courses, courseIDPredicate(program.CourseSet()))
	return s.attachSyllabus(ctx, matched, year, semester)
}

// ────────────────────── Detail ──────────────────────

func (s *courseService) GetCourseDetail(ctx context.Context, courseID, year, semester string) ([]model.CourseSyllabus, error) {
	syllabus, found, err := s.docs.LoadSyllabus(ctx, courseID, year, semester)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCourseDetailNotFound
	}
	return syllabus, nil
}

// ── 内部方法 ──

// attachSyllabus 逐门读取大纲；大纲不存在时该字段省略
func (s *courseService) attachSyllabus(ctx context.Context, courses []model.Course, year, semester string) ([]model.CourseWithDetails, error) {
	result := make([]model.CourseWithDetails, 0, len(courses))
	for _, c := range courses {
		syllabus, found, err := s.docs.LoadSyllabus(ctx, c.ID, year, semester)
		if err != nil {
			return nil, err
		}
		item := model.CourseWithDetails{Course: c}
		if found {
			item.Syllabus = syllabus
		}
		result = append(result, item)
	}
	return result, nil
}

func withoutSyllabus(courses []model.Course) []model.CourseWithDetails {
	result := make([]model.CourseWithDetails, 0, len(courses))
	for _, c := range courses {
		result = append(result, model.CourseWithDetails{Course: c})
	}
	return result
}
