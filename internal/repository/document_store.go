package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/internal/model"
	pkgerrors "github.com/changrun1/QAQ-backend/pkg/errors"
)

// 开课类别，对应 <year>/<semester>/<category>.json；顺序即汇总顺序
const (
	CategoryMain     = "main"
	CategoryEvening  = "進修部"
	CategoryGraduate = "研究所(日間部、進修部、週末碩士班)"
)

// CourseCategories 固定的三个开课类别（日间部、进修部、研究所）
var CourseCategories = []string{CategoryMain, CategoryEvening, CategoryGraduate}

// pathToken 年度、学期、课程编号只允许出现在文件名中的安全字符
var pathToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// DocumentStore 爬虫静态数据访问接口
//
// 文件不存在是正常情况（该学期尚未爬取），返回空结果而不是错误；
// 文件存在但无法解析或不满足结构约束时，返回包装了 pkgerrors.ErrDataIntegrity 的错误。
// 返回的切片可能来自缓存，调用方只读不写。
type DocumentStore interface {
	LoadCourses(ctx context.Context, year, semester, category string) ([]model.Course, error)
	LoadSyllabus(ctx context.Context, courseID, year, semester string) ([]model.CourseSyllabus, bool, error)
	LoadDepartments(ctx context.Context, year, semester string) ([]model.DepartmentRaw, bool, error)
	LoadPrograms(ctx context.Context, year, semester string) ([]model.Program, bool, error)
}

// fileDocumentStore DocumentStore 的文件系统实现
type fileDocumentStore struct {
	root   string
	cache  *DocumentCache // nil 表示不缓存，每次都重新读取
	logger *zap.Logger
}

// NewDocumentStore 创建基于爬虫输出目录的 DocumentStore；cache 可为 nil
func NewDocumentStore(root string, cache *DocumentCache, logger *zap.Logger) DocumentStore {
	return &fileDocumentStore{root: root, cache: cache, logger: logger}
}

func (s *fileDocumentStore) LoadCourses(ctx context.Context, year, semester, category string) ([]model.Course, error) {
	if !validCategory(category) || !pathToken.MatchString(year) || !pathToken.MatchString(semester) {
		return nil, nil
	}
	path := filepath.Join(s.root, year, semester, category+".json")

	v, found, err := s.load(ctx, path, decodeCourses)
	if err != nil || !found {
		return nil, err
	}
	return v.([]model.Course), nil
}

func (s *fileDocumentStore) LoadSyllabus(ctx context.Context, courseID, year, semester string) ([]model.CourseSyllabus, bool, error) {
	if !pathToken.MatchString(courseID) || !pathToken.MatchString(year) || !pathToken.MatchString(semester) {
		return nil, false, nil
	}
	path := filepath.Join(s.root, year, semester, "course", courseID+".json")

	v, found, err := s.load(ctx, path, decodeSyllabus)
	if err != nil || !found {
		return nil, false, err
	}
	return v.([]model.CourseSyllabus), true, nil
}

func (s *fileDocumentStore) LoadDepartments(ctx context.Context, year, semester string) ([]model.DepartmentRaw, bool, error) {
	if !pathToken.MatchString(year) || !pathToken.MatchString(semester) {
		return nil, false, nil
	}
	path := filepath.Join(s.root, year, semester, "department.json")

	v, found, err := s.load(ctx, path, decodeDepartments)
	if err != nil || !found {
		return nil, false, err
	}
	return v.([]model.DepartmentRaw), true, nil
}

func (s *fileDocumentStore) LoadPrograms(ctx context.Context, year, semester string) ([]model.Program, bool, error) {
	if !pathToken.MatchString(year) || !pathToken.MatchString(semester) {
		return nil, false, nil
	}
	path := filepath.Join(s.root, year, semester, "mprogram.json")

	v, found, err := s.load(ctx, path, decodePrograms)
	if err != nil || !found {
		return nil, false, err
	}
	return v.([]model.Program), true, nil
}

// load 读取并解码单个文档；缓存命中条件为 mtime 与 size 均未变化
func (s *fileDocumentStore) load(ctx context.Context, path string, decode decodeFunc) (interface{}, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("文档不存在", zap.String("path", path))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取文档信息失败 %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, false, nil
	}

	if s.cache != nil {
		if v, ok := s.cache.get(path, info); ok {
			return v, true, nil
		}
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取文档失败 %s: %w", path, err)
	}

	v, err := decode(b)
	if err != nil {
		s.logger.Error("爬虫文档格式错误", zap.String("path", path), zap.Error(err))
		return nil, false, fmt.Errorf("%w: %s: %v", pkgerrors.ErrDataIntegrity, path, err)
	}

	if s.cache != nil {
		s.cache.put(path, info, v)
	}
	return v, true, nil
}

func validCategory(category string) bool {
	for _, c := range CourseCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ── 解码与结构校验 ──

type decodeFunc func([]byte) (interface{}, error)

func decodeCourses(b []byte) (interface{}, error) {
	var courses []model.Course
	if err := json.Unmarshal(b, &courses); err != nil {
		return nil, err
	}
	for i := range courses {
		if err := courses[i].Validate(); err != nil {
			return nil, fmt.Errorf("第 %d 笔: %w", i, err)
		}
	}
	return courses, nil
}

func decodeSyllabus(b []byte) (interface{}, error) {
	var syllabus []model.CourseSyllabus
	if err := json.Unmarshal(b, &syllabus); err != nil {
		return nil, err
	}
	return syllabus, nil
}

func decodeDepartments(b []byte) (interface{}, error) {
	var departments []model.DepartmentRaw
	if err := json.Unmarshal(b, &departments); err != nil {
		return nil, err
	}
	for i := range departments {
		if err := departments[i].Validate(); err != nil {
			return nil, fmt.Errorf("第 %d 笔: %w", i, err)
		}
	}
	return departments, nil
}

func decodePrograms(b []byte) (interface{}, error) {
	var programs []model.Program
	if err := json.Unmarshal(b, &programs); err != nil {
		return nil, err
	}
	for i := range programs {
		if err := programs[i].Validate(); err != nil {
			return nil, fmt.Errorf("第 %d 笔: %w", i, err)
		}
	}
	return programs, nil
}
