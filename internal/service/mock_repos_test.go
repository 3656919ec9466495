package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
	"github.com/changrun1/QAQ-backend/pkg/portal"
)

// ── Mock DocumentStore ──

// mockDocumentStore 以 "year/semester" 为键的内存文档
type mockDocumentStore struct {
	courses     map[string]map[string][]model.Course // term → category → courses
	syllabus    map[string][]model.CourseSyllabus    // term/courseID
	departments map[string][]model.DepartmentRaw
	programs    map[string][]model.Program
	err         error // 非 nil 时所有读取返回该错误（模拟数据损坏）
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{
		courses:     make(map[string]map[string][]model.Course),
		syllabus:    make(map[string][]model.CourseSyllabus),
		departments: make(map[string][]model.DepartmentRaw),
		programs:    make(map[string][]model.Program),
	}
}

func termKey(year, semester string) string { return year + "/" + semester }

func (m *mockDocumentStore) putCourses(year, semester, category string, courses ...model.Course) {
	k := termKey(year, semester)
	if m.courses[k] == nil {
		m.courses[k] = make(map[string][]model.Course)
	}
	m.courses[k][category] = append(m.courses[k][category], courses...)
}

func (m *mockDocumentStore) LoadCourses(_ context.Context, year, semester, category string) ([]model.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.courses[termKey(year, semester)][category], nil
}

func (m *mockDocumentStore) LoadSyllabus(_ context.Context, courseID, year, semester string) ([]model.CourseSyllabus, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	s, ok := m.syllabus[termKey(year, semester)+"/"+courseID]
	return s, ok, nil
}

func (m *mockDocumentStore) LoadDepartments(_ context.Context, year, semester string) ([]model.DepartmentRaw, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	d, ok := m.departments[termKey(year, semester)]
	return d, ok, nil
}

func (m *mockDocumentStore) LoadPrograms(_ context.Context, year, semester string) ([]model.Program, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	p, ok := m.programs[termKey(year, semester)]
	return p, ok, nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	byStudent map[string]*model.UserSession
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{byStudent: make(map[string]*model.UserSession)}
}

func (m *mockSessionRepo) Upsert(_ context.Context, session *model.UserSession) error {
	cp := *session
	m.byStudent[session.StudentID] = &cp
	return nil
}

func (m *mockSessionRepo) GetBySessionID(_ context.Context, sessionID string, now time.Time) (*model.UserSession, error) {
	for _, s := range m.byStudent {
		if s.SessionID == sessionID && !s.Expired(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) DeleteBySessionID(_ context.Context, sessionID string) error {
	for k, s := range m.byStudent {
		if s.SessionID == sessionID {
			delete(m.byStudent, k)
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, s := range m.byStudent {
		if s.Expired(now) {
			delete(m.byStudent, k)
			n++
		}
	}
	return n, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	profiles  map[string]*model.Student
	courses   map[string]model.StudentCourse // student/course/semester
	grades    map[string]model.StudentGrade
	courseErr error
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{
		profiles: make(map[string]*model.Student),
		courses:  make(map[string]model.StudentCourse),
		grades:   make(map[string]model.StudentGrade),
	}
}

func rowKey(studentID, courseID, semester string) string {
	return studentID + "/" + courseID + "/" + semester
}

func (m *mockStudentRepo) UpsertProfile(_ context.Context, student *model.Student) error {
	cp := *student
	m.profiles[student.StudentID] = &cp
	return nil
}

func (m *mockStudentRepo) GetProfile(_ context.Context, studentID string) (*model.Student, error) {
	if p, ok := m.profiles[studentID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) UpsertCourses(_ context.Context, courses []model.StudentCourse) error {
	if m.courseErr != nil {
		return m.courseErr
	}
	for _, c := range courses {
		m.courses[rowKey(c.StudentID, c.CourseID, c.Semester)] = c
	}
	return nil
}

func (m *mockStudentRepo) ListCourses(_ context.Context, studentID, semester string) ([]model.StudentCourse, error) {
	var out []model.StudentCourse
	for _, c := range m.courses {
		if c.StudentID == studentID && (semester == "" || c.Semester == semester) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (m *mockStudentRepo) UpsertGrades(_ context.Context, grades []model.StudentGrade) error {
	for _, g := range grades {
		m.grades[rowKey(g.StudentID, g.CourseID, g.Semester)] = g
	}
	return nil
}

func (m *mockStudentRepo) ListGrades(_ context.Context, studentID, semester string) ([]model.StudentGrade, error) {
	var out []model.StudentGrade
	for _, g := range m.grades {
		if g.StudentID == studentID && (semester == "" || g.Semester == semester) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (m *mockStudentRepo) GPA(ctx context.Context, studentID, semester string) (*repository.GPAStat, error) {
	grades, _ := m.ListGrades(ctx, studentID, semester)
	var points, credits float64
	found := false
	for _, g := range grades {
		if g.GradePoint == nil || g.Credits == nil {
			continue
		}
		found = true
		points += *g.Credits * *g.GradePoint
		credits += *g.Credits
	}
	if !found || credits == 0 {
		return &repository.GPAStat{}, nil
	}
	gpa := points / credits
	return &repository.GPAStat{GPA: &gpa, TotalCredits: &credits}, nil
}

// ── Mock SyncLogRepository ──

type mockSyncLogRepo struct {
	logs []model.SyncLog
	err  error
}

func (m *mockSyncLogRepo) Create(_ context.Context, log *model.SyncLog) error {
	if m.err != nil {
		return m.err
	}
	log.ID = uint(len(m.logs) + 1)
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockSyncLogRepo) ListRecent(_ context.Context, studentID string, limit int) ([]model.SyncLog, error) {
	var out []model.SyncLog
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].StudentID == studentID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

// ── Mock 入口与会话缓存 ──

type mockPortal struct {
	result *portal.LoginResult
	err    error
	alive  bool
}

func (m *mockPortal) Login(_ context.Context, _, _ string) (*portal.LoginResult, error) {
	return m.result, m.err
}

func (m *mockPortal) CheckSession(_ context.Context, _ string) bool {
	return m.alive
}

type mockSessionCache struct {
	entries map[string]cachedSession
	getErr  error
}

func newMockSessionCache() *mockSessionCache {
	return &mockSessionCache{entries: make(map[string]cachedSession)}
}

func (m *mockSessionCache) SetSession(_ context.Context, sessionID string, v interface{}, _ time.Duration) error {
	cs, ok := v.(cachedSession)
	if !ok {
		return errors.New("unexpected cache value")
	}
	m.entries[sessionID] = cs
	return nil
}

func (m *mockSessionCache) GetSession(_ context.Context, sessionID string, dst interface{}) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	cs, ok := m.entries[sessionID]
	if !ok {
		return false, nil
	}
	*(dst.(*cachedSession)) = cs
	return true, nil
}

func (m *mockSessionCache) DeleteSession(_ context.Context, sessionID string) error {
	delete(m.entries, sessionID)
	return nil
}

// ── 测试辅助 ──

type testRepos struct {
	repo     *repository.Repository
	docs     *mockDocumentStore
	sessions *mockSessionRepo
	students *mockStudentRepo
	syncLogs *mockSyncLogRepo
}

func newTestRepos() *testRepos {
	r := &testRepos{
		docs:     newMockDocumentStore(),
		sessions: newMockSessionRepo(),
		students: newMockStudentRepo(),
		syncLogs: &mockSyncLogRepo{},
	}
	r.repo = &repository.Repository{
		Documents: r.docs,
		Session:   r.sessions,
		Student:   r.students,
		SyncLog:   r.syncLogs,
	}
	return r
}

var testLogger = zap.NewNop()

func floatPtr(v float64) *float64 { return &v }
