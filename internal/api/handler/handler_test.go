package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/api/middleware"
	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/service"
	pkgerrors "github.com/changrun1/QAQ-backend/pkg/errors"
	"github.com/changrun1/QAQ-backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock CourseService ──

type mockCourseService struct {
	searchParams *dto.CourseSearchParams
	searchResult []model.CourseWithDetails
	err          error
	gradeCode    string
	programType  model.ProgramType
	year         string
	semester     string
	colleges     *model.CollegeStructure
	detailResult []model.CourseSyllabus
}

func (m *mockCourseService) Search(_ context.Context, p *dto.CourseSearchParams) ([]model.CourseWithDetails, error) {
	m.searchParams = p
	return m.searchResult, m.err
}
func (m *mockCourseService) GetColleges(_ context.Context, year, semester string) (*model.CollegeStructure, error) {
	m.year, m.semester = year, semester
	return m.colleges, m.err
}
func (m *mockCourseService) GetCoursesByGrade(_ context.Context, gradeCode, year, semester string) ([]model.CourseWithDetails, error) {
	m.gradeCode, m.year, m.semester = gradeCode, year, semester
	return m.searchResult, m.err
}
func (m *mockCourseService) GetPrograms(_ context.Context, _, _ string) (*model.ProgramStructure, error) {
	return &model.ProgramStructure{}, m.err
}
func (m *mockCourseService) GetCoursesByProgram(_ context.Context, _ string, pt model.ProgramType, _, _ string) ([]model.CourseWithDetails, error) {
	m.programType = pt
	return m.searchResult, m.err
}
func (m *mockCourseService) GetCourseDetail(_ context.Context, _, _, _ string) ([]model.CourseSyllabus, error) {
	return m.detailResult, m.err
}

// ── Mock ClassroomService ──

type mockClassroomService struct {
	day     model.Weekday
	periods []string
	result  []model.ClassroomAvailability
}

func (m *mockClassroomService) GetEmptyClassrooms(_ context.Context, day model.Weekday, periods []string, _, _, _ string) ([]model.ClassroomAvailability, error) {
	m.day, m.periods = day, periods
	return m.result, nil
}

// ── Mock CalendarService ──

type mockCalendarService struct {
	out   string
	err   error
	weeks int
}

func (m *mockCalendarService) ExportGradeCalendar(_ context.Context, _, _, _ string, weeks int) (string, error) {
	m.weeks = weeks
	return m.out, m.err
}

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.LoginResponse
	loginErr      error
	logoutErr     error
	logoutSession string
	currentResult *dto.UserResponse
	currentErr    error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.LoginResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) ValidateSession(_ context.Context, sessionID string) (*model.UserSession, error) {
	return &model.UserSession{StudentID: "111590001", SessionID: sessionID}, nil
}
func (m *mockAuthService) Logout(_ context.Context, sessionID string) error {
	m.logoutSession = sessionID
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.currentResult, m.currentErr
}
func (m *mockAuthService) CleanupExpiredSessions(_ context.Context) (int64, error) {
	return 0, nil
}

// ── Mock DataService ──

type mockDataService struct {
	syncResult *dto.SyncDataResponse
	syncCalled bool
	err        error
	limit      int
	semester   string
}

func (m *mockDataService) Sync(_ context.Context, _ *dto.SyncDataRequest) (*dto.SyncDataResponse, error) {
	m.syncCalled = true
	return m.syncResult, m.err
}
func (m *mockDataService) GetProfile(_ context.Context, id string) (*model.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.Student{StudentID: id}, nil
}
func (m *mockDataService) GetCourses(_ context.Context, _, semester string) ([]model.StudentCourse, error) {
	m.semester = semester
	return []model.StudentCourse{{CourseID: "350831"}}, m.err
}
func (m *mockDataService) GetGrades(_ context.Context, _, _ string) ([]model.StudentGrade, error) {
	return []model.StudentGrade{}, m.err
}
func (m *mockDataService) GetGPA(_ context.Context, _, _ string) (*dto.GPAResponse, error) {
	return &dto.GPAResponse{GPA: 3.6, TotalCredits: 5}, m.err
}
func (m *mockDataService) GetSyncLogs(_ context.Context, _ string, limit int) ([]model.SyncLog, error) {
	m.limit = limit
	return []model.SyncLog{}, m.err
}
func (m *mockDataService) GetAll(_ context.Context, _ string) (*dto.StudentDataResponse, error) {
	return &dto.StudentDataResponse{}, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportStudentData(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

var testDataCfg = &config.DataConfig{DefaultYear: "114", DefaultSemester: "1"}

func newTestCourseHandler() (*CourseHandler, *mockCourseService, *mockClassroomService, *mockCalendarService) {
	cs, rs, cal := &mockCourseService{}, &mockClassroomService{}, &mockCalendarService{}
	h := NewCourseHandler(testDataCfg, cs, rs, cal)
	// 2025-09-10 为星期三
	h.now = func() time.Time { return time.Date(2025, 9, 10, 12, 0, 0, 0, time.Local) }
	return h, cs, rs, cal
}

func setAuth(c *gin.Context) {
	c.Set(middleware.ContextStudentID, "111590001")
	c.Set(middleware.ContextSessionID, "JSESSION-1")
}

func withAuth(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		next(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(method, route, target string, body io.Reader, h gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r := gin.New()
	r.Handle(method, route, h)
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// CourseHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCourseHandler_Search_Defaults(t *testing.T) {
	h, cs, _, _ := newTestCourseHandler()
	cs.searchResult = []model.CourseWithDetails{{Course: model.Course{ID: "350831"}}}

	w := serve("GET", "/search", "/search?keyword=831", nil, h.SearchCourses)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cs.searchParams.Year != "114" || cs.searchParams.Semester != "1" {
		t.Errorf("expected default term 114-1, got %s-%s", cs.searchParams.Year, cs.searchParams.Semester)
	}
	if cs.searchParams.Keyword != "831" {
		t.Errorf("expected keyword 831, got %q", cs.searchParams.Keyword)
	}

	var body struct {
		Data response.ListData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Count != 1 {
		t.Errorf("expected count 1, got %d", body.Data.Count)
	}
}

func TestCourseHandler_Search_TimeSlots(t *testing.T) {
	h, cs, _, _ := newTestCourseHandler()

	slots := `[{"day":"MON","periods":["3","4"]},{"day":"wed","periods":["5"]}]`
	w := serve("GET", "/search", "/search?timeSlots="+escape(slots), nil, h.SearchCourses)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := cs.searchParams.TimeSlots
	if len(got) != 2 || got[0].Day != model.Monday || got[1].Day != model.Wednesday {
		t.Errorf("unexpected time slots: %+v", got)
	}
}

func TestCourseHandler_Search_BadTimeSlots(t *testing.T) {
	cases := []string{`not-json`, `{"day":"mon"}`, `[{"day":"xyz","periods":["1"]}]`}
	for _, raw := range cases {
		h, cs, _, _ := newTestCourseHandler()
		w := serve("GET", "/search", "/search?timeSlots="+escape(raw), nil, h.SearchCourses)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", raw, w.Code)
		}
		if resp := parseResponse(w); resp.Code != 10001 {
			t.Errorf("%s: expected code 10001, got %d", raw, resp.Code)
		}
		if cs.searchParams != nil {
			t.Errorf("%s: engine should not be called", raw)
		}
	}
}

func TestCourseHandler_Search_BadProgramType(t *testing.T) {
	h, _, _, _ := newTestCourseHandler()

	w := serve("GET", "/search", "/search?programCode=AV2&programType=minor", nil, h.SearchCourses)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCourseHandler_Search_DataIntegrity(t *testing.T) {
	h, cs, _, _ := newTestCourseHandler()
	cs.err = fmt.Errorf("%w: main.json: unexpected EOF", pkgerrors.ErrDataIntegrity)

	w := serve("GET", "/search", "/search", nil, h.SearchCourses)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 50001 || resp.Details == "" {
		t.Errorf("expected code 50001 with details, got %+v", resp)
	}
}

func TestCourseHandler_GetColleges(t *testing.T) {
	h, cs, _, _ := newTestCourseHandler()
	cs.colleges = &model.CollegeStructure{Year: "113", Semester: "2"}

	w := serve("GET", "/colleges", "/colleges?year=113&semester=2", nil, h.GetColleges)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cs.year != "113" || cs.semester != "2" {
		t.Errorf("expected term 113-2, got %s-%s", cs.year, cs.semester)
	}

	cs.err = service.ErrCollegeStructureNotFound
	w = serve("GET", "/colleges", "/colleges", nil, h.GetColleges)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCourseHandler_GetCoursesByGrade_Required(t *testing.T) {
	h, cs, _, _ := newTestCourseHandler()

	w := serve("GET", "/by-grade", "/by-grade", nil, h.GetCoursesByGrade)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	cs.searchResult = []model.CourseWithDetails{}
	w = serve("GET", "/by-grade", "/by-grade?gradeCode=482", nil, h.GetCoursesByGrade)
	if w.Code != http.StatusOK || cs.gradeCode != "482" {
		t.Errorf("expected 200 with gradeCode 482, got %d %q", w.Code, cs.gradeCode)
	}
}

func TestCourseHandler_GetCoursesByProgram_TypeDefault(t *testing.T) {
	h, cs, _, _ := newTestCourseHandler()

	w := serve("GET", "/by-program", "/by-program?programCode=AV2", nil, h.GetCoursesByProgram)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if cs.programType != model.ProgramTypeMicroProgram {
		t.Errorf("expected default micro-program, got %q", cs.programType)
	}

	w = serve("GET", "/by-program", "/by-program?programCode=AV2&type=bogus", nil, h.GetCoursesByProgram)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCourseHandler_GetCourseDetail_NotFound(t *testing.T) {
	h, cs, _, _ := newTestCourseHandler()
	cs.err = service.ErrCourseDetailNotFound

	w := serve("GET", "/detail/:courseId", "/detail/999999", nil, h.GetCourseDetail)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16003 {
		t.Errorf("expected code 16003, got %d", resp.Code)
	}
}

func TestCourseHandler_GetEmptyClassrooms(t *testing.T) {
	h, _, rs, _ := newTestCourseHandler()

	// 缺省为今天（星期三）
	w := serve("GET", "/rooms", "/rooms", nil, h.GetEmptyClassrooms)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if rs.day != model.Wednesday {
		t.Errorf("expected default day wed, got %s", rs.day)
	}
	if rs.periods == nil || len(rs.periods) != 0 {
		t.Errorf("expected empty periods, got %v", rs.periods)
	}

	serve("GET", "/rooms", "/rooms?dayOfWeek=mon&periods="+escape(`["3","4"]`), nil, h.GetEmptyClassrooms)
	if rs.day != model.Monday || strings.Join(rs.periods, ",") != "3,4" {
		t.Errorf("expected mon [3 4], got %s %v", rs.day, rs.periods)
	}

	serve("GET", "/rooms", "/rooms?dayOfWeek=fri&periods=1,%202,N", nil, h.GetEmptyClassrooms)
	if strings.Join(rs.periods, ",") != "1,2,N" {
		t.Errorf("expected comma periods [1 2 N], got %v", rs.periods)
	}

	w = serve("GET", "/rooms", "/rooms?dayOfWeek=funday", nil, h.GetEmptyClassrooms)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCourseHandler_ExportGradeCalendar(t *testing.T) {
	h, _, _, cal := newTestCourseHandler()
	cal.out = "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"

	w := serve("GET", "/cal", "/cal?gradeCode=482&weeks=16", nil, h.ExportGradeCalendar)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("expected text/calendar, got %s", ct)
	}
	if cal.weeks != 16 {
		t.Errorf("expected weeks 16, got %d", cal.weeks)
	}

	w = serve("GET", "/cal", "/cal?gradeCode=482&weeks=99", nil, h.ExportGradeCalendar)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for weeks=99, got %d", w.Code)
	}

	cal.err = service.ErrCalendarEmpty
	w = serve("GET", "/cal", "/cal?gradeCode=000", nil, h.ExportGradeCalendar)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{loginResult: &dto.LoginResponse{SessionID: "JSESSION-1", AccessToken: "tok"}}
	h := NewAuthHandler(mock)

	w := serve("POST", "/login", "/login", jsonBody(dto.LoginRequest{Username: "111590001", Password: "pw"}), h.Login)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/login", "/login", strings.NewReader("invalid json"), h.Login)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = serve("POST", "/login", "/login", jsonBody(map[string]string{"username": "111590001"}), h.Login)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", w.Code)
	}
}

func TestAuthHandler_Login_Rejected(t *testing.T) {
	mock := &mockAuthService{loginErr: &service.LoginRejectedError{Reason: "密碼錯誤"}}
	h := NewAuthHandler(mock)

	w := serve("POST", "/login", "/login", jsonBody(dto.LoginRequest{Username: "u", Password: "p"}), h.Login)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11001 || resp.Message != "密碼錯誤" {
		t.Errorf("expected 11001 with portal message, got %+v", resp)
	}
}

func TestAuthHandler_Login_PortalUnavailable(t *testing.T) {
	mock := &mockAuthService{loginErr: fmt.Errorf("%w: timeout", service.ErrPortalUnavailable)}
	h := NewAuthHandler(mock)

	w := serve("POST", "/login", "/login", jsonBody(dto.LoginRequest{Username: "u", Password: "p"}), h.Login)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestAuthHandler_LogoutAndMe(t *testing.T) {
	mock := &mockAuthService{currentResult: &dto.UserResponse{StudentID: "111590001"}}
	h := NewAuthHandler(mock)

	w := serve("POST", "/logout", "/logout", nil, withAuth(h.Logout))
	if w.Code != http.StatusOK || mock.logoutSession != "JSESSION-1" {
		t.Errorf("expected logout of JSESSION-1, got %d %q", w.Code, mock.logoutSession)
	}

	w = serve("GET", "/me", "/me", nil, withAuth(h.GetCurrentUser))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = serve("GET", "/me", "/me", nil, h.GetCurrentUser)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", w.Code)
	}

	mock.currentErr = service.ErrSessionExpired
	w = serve("GET", "/me", "/me", nil, withAuth(h.GetCurrentUser))
	if resp := parseResponse(w); w.Code != http.StatusUnauthorized || resp.Code != 11002 {
		t.Errorf("expected 401/11002, got %d/%d", w.Code, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// DataHandler Tests
// ═══════════════════════════════════════════════════════════

func TestDataHandler_Sync(t *testing.T) {
	mock := &mockDataService{syncResult: &dto.SyncDataResponse{Success: true, StudentID: "111590001"}}
	h := NewDataHandler(mock)

	w := serve("POST", "/sync", "/sync", jsonBody(map[string]interface{}{"studentId": "111590001"}), withAuth(h.Sync))
	if w.Code != http.StatusOK || !mock.syncCalled {
		t.Errorf("expected 200 and sync called, got %d", w.Code)
	}
}

func TestDataHandler_Sync_OtherStudent(t *testing.T) {
	mock := &mockDataService{}
	h := NewDataHandler(mock)

	w := serve("POST", "/sync", "/sync", jsonBody(map[string]interface{}{"studentId": "999"}), withAuth(h.Sync))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
	if mock.syncCalled {
		t.Error("sync should not be called for another student")
	}
}

func TestDataHandler_Sync_MissingStudentID(t *testing.T) {
	h := NewDataHandler(&mockDataService{})

	w := serve("POST", "/sync", "/sync", jsonBody(map[string]interface{}{"profile": map[string]string{"name": "x"}}), withAuth(h.Sync))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestDataHandler_Queries(t *testing.T) {
	mock := &mockDataService{}
	h := NewDataHandler(mock)

	w := serve("GET", "/:studentId/courses", "/111590001/courses?semester=114-1", nil, h.GetCourses)
	if w.Code != http.StatusOK || mock.semester != "114-1" {
		t.Errorf("expected 200 with semester 114-1, got %d %q", w.Code, mock.semester)
	}

	w = serve("GET", "/:studentId/sync-logs", "/111590001/sync-logs?limit=5", nil, h.GetSyncLogs)
	if w.Code != http.StatusOK || mock.limit != 5 {
		t.Errorf("expected 200 with limit 5, got %d %d", w.Code, mock.limit)
	}

	w = serve("GET", "/:studentId/sync-logs", "/111590001/sync-logs?limit=-1", nil, h.GetSyncLogs)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", w.Code)
	}

	w = serve("GET", "/:studentId/gpa", "/111590001/gpa", nil, h.GetGPA)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestDataHandler_ProfileNotFound(t *testing.T) {
	h := NewDataHandler(&mockDataService{err: service.ErrStudentNotFound})

	w := serve("GET", "/:studentId/profile", "/111590001/profile", nil, h.GetProfile)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 17001 {
		t.Errorf("expected code 17001, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportStudentData(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "111590001_课表成绩.xlsx"}
	h := NewExportHandler(mock)

	w := serve("GET", "/:studentId/export", "/111590001/export", nil, h.ExportStudentData)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "UTF-8''111590001_") {
		t.Errorf("unexpected content disposition %s", cd)
	}

	mock.err = service.ErrStudentNotFound
	w = serve("GET", "/:studentId/export", "/111590001/export", nil, h.ExportStudentData)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// escape 查询参数转义
func escape(s string) string {
	return strings.NewReplacer("%", "%25", "&", "%26", "#", "%23", " ", "%20", "\"", "%22", "[", "%5B", "]", "%5D", "{", "%7B", "}", "%7D", ",", "%2C", ":", "%3A").Replace(s)
}
