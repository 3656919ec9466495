//go:build cgo

package repository_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
	"github.com/changrun1/QAQ-backend/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

// newTestDB 每个测试使用独立的内存数据库，并执行正式迁移脚本
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取 sql.DB 失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.RunMigrations(sqlDB, database.DriverSQLite, zap.NewNop()); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func f64(v float64) *float64 { return &v }

// ═══════════════════════════════════════════════════════════
// Session
// ═══════════════════════════════════════════════════════════

func TestSessionRepo_UpsertAndExpire(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSessionRepo(db)
	ctx := context.Background()
	now := time.Now()

	if err := repo.Upsert(ctx, &model.UserSession{StudentID: "110590001", SessionID: "old", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("Upsert 应成功: %v", err)
	}
	// 再次登录覆盖旧会话
	if err := repo.Upsert(ctx, &model.UserSession{StudentID: "110590001", SessionID: "new", Name: "王小明", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("重复 Upsert 应成功: %v", err)
	}

	if _, err := repo.GetBySessionID(ctx, "old", now); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("旧会话应失效，实际: %v", err)
	}
	s, err := repo.GetBySessionID(ctx, "new", now)
	if err != nil {
		t.Fatalf("GetBySessionID 应成功: %v", err)
	}
	if s.Name != "王小明" {
		t.Errorf("期望 Name=王小明，实际=%s", s.Name)
	}

	// 过期后查询不到，并可被清理
	if _, err := repo.GetBySessionID(ctx, "new", now.Add(2*time.Hour)); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("过期会话不应返回，实际: %v", err)
	}
	n, err := repo.DeleteExpired(ctx, now.Add(2*time.Hour))
	if err != nil || n != 1 {
		t.Errorf("期望清理 1 条，实际 n=%d err=%v", n, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Student data
// ═══════════════════════════════════════════════════════════

func TestStudentRepo_UpsertCoursesIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewStudentRepo(db)
	ctx := context.Background()

	courses := []model.StudentCourse{
		{StudentID: "s1", CourseID: "350831", Semester: "114-1", CourseName: "資料結構"},
		{StudentID: "s1", CourseID: "350832", Semester: "114-1", CourseName: "演算法"},
	}
	if err := repo.UpsertCourses(ctx, courses); err != nil {
		t.Fatalf("UpsertCourses 应成功: %v", err)
	}
	renamed := []model.StudentCourse{
		{StudentID: "s1", CourseID: "350831", Semester: "114-1", CourseName: "資料結構(更新)"},
	}
	if err := repo.UpsertCourses(ctx, renamed); err != nil {
		t.Fatalf("重复 UpsertCourses 应成功: %v", err)
	}

	list, err := repo.ListCourses(ctx, "s1", "114-1")
	if err != nil {
		t.Fatalf("ListCourses 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 笔（同键覆盖），实际=%d", len(list))
	}
	if list[0].CourseName != "資料結構(更新)" {
		t.Errorf("期望课名被更新，实际=%s", list[0].CourseName)
	}
}

func TestStudentRepo_GPA(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewStudentRepo(db)
	ctx := context.Background()

	stat, err := repo.GPA(ctx, "s1", "")
	if err != nil {
		t.Fatalf("GPA 应成功: %v", err)
	}
	if stat.GPA != nil {
		t.Errorf("无成绩时 GPA 应为 nil，实际=%v", *stat.GPA)
	}

	grades := []model.StudentGrade{
		{StudentID: "s1", CourseID: "1", Semester: "113-2", CourseName: "a", Credits: f64(3), GradePoint: f64(4)},
		{StudentID: "s1", CourseID: "2", Semester: "114-1", CourseName: "b", Credits: f64(2), GradePoint: f64(3)},
		{StudentID: "s1", CourseID: "3", Semester: "114-1", CourseName: "c", Credits: f64(2)}, // 无绩点不计入
	}
	if err := repo.UpsertGrades(ctx, grades); err != nil {
		t.Fatalf("UpsertGrades 应成功: %v", err)
	}

	stat, err = repo.GPA(ctx, "s1", "")
	if err != nil || stat.GPA == nil {
		t.Fatalf("GPA 应有值: err=%v", err)
	}
	if math.Abs(*stat.GPA-3.6) > 1e-9 || *stat.TotalCredits != 5 {
		t.Errorf("期望 GPA=3.6 学分=5，实际 GPA=%v 学分=%v", *stat.GPA, *stat.TotalCredits)
	}

	stat, _ = repo.GPA(ctx, "s1", "114-1")
	if stat.GPA == nil || *stat.GPA != 3 {
		t.Errorf("学期 GPA 期望=3，实际=%v", stat.GPA)
	}
}

func TestSyncLogRepo_ListRecent(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewSyncLogRepo(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		log := &model.SyncLog{
			StudentID: "s1",
			SyncType:  model.SyncTypeCourses,
			Status:    model.SyncStatusSuccess,
			SyncedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, log); err != nil {
			t.Fatalf("Create 应成功: %v", err)
		}
	}

	logs, err := repo.ListRecent(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("ListRecent 应成功: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("期望 2 笔，实际=%d", len(logs))
	}
	if !logs[0].SyncedAt.After(logs[1].SyncedAt) {
		t.Error("同步记录应按时间倒序")
	}
}
