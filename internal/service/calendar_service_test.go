package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/model"
)

func setupTestCalendarService() CalendarService {
	r := newTestRepos()
	seedCatalog(r.docs)
	cfg := &config.CalendarConfig{SemesterStart: "2025-09-10", Timezone: "Asia/Taipei", Weeks: 18}
	svc := NewCalendarService(cfg, r.repo, testLogger).(*calendarService)
	svc.now = func() time.Time { return time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestCalendarService_ExportGradeCalendar(t *testing.T) {
	svc := setupTestCalendarService()

	out, err := svc.ExportGradeCalendar(context.Background(), "482", "114", "1", 0)
	if err != nil {
		t.Fatalf("ExportGradeCalendar 应成功: %v", err)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	if err != nil {
		t.Fatalf("导出内容应可被解析: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("第 3、4 节连续应合并为 1 个事件，实际=%d", len(events))
	}
	evt := events[0]

	if s := evt.GetProperty(ics.ComponentPropertySummary); s == nil || s.Value != "資料結構" {
		t.Errorf("SUMMARY 不符: %+v", s)
	}
	if r := evt.GetProperty(ics.ComponentPropertyRrule); r == nil || r.Value != "FREQ=WEEKLY;COUNT=18" {
		t.Errorf("RRULE 不符: %+v", r)
	}

	// 2025-09-10 为星期三，所在周的星期一为 09-08
	taipei, _ := time.LoadLocation("Asia/Taipei")
	start, err := evt.GetStartAt()
	if err != nil {
		t.Fatalf("DTSTART 解析失败: %v", err)
	}
	if want := time.Date(2025, 9, 8, 10, 10, 0, 0, taipei); !start.Equal(want) {
		t.Errorf("DTSTART 期望 %v，实际=%v", want, start)
	}
	end, err := evt.GetEndAt()
	if err != nil {
		t.Fatalf("DTEND 解析失败: %v", err)
	}
	if want := time.Date(2025, 9, 8, 12, 0, 0, 0, taipei); !end.Equal(want) {
		t.Errorf("DTEND 期望 %v，实际=%v", want, end)
	}
}

func TestCalendarService_ExportGradeCalendar_WeeksOverride(t *testing.T) {
	svc := setupTestCalendarService()

	out, err := svc.ExportGradeCalendar(context.Background(), "700", "114", "1", 9)
	if err != nil {
		t.Fatalf("ExportGradeCalendar 应成功: %v", err)
	}
	if !strings.Contains(out, "COUNT=9") {
		t.Errorf("应使用指定周数 9")
	}
}

func TestCalendarService_ExportGradeCalendar_Empty(t *testing.T) {
	svc := setupTestCalendarService()

	_, err := svc.ExportGradeCalendar(context.Background(), "000", "114", "1", 0)
	if !errors.Is(err, ErrCalendarEmpty) {
		t.Errorf("期望 ErrCalendarEmpty，实际: %v", err)
	}
}

func TestPeriodRuns(t *testing.T) {
	runs := periodRuns([]string{"4", "3", "N", "A", "B", "D", "X", "3"})
	want := [][]string{{"3", "4", "N"}, {"A", "B"}, {"D"}}
	if len(runs) != len(want) {
		t.Fatalf("期望 %v，实际=%v", want, runs)
	}
	for i := range want {
		if strings.Join(runs[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("第 %d 段期望 %v，实际=%v", i, want[i], runs[i])
		}
	}
}

func TestMondayOffset(t *testing.T) {
	if mondayOffset(model.Monday) != 0 || mondayOffset(model.Sunday) != 6 || mondayOffset(model.Saturday) != 5 {
		t.Errorf("mondayOffset 计算错误")
	}
}
