package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
)

// ── 课表日历模块业务错误 ──

var ErrCalendarEmpty = errors.New("该班级本学期没有可导出的课程")

const defaultCalendarWeeks = 18

// CalendarService 班级课表 ICS 导出接口
type CalendarService interface {
	ExportGradeCalendar(ctx context.Context, gradeCode, year, semester string, weeks int) (string, error)
}

type calendarService struct {
	catalog *Catalog
	cfg     *config.CalendarConfig
	now     func() time.Time
	logger  *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(cfg *config.CalendarConfig, repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{
		catalog: NewCatalog(repo.Documents),
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// ═══════════════════════════════════════════════════════════
// ExportGradeCalendar 导出班级课表
//
// 每门课每天的连续节次合并为一个 VEVENT，首次上课日落在学期起始周，
// 以 RRULE:FREQ=WEEKLY;COUNT=<weeks> 重复；节次对应的钟点见 model.PeriodClocks。
// ═══════════════════════════════════════════════════════════

func (s *calendarService) ExportGradeCalendar(ctx context.Context, gradeCode, year, semester string, weeks int) (string, error) {
	if weeks <= 0 {
		weeks = s.cfg.Weeks
	}
	if weeks <= 0 {
		weeks = defaultCalendarWeeks
	}

	start, err := s.cfg.StartDate()
	if err != nil {
		return "", fmt.Errorf("学期起始日期无效: %w", err)
	}

	courses, err := s.catalog.Aggregate(ctx, year, semester)
	if err != nil {
		return "", err
	}
	courses = filterCourses(courses, gradeCodePredicate(gradeCode))

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//QAQ//Course Timetable//ZH")
	cal.SetXWRCalName(fmt.Sprintf("%s 课表 %s-%s", gradeCode, year, semester))
	cal.SetXWRTimezone(start.Location().String())

	monday := weekMonday(start)
	stamp := s.now()
	count := 0

	for i := range courses {
		c := &courses[i]
		for _, day := range model.AllWeekdays() {
			for runIdx, run := range periodRuns(c.Time.Periods(day)) {
				date := monday.AddDate(0, 0, mondayOffset(day))
				begin, end, ok := runClock(date, run)
				if !ok {
					continue
				}

				uid := fmt.Sprintf("%s-%s-%s-%s-%d@qaq-backend", year, semester, c.ID, day, runIdx)
				event := cal.AddEvent(uid)
				event.SetDtStampTime(stamp)
				event.SetStartAt(begin)
				event.SetEndAt(end)
				event.SetSummary(c.Name.Zh)
				if loc := refNames(c.Classroom); loc != "" {
					event.SetLocation(loc)
				}
				event.SetDescription(fmt.Sprintf("课号 %s｜教师 %s｜节次 %s", c.ID, refNames(c.Teacher), strings.Join(run, ",")))
				event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
				count++
			}
		}
	}

	if count == 0 {
		return "", ErrCalendarEmpty
	}

	s.logger.Info("导出班级课表",
		zap.String("gradeCode", gradeCode),
		zap.Int("courses", len(courses)),
		zap.Int("events", count),
	)
	return cal.Serialize(), nil
}

// ── 内部工具 ──

// periodRuns 将当天节次按一天内顺序排列，并切分为连续区段；未知节次忽略
func periodRuns(periods []string) [][]string {
	known := make([]string, 0, len(periods))
	seen := make(map[string]bool, len(periods))
	for _, p := range periods {
		if model.PeriodIndex(p) >= 0 && !seen[p] {
			seen[p] = true
			known = append(known, p)
		}
	}
	sort.Slice(known, func(i, j int) bool {
		return model.PeriodIndex(known[i]) < model.PeriodIndex(known[j])
	})

	var runs [][]string
	for i, p := range known {
		if i > 0 && model.PeriodIndex(p) == model.PeriodIndex(known[i-1])+1 {
			runs[len(runs)-1] = append(runs[len(runs)-1], p)
			continue
		}
		runs = append(runs, []string{p})
	}
	return runs
}

// runClock 区段第一节开始到最后一节结束
func runClock(date time.Time, run []string) (time.Time, time.Time, bool) {
	first, ok1 := model.PeriodClocks[run[0]]
	last, ok2 := model.PeriodClocks[run[len(run)-1]]
	if !ok1 || !ok2 {
		return time.Time{}, time.Time{}, false
	}
	begin, err1 := clockOn(date, first.Start)
	end, err2 := clockOn(date, last.End)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return begin, end, true
}

func clockOn(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// weekMonday 所在周的星期一
func weekMonday(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -mondayOffset(model.WeekdayOf(d)))
}

// mondayOffset 星期一为 0，星期日为 6
func mondayOffset(d model.Weekday) int {
	return (int(d.TimeWeekday()) + 6) % 7
}

func refNames(refs []model.CourseRef) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if n := strings.TrimSpace(r.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, "、")
}
