package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
)

// ── 空教室模块业务错误 ──

var ErrInvalidWeekday = errors.New("无效的星期")

// roomNameLocale 教室名称排序使用的语系
var roomNameLocale = language.MustParse("zh-Hant-TW")

// ClassroomService 空教室查询业务接口
type ClassroomService interface {
	GetEmptyClassrooms(ctx context.Context, day model.Weekday, periods []string, year, semester, keyword string) ([]model.ClassroomAvailability, error)
}

type classroomService struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewClassroomService 创建 ClassroomService 实例
func NewClassroomService(repo *repository.Repository, logger *zap.Logger) ClassroomService {
	return &classroomService{catalog: NewCatalog(repo.Documents), logger: logger}
}

// ═══════════════════════════════════════════════════════════
// GetEmptyClassrooms 空教室查询
//
// 流程：
//  1. 收集课程总表中出现过的所有教室（名称非空白），每间预设全部 14 个节次可用
//  2. 对当天有课的课程，从其使用的每间教室中扣除上课节次
//  3. 指定 periods 时，保留任一指定节次仍空闲的教室（整间返回，不裁剪节次）
//  4. 指定 keyword 时，按教室名称不分大小写包含过滤
//  5. 以繁体中文排序规则按名称排序
// ═══════════════════════════════════════════════════════════

func (s *classroomService) GetEmptyClassrooms(ctx context.Context, day model.Weekday, periods []string, year, semester, keyword string) ([]model.ClassroomAvailability, error) {
	if !day.Valid() {
		return nil, ErrInvalidWeekday
	}

	courses, err := s.catalog.Aggregate(ctx, year, semester)
	if err != nil {
		return nil, err
	}

	rooms := collectRooms(courses)
	for i := range courses {
		dayPeriods := courses[i].Time.Periods(day)
		if len(dayPeriods) == 0 {
			continue
		}
		for _, ref := range courses[i].Classroom {
			if r, ok := rooms.byName[ref.Name]; ok {
				for _, p := range dayPeriods {
					delete(r.free, p)
				}
			}
		}
	}

	kw := strings.ToLower(strings.TrimSpace(keyword))
	result := make([]model.ClassroomAvailability, 0, len(rooms.order))
	for _, name := range rooms.order {
		r := rooms.byName[name]
		timetable := r.timetable()
		if len(periods) > 0 && !intersects(timetable, periods) {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(name), kw) {
			continue
		}
		result = append(result, model.ClassroomAvailability{
			Name:      name,
			Category:  roomCategory(name),
			Timetable: timetable,
			Link:      r.link,
		})
	}

	sortRoomsByName(result)

	s.logger.Debug("空教室查询完成",
		zap.String("day", string(day)),
		zap.Int("rooms", len(rooms.order)),
		zap.Int("matched", len(result)),
	)
	return result, nil
}

// ── 内部结构 ──

type roomSlots struct {
	free map[string]struct{}
	link *string
}

// timetable 按一天的节次顺序列出仍空闲的节次
func (r *roomSlots) timetable() []string {
	out := make([]string, 0, len(r.free))
	for _, p := range model.PeriodLabels {
		if _, ok := r.free[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

type roomIndex struct {
	order  []string
	byName map[string]*roomSlots
}

// collectRooms 建立教室全集；link 取该教室首个非空链接
func collectRooms(courses []model.Course) *roomIndex {
	idx := &roomIndex{byName: make(map[string]*roomSlots)}
	for i := range courses {
		for _, ref := range courses[i].Classroom {
			if strings.TrimSpace(ref.Name) == "" {
				continue
			}
			r, ok := idx.byName[ref.Name]
			if !ok {
				r = &roomSlots{free: make(map[string]struct{}, len(model.PeriodLabels))}
				for _, p := range model.PeriodLabels {
					r.free[p] = struct{}{}
				}
				idx.byName[ref.Name] = r
				idx.order = append(idx.order, ref.Name)
			}
			if r.link == nil && ref.Link != "" {
				link := ref.Link
				r.link = &link
			}
		}
	}
	return idx
}

// roomCategory 教室名称开头连续的非数字字符，例如 "科201" → "科"
func roomCategory(name string) string {
	end := strings.IndexFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
	switch {
	case end == -1:
		return name
	case end == 0:
		return model.DefaultClassroomCategory
	default:
		return name[:end]
	}
}

func sortRoomsByName(rooms []model.ClassroomAvailability) {
	// Collator 非并发安全，每次排序单独创建
	col := collate.New(roomNameLocale)
	sort.SliceStable(rooms, func(i, j int) bool {
		return col.CompareString(rooms[i].Name, rooms[j].Name) < 0
	})
}
