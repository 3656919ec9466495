package service

import (
	"strings"
	"unicode"

	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/model"
)

// ═══════════════════════════════════════════════════════════
// 课程筛选谓词
//
// 一般搜索依次套用：关键字 → 博雅类别 → 学院 → 时段，
// 每一步只会缩小上一步的结果，结果保持课程总表顺序。
// ═══════════════════════════════════════════════════════════

type coursePredicate func(*model.Course) bool

// filterCourses 返回满足 pred 的课程（非 nil 切片）
func filterCourses(courses []model.Course, pred coursePredicate) []model.Course {
	out := make([]model.Course, 0, len(courses))
	for i := range courses {
		if pred(&courses[i]) {
			out = append(out, courses[i])
		}
	}
	return out
}

// keywordPredicate 关键字匹配（不分大小写）：
// 课号完全相等或包含（去掉 - 与空白）、中英文课名、教师名、班级名任一包含即命中
func keywordPredicate(keyword string) coursePredicate {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	idKey := strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, kw)

	return func(c *model.Course) bool {
		id := strings.ToLower(c.ID)
		if id == idKey || strings.Contains(id, idKey) {
			return true
		}
		if containsFold(c.Name.Zh, kw) || (c.Name.En != "" && containsFold(c.Name.En, kw)) {
			return true
		}
		for _, t := range c.Teacher {
			if containsFold(t.Name, kw) {
				return true
			}
		}
		for _, cl := range c.Class {
			if containsFold(cl.Name, kw) {
				return true
			}
		}
		return false
	}
}

// categoryPredicate 博雅类别以子串形式标注在 notes 中；没有 notes 的课程不匹配
func categoryPredicate(category string) coursePredicate {
	return func(c *model.Course) bool {
		return c.Notes != "" && strings.Contains(c.Notes, category)
	}
}

// gradePredicate 任一开课班级代码在集合内
func gradePredicate(gradeIDs map[string]struct{}) coursePredicate {
	return func(c *model.Course) bool {
		for _, cl := range c.Class {
			if _, ok := gradeIDs[cl.Code]; ok {
				return true
			}
		}
		return false
	}
}

// gradeCodePredicate 班级代码精确匹配
func gradeCodePredicate(gradeCode string) coursePredicate {
	return func(c *model.Course) bool {
		for _, cl := range c.Class {
			if cl.Code == gradeCode {
				return true
			}
		}
		return false
	}
}

// courseIDPredicate 课程 id 属于集合
func courseIDPredicate(ids map[string]struct{}) coursePredicate {
	return func(c *model.Course) bool {
		_, ok := ids[c.ID]
		return ok
	}
}

// timeSlotPredicate 时段条件之间为 OR；同一条件内各节次之间也为 OR
func timeSlotPredicate(slots []dto.TimeSlotRequirement) coursePredicate {
	return func(c *model.Course) bool {
		for _, slot := range slots {
			dayPeriods := c.Time.Periods(slot.Day)
			if len(dayPeriods) == 0 {
				continue
			}
			if intersects(dayPeriods, slot.Periods) {
				return true
			}
		}
		return false
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
