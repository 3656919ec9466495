package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ── 星期 ──

// Weekday 星期枚举，取值与爬虫数据 time 字段的键一致
type Weekday string

const (
	Sunday    Weekday = "sun"
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
)

// weekdays 下标与 time.Weekday 对齐
var weekdays = [...]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// AllWeekdays 返回周日到周六
func AllWeekdays() []Weekday {
	out := make([]Weekday, len(weekdays))
	copy(out, weekdays[:])
	return out
}

// ParseWeekday 解析星期缩写（忽略大小写与首尾空白）
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, d := range weekdays {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// WeekdayOf 返回某时刻对应的星期
func WeekdayOf(t time.Time) Weekday {
	return weekdays[t.Weekday()]
}

// TimeWeekday 转换为标准库 time.Weekday
func (d Weekday) TimeWeekday() time.Weekday {
	for i, w := range weekdays {
		if w == d {
			return time.Weekday(i)
		}
	}
	return time.Sunday
}

// Valid 是否为合法星期
func (d Weekday) Valid() bool {
	for _, w := range weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// ── 课程 ──

// CourseTime 每天的上课节次
type CourseTime struct {
	Sun []string `json:"sun"`
	Mon []string `json:"mon"`
	Tue []string `json:"tue"`
	Wed []string `json:"wed"`
	Thu []string `json:"thu"`
	Fri []string `json:"fri"`
	Sat []string `json:"sat"`
}

// Periods 返回指定星期的节次列表；非法星期返回 nil
func (t CourseTime) Periods(d Weekday) []string {
	switch d {
	case Sunday:
		return t.Sun
	case Monday:
		return t.Mon
	case Tuesday:
		return t.Tue
	case Wednesday:
		return t.Wed
	case Thursday:
		return t.Thu
	case Friday:
		return t.Fri
	case Saturday:
		return t.Sat
	}
	return nil
}

// CourseName 课程中英文名称
type CourseName struct {
	Zh string `json:"zh"`
	En string `json:"en,omitempty"`
}

// CourseDescription 课程说明
type CourseDescription struct {
	Zh string `json:"zh,omitempty"`
	En string `json:"en,omitempty"`
}

// CourseRef 班级 / 教师 / 教室的通用引用结构
type CourseRef struct {
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
	Code string `json:"code,omitempty"`
}

// Course 单笔开课资料，对应爬虫 <year>/<semester>/<category>.json 中的元素
//
// ID 是稳定的六位数字串，同时作为 course/<id>.json 与学程成员列表的关联键；
// Class[].Code 关联 department.json 中的班级代码。
type Course struct {
	Code           string             `json:"code"`
	ID             string             `json:"id"`
	Name           CourseName         `json:"name"`
	Description    *CourseDescription `json:"description,omitempty"`
	Stage          Text               `json:"stage"`
	Credit         Text               `json:"credit"`
	Hours          Text               `json:"hours"`
	CourseType     string             `json:"courseType"`
	Class          []CourseRef        `json:"class"`
	Teacher        []CourseRef        `json:"teacher"`
	Time           CourseTime         `json:"time"`
	Classroom      []CourseRef        `json:"classroom"`
	Notes          string             `json:"notes,omitempty"`
	Language       string             `json:"language,omitempty"`
	People         Text               `json:"people,omitempty"`
	PeopleWithdraw Text               `json:"peopleWithdraw,omitempty"`
}

// Validate 校验爬虫文档的最小结构约束
func (c *Course) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("course %q: id 为空", c.Code)
	}
	if strings.TrimSpace(c.Name.Zh) == "" {
		return fmt.Errorf("course %s: name.zh 为空", c.ID)
	}
	return nil
}

// CourseSyllabus 课程大纲，对应 course/<id>.json 中每位教师一笔
type CourseSyllabus struct {
	Name                     string `json:"name"`
	Email                    string `json:"email"`
	LatestUpdate             string `json:"latestUpdate"`
	Objective                string `json:"objective"`
	Schedule                 string `json:"schedule"`
	ScorePolicy              string `json:"scorePolicy"`
	Materials                string `json:"materials"`
	Consultation             string `json:"consultation"`
	SDGs                     string `json:"課程對應SDGs指標,omitempty"`
	AIAdoption               string `json:"課程是否導入AI,omitempty"`
	Remarks                  string `json:"remarks,omitempty"`
	ForeignLanguageTextbooks bool   `json:"foreignLanguageTextbooks"`
}

// CourseWithDetails 课程 + 可选大纲
type CourseWithDetails struct {
	Course
	Syllabus []CourseSyllabus `json:"syllabus,omitempty"`
}

// ── 宽松文本 ──

// Text 接受 JSON 字符串、数字或 null 的文本字段；爬虫不同年度对学分、人数等字段的类型并不一致
type Text string

// UnmarshalJSON 实现 json.Unmarshaler
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("Text: 不支持的 JSON 值 %s", string(b))
	}
	*t = Text(n.String())
	return nil
}
