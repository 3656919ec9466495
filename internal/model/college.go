package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCollegeName department.json 未标注 category 时归入的学院
const DefaultCollegeName = "其他"

// Grade 班级（行政班），ID 对应课程 class[].code
type Grade struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Href string `json:"href,omitempty"`
}

// DepartmentRaw department.json 中的系所记录；Category 即学院名称
type DepartmentRaw struct {
	Name     string  `json:"name"`
	Href     string  `json:"href,omitempty"`
	Class    []Grade `json:"class"`
	Category string  `json:"category,omitempty"`
}

// Validate 校验系所记录
func (d *DepartmentRaw) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("department: name 为空")
	}
	return nil
}

// Department 系所（API 输出格式，class 改名为 grades）
type Department struct {
	Name   string  `json:"name"`
	Href   string  `json:"href,omitempty"`
	Grades []Grade `json:"grades"`
}

// College 学院
type College struct {
	Name        string       `json:"name"`
	Departments []Department `json:"departments"`
}

// GradeIDs 学院下全部班级代码
func (c *College) GradeIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, d := range c.Departments {
		for _, g := range d.Grades {
			ids[g.ID] = struct{}{}
		}
	}
	return ids
}

// CollegeStructure 学院 → 系所 → 班级 三级结构
type CollegeStructure struct {
	Year      string    `json:"year"`
	Semester  string    `json:"semester"`
	Colleges  []College `json:"colleges"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindCollege 按名称精确查找学院
func (s *CollegeStructure) FindCollege(name string) (*College, bool) {
	for i := range s.Colleges {
		if s.Colleges[i].Name == name {
			return &s.Colleges[i], true
		}
	}
	return nil, false
}
