package model

import (
	"fmt"
	"strings"
	"time"
)

// ProgramType 学程类型
type ProgramType string

const (
	ProgramTypeProgram      ProgramType = "program"
	ProgramTypeMicroProgram ProgramType = "micro-program"
)

// ParseProgramType 解析学程类型
func ParseProgramType(s string) (ProgramType, bool) {
	switch ProgramType(strings.TrimSpace(s)) {
	case ProgramTypeProgram:
		return ProgramTypeProgram, true
	case ProgramTypeMicroProgram:
		return ProgramTypeMicroProgram, true
	}
	return "", false
}

// Program 学程 / 微学程，对应 mprogram.json
type Program struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Href   string      `json:"href,omitempty"`
	Course []string    `json:"course"`
	Type   ProgramType `json:"type,omitempty"`
}

// Validate 校验学程记录
func (p *Program) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("program %q: id 为空", p.Name)
	}
	return nil
}

// CourseSet 学程成员课程 ID 集合
func (p *Program) CourseSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Course))
	for _, id := range p.Course {
		set[id] = struct{}{}
	}
	return set
}

// ProgramStructure 学程列表
type ProgramStructure struct {
	Year      string    `json:"year"`
	Semester  string    `json:"semester"`
	Programs  []Program `json:"programs"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ByID 按学程代码精确查找
func (s *ProgramStructure) ByID(code string) (*Program, bool) {
	for i := range s.Programs {
		if s.Programs[i].ID == code {
			return &s.Programs[i], true
		}
	}
	return nil, false
}
