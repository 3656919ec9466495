package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

const (
	sheetCourses = "課表"
	sheetGrades  = "成績"
)

// ExportService 学生资料导出接口
type ExportService interface {
	// ExportStudentData 导出学生课表与成绩为 xlsx，返回文件内容与建议文件名
	ExportStudentData(ctx context.Context, studentID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	data   DataService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(data DataService, logger *zap.Logger) ExportService {
	return &exportService{data: data, logger: logger}
}

func (s *exportService) ExportStudentData(ctx context.Context, studentID string) (*bytes.Buffer, string, error) {
	// 1. 学生必须已同步过基本资料
	if _, err := s.data.GetProfile(ctx, studentID); err != nil {
		return nil, "", err
	}

	courses, err := s.data.GetCourses(ctx, studentID, "")
	if err != nil {
		return nil, "", err
	}
	grades, err := s.data.GetGrades(ctx, studentID, "")
	if err != nil {
		return nil, "", err
	}
	gpa, err := s.data.GetGPA(ctx, studentID, "")
	if err != nil {
		return nil, "", err
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(sheetCourses)
	f.SetActiveSheet(idx)
	_, _ = f.NewSheet(sheetGrades)
	// 删除默认 Sheet1
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 課表
	writeHeader(f, sheetCourses, headerStyle, []string{"学期", "课号", "课程名称", "教师", "教室", "时间", "学分"})
	for i, c := range courses {
		row := i + 2
		setRow(f, sheetCourses, row, c.Semester, c.CourseID, c.CourseName, c.Instructor, c.Location, c.TimeSlots, floatCell(c.Credits))
	}
	_ = f.SetColWidth(sheetCourses, "A", "B", 10)
	_ = f.SetColWidth(sheetCourses, "C", "C", 28)
	_ = f.SetColWidth(sheetCourses, "D", "F", 18)

	// 成績
	writeHeader(f, sheetGrades, headerStyle, []string{"学期", "课号", "课程名称", "学分", "成绩", "绩点"})
	for i, g := range grades {
		row := i + 2
		setRow(f, sheetGrades, row, g.Semester, g.CourseID, g.CourseName, floatCell(g.Credits), g.Grade, floatCell(g.GradePoint))
	}
	summary := len(grades) + 3
	setRow(f, sheetGrades, summary, "GPA", strconv.FormatFloat(gpa.GPA, 'f', 2, 64), "总学分", gpa.TotalCredits)
	_ = f.SetColWidth(sheetGrades, "C", "C", 28)

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("%s_课表成绩.xlsx", studentID)
	return buf, filename, nil
}

// ── 辅助函数 ──

func writeHeader(f *excelize.File, sheet string, style int, titles []string) {
	values := make([]interface{}, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	_ = f.SetSheetRow(sheet, "A1", &values)
	last, _ := excelize.CoordinatesToCellName(len(titles), 1)
	_ = f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	_ = f.SetSheetRow(sheet, cell, &values)
}

func floatCell(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
