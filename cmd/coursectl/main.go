package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
	"github.com/changrun1/QAQ-backend/internal/service"
)

var (
	dataPath string
	year     string
	semester string
	verbose  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coursectl",
		Short: "直接读取爬虫数据目录查询课程（不经过 HTTP 服务）",
	}

	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "../ntut-course-crawler-node", "爬虫数据根目录")
	rootCmd.PersistentFlags().StringVar(&year, "year", "114", "学年度")
	rootCmd.PersistentFlags().StringVar(&semester, "semester", "1", "学期")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(collegesCmd())
	rootCmd.AddCommand(programsCmd())
	rootCmd.AddCommand(gradeCmd())
	rootCmd.AddCommand(detailCmd())
	rootCmd.AddCommand(roomsCmd())
	rootCmd.AddCommand(calendarCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newRepo 只读爬虫数据，不连接数据库
func newRepo() (*repository.Repository, *zap.Logger) {
	logger := zap.NewNop()
	if verbose {
		logger, _ = zap.NewDevelopment()
	}
	return &repository.Repository{
		Documents: repository.NewDocumentStore(dataPath, nil, logger),
	}, logger
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func searchCmd() *cobra.Command {
	var (
		params      dto.CourseSearchParams
		programType string
		slots       []string
	)

	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "综合搜索课程",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				params.Keyword = args[0]
			}
			params.Year, params.Semester = year, semester

			if programType != "" {
				pt, ok := model.ParseProgramType(programType)
				if !ok {
					return fmt.Errorf("--program-type 仅支持 program 或 micro-program")
				}
				params.ProgramType = pt
			}
			for _, s := range slots {
				slot, err := parseSlotFlag(s)
				if err != nil {
					return err
				}
				params.TimeSlots = append(params.TimeSlots, slot)
			}

			repo, logger := newRepo()
			courses, err := service.NewCourseService(repo, logger).Search(context.Background(), &params)
			if err != nil {
				return err
			}
			return printJSON(courses)
		},
	}

	cmd.Flags().StringVar(&params.Category, "category", "", "课程类别（博雅 / 通识 等）")
	cmd.Flags().StringVar(&params.College, "college", "", "学院名称")
	cmd.Flags().StringVar(&params.GradeCode, "grade", "", "班级代码")
	cmd.Flags().StringVar(&params.ProgramCode, "program", "", "学程代码")
	cmd.Flags().StringVar(&programType, "program-type", "", "program | micro-program")
	cmd.Flags().StringArrayVar(&slots, "slot", nil, "时段条件，格式 mon:3,4（可重复）")
	return cmd
}

// parseSlotFlag 解析 "mon:3,4"
func parseSlotFlag(s string) (dto.TimeSlotRequirement, error) {
	dayPart, periodPart, ok := strings.Cut(s, ":")
	if !ok {
		return dto.TimeSlotRequirement{}, fmt.Errorf("时段 %q 格式应为 day:period,period", s)
	}
	day, ok := model.ParseWeekday(dayPart)
	if !ok {
		return dto.TimeSlotRequirement{}, fmt.Errorf("时段 %q 的星期不合法", s)
	}
	var periods []string
	for _, p := range strings.Split(periodPart, ",") {
		if p = strings.TrimSpace(p); p != "" {
			periods = append(periods, p)
		}
	}
	return dto.TimeSlotRequirement{Day: day, Periods: periods}, nil
}

func collegesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "colleges",
		Short: "列出学院 / 系所 / 班级",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, logger := newRepo()
			structure, err := service.NewCourseService(repo, logger).GetColleges(context.Background(), year, semester)
			if err != nil {
				return err
			}
			return printJSON(structure)
		},
	}
}

func programsCmd() *cobra.Command {
	var (
		code        string
		programType string
	)

	cmd := &cobra.Command{
		Use:   "programs",
		Short: "列出学程；指定 --code 时列出该学程的课程",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, logger := newRepo()
			svc := service.NewCourseService(repo, logger)

			if code == "" {
				structure, err := svc.GetPrograms(context.Background(), year, semester)
				if err != nil {
					return err
				}
				return printJSON(structure)
			}

			pt, ok := model.ParseProgramType(programType)
			if !ok {
				return fmt.Errorf("--type 仅支持 program 或 micro-program")
			}
			courses, err := svc.GetCoursesByProgram(context.Background(), code, pt, year, semester)
			if err != nil {
				return err
			}
			return printJSON(courses)
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "学程代码")
	cmd.Flags().StringVar(&programType, "type", string(model.ProgramTypeMicroProgram), "program | micro-program")
	return cmd
}

func gradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grade [gradeCode]",
		Short: "班级课表",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, logger := newRepo()
			courses, err := service.NewCourseService(repo, logger).GetCoursesByGrade(context.Background(), args[0], year, semester)
			if err != nil {
				return err
			}
			return printJSON(courses)
		},
	}
}

func detailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail [courseId]",
		Short: "课程大纲",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, logger := newRepo()
			syllabus, err := service.NewCourseService(repo, logger).GetCourseDetail(context.Background(), args[0], year, semester)
			if err != nil {
				return err
			}
			return printJSON(syllabus)
		},
	}
}

func roomsCmd() *cobra.Command {
	var (
		day     string
		periods []string
		keyword string
	)

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "空教室查询",
		RunE: func(cmd *cobra.Command, args []string) error {
			weekday := model.WeekdayOf(time.Now())
			if day != "" {
				d, ok := model.ParseWeekday(day)
				if !ok {
					return fmt.Errorf("--day 必须是 mon, tue, wed, thu, fri, sat, sun 之一")
				}
				weekday = d
			}

			repo, logger := newRepo()
			rooms, err := service.NewClassroomService(repo, logger).GetEmptyClassrooms(context.Background(), weekday, periods, year, semester, keyword)
			if err != nil {
				return err
			}
			return printJSON(dto.EmptyClassroomResponse{
				DayOfWeek: weekday,
				Periods:   periods,
				Count:     len(rooms),
				List:      rooms,
			})
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "星期（缺省为今天）")
	cmd.Flags().StringSliceVar(&periods, "periods", []string{}, "节次，例如 3,4")
	cmd.Flags().StringVar(&keyword, "keyword", "", "教室名称关键字")
	return cmd
}

func calendarCmd() *cobra.Command {
	var (
		calCfg config.CalendarConfig
		output string
	)

	cmd := &cobra.Command{
		Use:   "calendar [gradeCode]",
		Short: "导出班级课表 iCalendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := calCfg.StartDate(); err != nil {
				return fmt.Errorf("--start 无效: %w", err)
			}

			repo, logger := newRepo()
			ics, err := service.NewCalendarService(&calCfg, repo, logger).ExportGradeCalendar(context.Background(), args[0], year, semester, calCfg.Weeks)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = fmt.Fprint(os.Stdout, ics)
				return err
			}
			if err := os.WriteFile(output, []byte(ics), 0o644); err != nil {
				return fmt.Errorf("写入 %s 失败: %w", output, err)
			}
			fmt.Fprintf(os.Stderr, "已写入 %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&calCfg.SemesterStart, "start", "2025-09-08", "学期第一周任意一天 YYYY-MM-DD")
	cmd.Flags().StringVar(&calCfg.Timezone, "tz", "Asia/Taipei", "时区")
	cmd.Flags().IntVar(&calCfg.Weeks, "weeks", 18, "重复周数")
	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件（缺省为标准输出）")
	return cmd
}
