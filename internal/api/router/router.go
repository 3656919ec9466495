package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/api/handler"
	"github.com/changrun1/QAQ-backend/internal/api/middleware"
	"github.com/changrun1/QAQ-backend/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时登录接口不限流；sessions 一般为 AuthService
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	sessions middleware.SessionValidator,
	jwtMgr *jwt.Manager,
	limiter middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitMB << 20))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	sessionAuth := middleware.SessionAuth(sessions, jwtMgr)

	// 认证模块
	auth := api.Group("/auth")
	{
		auth.POST("/login", middleware.RateLimit(limiter, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow, logger), h.Auth.Login)
		auth.POST("/logout", sessionAuth, h.Auth.Logout)
		auth.GET("/me", sessionAuth, h.Auth.GetCurrentUser)
	}

	// 课程查询（公开）
	courses := api.Group("/courses")
	{
		courses.GET("/search", h.Course.SearchCourses)
		courses.GET("/colleges", h.Course.GetColleges)
		courses.GET("/by-grade", h.Course.GetCoursesByGrade)
		courses.GET("/by-grade/calendar", h.Course.ExportGradeCalendar)
		courses.GET("/programs", h.Course.GetPrograms)
		courses.GET("/by-program", h.Course.GetCoursesByProgram)
		courses.GET("/detail/:courseId", h.Course.GetCourseDetail)
		courses.GET("/empty-classrooms", h.Course.GetEmptyClassrooms)
	}

	// 学生数据（需要会话，且只能存取本人）
	data := api.Group("/data")
	data.Use(sessionAuth)
	{
		data.POST("/sync", h.Data.Sync)

		self := data.Group("/:studentId")
		self.Use(middleware.SelfOnly("studentId"))
		{
			self.GET("/profile", h.Data.GetProfile)
			self.GET("/courses", h.Data.GetCourses)
			self.GET("/grades", h.Data.GetGrades)
			self.GET("/gpa", h.Data.GetGPA)
			self.GET("/sync-logs", h.Data.GetSyncLogs)
			self.GET("/all", h.Data.GetAll)
			self.GET("/export", h.Export.ExportStudentData)
		}
	}

	return r
}
