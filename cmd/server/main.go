package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/api/handler"
	"github.com/changrun1/QAQ-backend/internal/api/middleware"
	"github.com/changrun1/QAQ-backend/internal/api/router"
	"github.com/changrun1/QAQ-backend/internal/repository"
	"github.com/changrun1/QAQ-backend/internal/service"
	"github.com/changrun1/QAQ-backend/pkg/database"
	"github.com/changrun1/QAQ-backend/pkg/jwt"
	applogger "github.com/changrun1/QAQ-backend/pkg/logger"
	"github.com/changrun1/QAQ-backend/pkg/portal"
	"github.com/changrun1/QAQ-backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, atom, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2.1 配置文件变化时热更新日志级别
	config.Watch("", func(next *config.Config) {
		if err := applogger.SetLevel(atom, next.Log.Level); err != nil {
			logger.Warn("日志级别热更新失败", zap.String("level", next.Log.Level), zap.Error(err))
			return
		}
		logger.Info("日志级别已更新", zap.String("level", next.Log.Level))
	})

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("crawler_path", cfg.Data.CrawlerPath),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.Driver, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		rdb     *redis.Client
		cache   service.SessionCache
		limiter middleware.RateLimiter
	)
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，会话缓存与登录限流将不可用", zap.Error(err))
			rdb = nil
		} else {
			cache, limiter = rdb, rdb
		}
	}

	// 5. 爬虫数据缓存（可选监听目录变化）
	var docCache *repository.DocumentCache
	if cfg.Data.CacheEnabled {
		docCache = repository.NewDocumentCache(logger)
		if cfg.Data.Watch {
			if err := docCache.Watch(ctx, cfg.Data.CrawlerPath); err != nil {
				logger.Warn("监听爬虫数据目录失败，仅依赖修改时间判断缓存", zap.Error(err))
			}
		}
	}

	// 6. 学校入口与 JWT
	portalClient := portal.NewClient(&cfg.Portal, logger)
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db, cfg.Data.CrawlerPath, docCache, logger)
	svc := service.NewService(cfg, repo, portalClient, jwtMgr, cache, logger)
	h := handler.NewHandler(cfg, svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, svc.Auth, jwtMgr, limiter, logger)

	// 9. 定期清理过期会话
	go cleanupSessions(ctx, svc.Auth, cfg.Auth.SessionCleanupInterval, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// cleanupSessions 按固定间隔删除过期会话，ctx 结束后退出
func cleanupSessions(ctx context.Context, auth service.AuthService, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := auth.CleanupExpiredSessions(ctx); err != nil {
				logger.Warn("定期清理会话失败", zap.Error(err))
			}
		}
	}
}
