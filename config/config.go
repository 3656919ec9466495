package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Portal    PortalConfig    `mapstructure:"portal"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Calendar  CalendarConfig  `mapstructure:"calendar"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port        int        `mapstructure:"port"`
	Mode        string     `mapstructure:"mode"`
	BodyLimitMB int64      `mapstructure:"body_limit_mb"`
	CORS        CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DataConfig 爬虫静态数据配置
type DataConfig struct {
	CrawlerPath     string `mapstructure:"crawler_path"`
	DefaultYear     string `mapstructure:"default_year"`
	DefaultSemester string `mapstructure:"default_semester"`
	CacheEnabled    bool   `mapstructure:"cache_enabled"`
	Watch           bool   `mapstructure:"watch"` // fsnotify 监听目录变化，提前淘汰缓存
}

// DatabaseConfig 学生数据库配置（sqlite | postgres）
type DatabaseConfig struct {
	Driver          string         `mapstructure:"driver"`
	SQLite          SQLiteConfig   `mapstructure:"sqlite"`
	Postgres        PostgresConfig `mapstructure:"postgres"`
	MaxOpenConns    int            `mapstructure:"max_open_conns"`
	MaxIdleConns    int            `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int            `mapstructure:"conn_max_lifetime"` // 连接最大生命周期（分钟）
}

// SQLiteConfig SQLite 配置
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	Timezone string `mapstructure:"timezone"`
}

// DSN 生成 PostgreSQL 连接字符串
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（会话缓存 + 限流）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 会话与 JWT 配置
type AuthConfig struct {
	JWTSecret              string        `mapstructure:"jwt_secret"`
	SessionTTL             time.Duration `mapstructure:"session_ttl"`
	SessionCleanupInterval time.Duration `mapstructure:"session_cleanup_interval"`
}

// PortalConfig 学校入口 API 配置
type PortalConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig 登录限流配置
type RateLimitConfig struct {
	LoginLimit  int           `mapstructure:"login_limit"`
	LoginWindow time.Duration `mapstructure:"login_window"`
}

// CalendarConfig 课表日历导出配置
type CalendarConfig struct {
	SemesterStart string `mapstructure:"semester_start"` // 学期第一周任意一天，YYYY-MM-DD
	Timezone      string `mapstructure:"timezone"`
	Weeks         int    `mapstructure:"weeks"`
}

// StartDate 解析学期起始日期
func (c *CalendarConfig) StartDate() (time.Time, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的时区 %q: %w", c.Timezone, err)
	}
	return time.ParseInLocation("2006-01-02", c.SemesterStart, loc)
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	return decode(v)
}

// Watch 监听配置文件变化，仅重新加载日志级别等可热更新项，通过 onChange 回调通知调用方
// 配置文件不存在时不做任何事
func Watch(path string, onChange func(*Config)) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func newViper(path string) *viper.Viper {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.body_limit_mb", 10)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("data.crawler_path", "../ntut-course-crawler-node")
	v.SetDefault("data.default_year", "114")
	v.SetDefault("data.default_semester", "1")
	v.SetDefault("data.cache_enabled", true)
	v.SetDefault("data.watch", true)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.sqlite.path", "data/qaq.db")
	v.SetDefault("db.postgres.host", "localhost")
	v.SetDefault("db.postgres.port", 5432)
	v.SetDefault("db.postgres.name", "qaq")
	v.SetDefault("db.postgres.user", "postgres")
	v.SetDefault("db.postgres.sslmode", "disable")
	v.SetDefault("db.postgres.timezone", "Asia/Taipei")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.session_ttl", "30m")
	v.SetDefault("auth.session_cleanup_interval", "1h")

	v.SetDefault("portal.base_url", "https://app.ntut.edu.tw")
	v.SetDefault("portal.user_agent", "Direk ios App")
	v.SetDefault("portal.timeout", "10s")

	v.SetDefault("rate_limit.login_limit", 10)
	v.SetDefault("rate_limit.login_window", "1m")

	v.SetDefault("calendar.semester_start", "2025-09-08")
	v.SetDefault("calendar.timezone", "Asia/Taipei")
	v.SetDefault("calendar.weeks", 18)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("QAQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("配置校验失败: db.driver 仅支持 sqlite 或 postgres，当前为 %q", c.Database.Driver)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("配置校验失败: auth.session_ttl 必须大于 0")
	}
	if _, err := c.Calendar.StartDate(); err != nil {
		return fmt.Errorf("配置校验失败: calendar.semester_start 无效: %w", err)
	}
	return nil
}
