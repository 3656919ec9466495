package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/config"
)

// Client Redis 客户端封装
// 用于登录会话缓存与登录接口限流；Redis 不可用时上层降级为仅查数据库
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── 会话缓存 ──

const sessionPrefix = "qaq:session:"

// SetSession 以 JSON 缓存会话，TTL 与会话剩余有效期一致
func (c *Client) SetSession(ctx context.Context, sessionID string, v interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // 会话已过期，无需缓存
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	return c.rdb.Set(ctx, sessionPrefix+sessionID, b, ttl).Err()
}

// GetSession 读取会话缓存到 dst；未命中返回 false
func (c *Client) GetSession(ctx context.Context, sessionID string, dst interface{}) (bool, error) {
	b, err := c.rdb.Get(ctx, sessionPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("反序列化会话失败: %w", err)
	}
	return true, nil
}

// DeleteSession 删除会话缓存
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, sessionPrefix+sessionID).Err()
}

// ── 限流 ──

const rateLimitPrefix = "qaq:ratelimit:"

// CheckRateLimit 滑动窗口限流：窗口内请求数不超过 limit 时返回 true
//
// 每次请求向有序集合写入一条以纳秒时间戳为分值的记录，
// 先清理窗口外的记录，再统计窗口内数量。
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	redisKey := rateLimitPrefix + key
	minScore := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	var card *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "0", minScore)
		pipe.ZAdd(ctx, redisKey, goredis.Z{
			Score:  float64(now.UnixNano()),
			Member: uuid.NewString(),
		})
		card = pipe.ZCard(ctx, redisKey)
		pipe.Expire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
