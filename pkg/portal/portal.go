// Package portal 封装学校入口（app.ntut.edu.tw）的登录与会话检查接口
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/changrun1/QAQ-backend/config"
)

const (
	loginPath        = "/login.do"
	sessionCheckPath = "/sessionCheckApp.do"

	maxBodyBytes = 1 << 20
)

// ErrUnavailable 入口服务不可用（网络错误或 5xx）
var ErrUnavailable = errors.New("学校入口服务连接失败")

// LoginResult 入口登录响应
type LoginResult struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"` // JSESSIONID
	GivenName string `json:"givenName"`
	UserMail  string `json:"userMail"`
	ErrorMsg  string `json:"errorMsg"`
}

// Client 入口 HTTP 客户端
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient 创建入口客户端
func NewClient(cfg *config.PortalConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Login 以学号密码登录入口
//
// 表单字段必须为 muid / mpassword，User-Agent 必须为入口认可的 App 标识；
// 4xx 响应仍按 JSON 解析（入口以 success=false 表示失败），5xx 与网络错误返回 ErrUnavailable。
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	form := url.Values{}
	form.Set("muid", username)
	form.Set("mpassword", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("创建登录请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("入口登录请求失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Warn("入口登录返回服务端错误", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var result LoginResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: 解析登录响应失败: %v", ErrUnavailable, err)
	}
	return &result, nil
}

// CheckSession 检查 JSESSIONID 在入口端是否仍有效；任何错误都视为无效
func (c *Client) CheckSession(ctx context.Context, sessionID string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+sessionCheckPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.AddCookie(&http.Cookie{Name: "JSESSIONID", Value: sessionID})

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("入口会话检查失败", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return false
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return false
	}
	return body.Success
}
