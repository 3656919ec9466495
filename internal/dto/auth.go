package dto

import "time"

// ── 认证模块 DTO ──

// LoginRequest 登录请求（学号 / 入口密码）
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
//
// SessionID 供旧版移动端通过 X-Session-ID 使用，AccessToken 为签名封装后的同一会话。
type LoginResponse struct {
	SessionID   string       `json:"sessionId"`
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        UserResponse `json:"user"`
}

// UserResponse 当前用户信息
type UserResponse struct {
	StudentID    string     `json:"studentId"`
	Name         string     `json:"name,omitempty"`
	Email        string     `json:"email,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	PortalActive *bool      `json:"portalActive,omitempty"` // 入口 session 是否仍有效
}
