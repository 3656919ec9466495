package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/service"
	"github.com/changrun1/QAQ-backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 以学校入口帐号登录
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// Logout 登出并删除会话
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), sessionID); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, gin.H{"message": "登出成功"})
}

// GetCurrentUser 当前登录用户
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	sessionID, ok := MustGetSessionID(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetCurrentUser(c.Request.Context(), sessionID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, user)
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	var rejected *service.LoginRejectedError
	switch {
	case errors.As(err, &rejected):
		response.Unauthorized(c, 11001, rejected.Reason)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrSessionExpired):
		response.Unauthorized(c, 11002, "会话已过期，请重新登录")
	case errors.Is(err, service.ErrPortalUnavailable):
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, 11003, "学校入口服务暂时无法连接")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
