package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/changrun1/QAQ-backend/internal/api/middleware"
	"github.com/changrun1/QAQ-backend/pkg/response"
)

// MustGetStudentID 从 Gin 上下文中安全提取 student_id。
// 如果会话中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetStudentID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.ContextStudentID)
}

// MustGetSessionID 从 Gin 上下文中安全提取 session_id。
func MustGetSessionID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.ContextSessionID)
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// bindJSON 绑定请求体；超过大小限制返回 413，其余绑定失败返回 400
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return false
		}
		response.BadRequest(c, 10001, "参数校验失败")
		return false
	}
	return true
}
