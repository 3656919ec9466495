package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/pkg/jwt"
	"github.com/changrun1/QAQ-backend/pkg/response"
)

// 上下文键
const (
	ContextStudentID = "student_id"
	ContextSessionID = "session_id"

	// HeaderSessionID 移动端直接携带入口 session 的请求头
	HeaderSessionID = "X-Session-ID"
)

// SessionValidator 会话校验接口（由 AuthService 实现）
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (*model.UserSession, error)
}

// SessionAuth 会话认证中间件
// 优先读取 Authorization: Bearer <token>（Token 内携带 sid），否则读取 X-Session-ID；
// 两者都需要在会话表中存在且未过期
func SessionAuth(validator SessionValidator, jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(HeaderSessionID)

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(c, 10002, "认证头格式无效")
				c.Abort()
				return
			}
			claims, err := jwtMgr.ParseToken(parts[1])
			if err != nil {
				response.Unauthorized(c, 10002, "Token 无效或已过期")
				c.Abort()
				return
			}
			sessionID = claims.SessionID
		}

		if sessionID == "" {
			response.Unauthorized(c, 10002, "缺少认证信息")
			c.Abort()
			return
		}

		session, err := validator.ValidateSession(c.Request.Context(), sessionID)
		if err != nil {
			response.Unauthorized(c, 10002, "会话已过期，请重新登录")
			c.Abort()
			return
		}

		// 将会话信息注入上下文
		c.Set(ContextStudentID, session.StudentID)
		c.Set(ContextSessionID, session.SessionID)

		c.Next()
	}
}

// SelfOnly 仅允许访问本人资料：路径参数 param 必须等于当前会话的学号
func SelfOnly(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		studentID := c.GetString(ContextStudentID)
		if studentID == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}
		if c.Param(param) != studentID {
			response.Forbidden(c, 10003, "只能存取本人资料")
			c.Abort()
			return
		}
		c.Next()
	}
}
