package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/changrun1/QAQ-backend/config"
	"github.com/changrun1/QAQ-backend/internal/dto"
	"github.com/changrun1/QAQ-backend/internal/model"
	"github.com/changrun1/QAQ-backend/internal/repository"
	"github.com/changrun1/QAQ-backend/pkg/jwt"
	"github.com/changrun1/QAQ-backend/pkg/portal"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("帐号或密码错误")
	ErrSessionExpired     = errors.New("会话已过期或无效")
	ErrPortalUnavailable  = errors.New("学校入口服务暂时无法连接")
)

// LoginRejectedError 入口拒绝登录；Reason 为入口返回的提示文字
type LoginRejectedError struct {
	Reason string
}

func (e *LoginRejectedError) Error() string { return e.Reason }

// Is 使 errors.Is(err, ErrInvalidCredentials) 成立
func (e *LoginRejectedError) Is(target error) bool { return target == ErrInvalidCredentials }

// PortalClient 学校入口接口
type PortalClient interface {
	Login(ctx context.Context, username, password string) (*portal.LoginResult, error)
	CheckSession(ctx context.Context, sessionID string) bool
}

// SessionCache 会话缓存；Redis 不可用时传 nil
type SessionCache interface {
	SetSession(ctx context.Context, sessionID string, v interface{}, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string, dst interface{}) (bool, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	ValidateSession(ctx context.Context, sessionID string) (*model.UserSession, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*dto.UserResponse, error)
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

type authService struct {
	cfg    *config.AuthConfig
	repo   *repository.Repository
	portal PortalClient
	jwtMgr *jwt.Manager
	cache  SessionCache
	now    func() time.Time
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例；cache 可为 nil
func NewAuthService(
	cfg *config.AuthConfig,
	repo *repository.Repository,
	portalClient PortalClient,
	jwtMgr *jwt.Manager,
	cache SessionCache,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		portal: portalClient,
		jwtMgr: jwtMgr,
		cache:  cache,
		now:    time.Now,
		logger: logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Login 登录
//
// 流程：
//  1. 以学号密码调用学校入口登录
//  2. 按学号 upsert 会话（session_id 为入口返回的 JSESSIONID）
//  3. 签发包装该会话的 Access Token，并写入会话缓存
// ═══════════════════════════════════════════════════════════

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	result, err := s.portal.Login(ctx, req.Username, req.Password)
	if err != nil {
		s.logger.Warn("入口登录失败", zap.String("student_id", req.Username), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPortalUnavailable, err)
	}
	if !result.Success || result.SessionID == "" {
		reason := result.ErrorMsg
		if reason == "" {
			reason = ErrInvalidCredentials.Error()
		}
		return nil, &LoginRejectedError{Reason: reason}
	}

	session := &model.UserSession{
		StudentID: req.Username,
		SessionID: result.SessionID,
		Name:      result.GivenName,
		Email:     result.UserMail,
		ExpiresAt: s.now().Add(s.cfg.SessionTTL),
	}
	if err := s.repo.Session.Upsert(ctx, session); err != nil {
		s.logger.Error("保存会话失败", zap.String("student_id", req.Username), zap.Error(err))
		return nil, err
	}

	token, _, err := s.jwtMgr.GenerateToken(session.StudentID, session.SessionID)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	s.cacheSession(ctx, session)

	s.logger.Info("用户登录成功", zap.String("student_id", session.StudentID))

	expiresAt := session.ExpiresAt
	return &dto.LoginResponse{
		SessionID:   session.SessionID,
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User: dto.UserResponse{
			StudentID: session.StudentID,
			Name:      session.Name,
			Email:     session.Email,
		},
	}, nil
}

// ────────────────────── ValidateSession ──────────────────────

// ValidateSession 先查缓存，未命中再查数据库；过期或不存在返回 ErrSessionExpired
func (s *authService) ValidateSession(ctx context.Context, sessionID string) (*model.UserSession, error) {
	if sessionID == "" {
		return nil, ErrSessionExpired
	}
	now := s.now()

	if s.cache != nil {
		var cached cachedSession
		hit, err := s.cache.GetSession(ctx, sessionID, &cached)
		if err != nil {
			s.logger.Warn("读取会话缓存失败，回退数据库", zap.Error(err))
		} else if hit && cached.SessionID == sessionID {
			if session := cached.toModel(); !session.Expired(now) {
				return session, nil
			}
		}
	}

	session, err := s.repo.Session.GetBySessionID(ctx, sessionID, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionExpired
		}
		s.logger.Error("查询会话失败", zap.Error(err))
		return nil, err
	}

	s.cacheSession(ctx, session)
	return session, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if err := s.repo.Session.DeleteBySessionID(ctx, sessionID); err != nil {
		s.logger.Error("删除会话失败", zap.Error(err))
		return err
	}
	if s.cache != nil {
		if err := s.cache.DeleteSession(ctx, sessionID); err != nil {
			s.logger.Warn("删除会话缓存失败", zap.Error(err))
		}
	}
	return nil
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, sessionID string) (*dto.UserResponse, error) {
	session, err := s.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	// 本地会话有效不代表入口 JSESSIONID 仍有效，顺带回报入口状态
	portalActive := s.portal.CheckSession(ctx, sessionID)

	expiresAt := session.ExpiresAt
	return &dto.UserResponse{
		StudentID:    session.StudentID,
		Name:         session.Name,
		Email:        session.Email,
		ExpiresAt:    &expiresAt,
		PortalActive: &portalActive,
	}, nil
}

// ────────────────────── Cleanup ──────────────────────

// CleanupExpiredSessions 删除已过期会话；缓存条目随 TTL 自然过期
func (s *authService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.repo.Session.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("清理过期会话失败", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("已清理过期会话", zap.Int64("count", n))
	}
	return n, nil
}

// cacheSession 写入缓存失败只记录日志，不影响主流程
func (s *authService) cacheSession(ctx context.Context, session *model.UserSession) {
	if s.cache == nil {
		return
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if err := s.cache.SetSession(ctx, session.SessionID, newCachedSession(session), ttl); err != nil {
		s.logger.Warn("写入会话缓存失败", zap.Error(err))
	}
}

// cachedSession 会话缓存的序列化格式（model.UserSession 的 JSON 不含 session_id）
type cachedSession struct {
	StudentID string    `json:"studentId"`
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newCachedSession(m *model.UserSession) cachedSession {
	return cachedSession{
		StudentID: m.StudentID,
		SessionID: m.SessionID,
		Name:      m.Name,
		Email:     m.Email,
		ExpiresAt: m.ExpiresAt,
	}
}

func (c cachedSession) toModel() *model.UserSession {
	return &model.UserSession{
		StudentID: c.StudentID,
		SessionID: c.SessionID,
		Name:      c.Name,
		Email:     c.Email,
		ExpiresAt: c.ExpiresAt,
	}
}
