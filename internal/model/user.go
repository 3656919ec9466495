package model

import "time"

// UserSession 登录会话表 — 对应 users
//
// 每位学生仅保留一条会话：重复登录时按 student_id upsert，旧 session 随之失效。
type UserSession struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"               json:"-"`
	StudentID string    `gorm:"type:varchar(20);not null;uniqueIndex"  json:"studentId"`
	SessionID string    `gorm:"type:varchar(128);not null;index"       json:"-"`
	Name      string    `gorm:"type:varchar(100)"                      json:"name,omitempty"`
	Email     string    `gorm:"type:varchar(255)"                      json:"email,omitempty"`
	ExpiresAt time.Time `gorm:"not null;index"                         json:"expiresAt"`
	BaseModel
}

// TableName 指定表名
func (UserSession) TableName() string { return "users" }

// Expired 会话是否已过期
func (s *UserSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
