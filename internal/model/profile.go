// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleAdmin は管理画面にアクセスできる管理者ロール。
	RoleAdmin Role = "admin"
	// RoleVerified はコメント・リアクション・ブックマークが可能な認証済みユーザー。
	RoleVerified Role = "verified"
	// RoleGuest は閲覧のみのゲストロール。
	RoleGuest Role = "guest"
)

// Profile はサービス利用ユーザーのプロフィールを表す。
// 認証情報（メールアドレスとパスワードハッシュ）もここに保持する。
type Profile struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	AvatarURL    string
	Bio          string
	Website      string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin は管理者ロールかどうかを返す。
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
