// Package model はドメインモデルを定義する。
package model

import "time"

// Comment は記事へのコメントを表す。
// ParentIDが空の場合はトップレベルコメント、
// 非空の場合はトップレベルコメントへの返信を表す。
// ネストは1段まで（返信への返信は作成できない）。
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	ParentID  string // トップレベルコメントの場合は空
	Content   string // サニタイズ済み
	Reported  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsReply は返信コメントかどうかを返す。
func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}

// CommentWithUser はコメントと投稿者プロフィールを結合したモデル。
type CommentWithUser struct {
	Comment
	Username  string
	AvatarURL string
}

// CommentThread はトップレベルコメントとその返信列を表す。
// 返信は作成日時の昇順で並ぶ。
type CommentThread struct {
	CommentWithUser
	Replies []CommentWithUser
}
