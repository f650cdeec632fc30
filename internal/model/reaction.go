// Package model はドメインモデルを定義する。
package model

import "time"

// ReactionType はリアクションの種別を表す。
type ReactionType string

const (
	// ReactionTypeLike はいいねリアクション。
	ReactionTypeLike ReactionType = "like"
)

// IsValid はサポートされているリアクション種別かどうかを返す。
func (t ReactionType) IsValid() bool {
	return t == ReactionTypeLike
}

// Reaction はユーザーの記事へのリアクションを表す。
// (post_id, user_id, reaction_type) の組はUNIQUE制約で一意に保たれる。
type Reaction struct {
	ID           string
	PostID       string
	UserID       string
	ReactionType ReactionType
	CreatedAt    time.Time
}

// Bookmark はユーザーの記事ブックマークを表す。
// (post_id, user_id) の組はUNIQUE制約で一意に保たれる。
type Bookmark struct {
	ID        string
	PostID    string
	UserID    string
	CreatedAt time.Time
}

// ToggleResult はトグル操作後の状態を表す。
type ToggleResult struct {
	Active bool // トグル後に行が存在するか
	Count  int  // トグル後の記事全体の件数
}
