// Package model はドメインモデルを定義する。
package model

import "time"

// Post はブログ記事を表す。
type Post struct {
	ID          string
	Title       string
	Slug        string
	Content     string // サニタイズ済みHTML
	Excerpt     string
	AuthorID    string
	CategoryID  string // 未分類の場合は空
	CoverImage  string
	Published   bool
	Featured    bool
	PublishDate *time.Time
	ReadTime    int // 分単位。1以上
	Views       int
	ImportGUID  string // フィードインポート由来の記事の同一性キー。手動作成の場合は空
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PostWithMeta は記事と著者・カテゴリ情報、リアクション集計を結合したモデル。
type PostWithMeta struct {
	Post
	AuthorUsername string
	AuthorAvatar   string
	CategoryName   string
	CategorySlug   string
	LikeCount      int
	CommentCount   int
}

// PostFilter は記事一覧の絞り込み条件を表す。
type PostFilter struct {
	CategorySlug string
	FeaturedOnly bool
	// IncludeDrafts は未公開記事も含めるかどうか。管理画面のみtrue。
	IncludeDrafts bool
}

// Category はカテゴリ（タクソノミーノード）を表す。記事は1カテゴリに属する。
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}

// CategoryWithCount はカテゴリと公開記事数を結合したモデル。
type CategoryWithCount struct {
	Category
	PostCount int
}
