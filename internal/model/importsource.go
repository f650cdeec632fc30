// Package model はドメインモデルを定義する。
package model

import "time"

// ImportStatus はインポート元の取得状態を表す。
type ImportStatus string

const (
	// ImportStatusActive はアクティブな取得状態。
	ImportStatusActive ImportStatus = "active"
	// ImportStatusError は連続エラーによる停止状態。
	ImportStatusError ImportStatus = "error"
)

// ImportSource は外部フィードからの記事インポート元を表す。
// 管理者が登録し、ワーカーが定期的にフェッチして下書き記事を作成する。
type ImportSource struct {
	ID                string
	FeedURL           string
	Title             string
	CategoryID        string // インポートされた下書きに付与するカテゴリ。空なら未分類
	Status            ImportStatus
	ConsecutiveErrors int
	ErrorMessage      string
	LastFetchedAt     *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ImportedArticle はフィードパーサーから取得した未保存の記事データを表す。
type ImportedArticle struct {
	GUID        string
	Title       string
	Link        string
	Content     string // 未サニタイズのHTML
	Summary     string // 未サニタイズ
	PublishedAt *time.Time
}
