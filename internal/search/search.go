// Package search は記事の全文検索を提供する。
//
// 主系はMeilisearch、Meilisearchが利用できない間は
// PostgreSQLのILIKE検索にフォールバックする。
package search

// PostRecord は検索インデックスに登録する記事データ。
type PostRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Excerpt      string `json:"excerpt"`
	Content      string `json:"content"`
	Slug         string `json:"slug"`
	CategorySlug string `json:"categorySlug"`
	Published    bool   `json:"published"`
}

// Result は検索ヒット1件を表す。
type Result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Slug    string `json:"slug"`
	Snippet string `json:"snippet"`
}

// Query は検索リクエストを表す。
type Query struct {
	Text         string
	CategorySlug string // 空なら全カテゴリ
	Limit        int
}

// Searcher は全文検索を実行できる。
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer は記事を検索インデックスに反映できる。
// 記事の作成・更新・削除時にサービス層から呼ばれる。
type Indexer interface {
	IndexPost(record PostRecord) error
	DeletePost(id string) error
}
