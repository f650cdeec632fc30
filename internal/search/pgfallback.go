package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// queryTimeout はフォールバック検索のクエリタイムアウト。
const queryTimeout = 5 * time.Second

// PgFallback はPostgreSQLのILIKE検索によるSearcherの実装。
// Meilisearchが利用できない間のフォールバックとして使用される。
type PgFallback struct {
	db *sql.DB
}

// NewPgFallback はPostgreSQLフォールバック検索を生成する。
func NewPgFallback(db *sql.DB) *PgFallback {
	return &PgFallback{db: db}
}

// Healthy は常にtrueを返す。PostgreSQLが落ちていればアプリ全体が機能しない。
func (p *PgFallback) Healthy() bool {
	return true
}

// Search は公開記事をタイトル・本文の部分一致で検索する。
// タイトル一致を本文一致より優先し、同順位は新しい記事を先に返す。
func (p *PgFallback) Search(q Query) ([]Result, int, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + text + "%"
	query := `
		SELECT p.id, p.title, p.slug, p.excerpt
		FROM posts p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.published AND (p.title ILIKE $1 OR p.content ILIKE $1)`
	args := []any{pattern}
	if q.CategorySlug != "" {
		query += ` AND c.slug = $2`
		args = append(args, q.CategorySlug)
	}
	query += fmt.Sprintf(`
		ORDER BY (p.title ILIKE $1) DESC, p.created_at DESC
		LIMIT %d`, limit)

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("フォールバック検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Slug, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("検索結果のスキャンに失敗しました: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("検索結果の読み取りに失敗しました: %w", err)
	}
	return results, len(results), nil
}

var _ Searcher = (*PgFallback)(nil)
