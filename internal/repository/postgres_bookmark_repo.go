package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/blogman/internal/model"
)

// PostgresBookmarkRepo はBookmarkRepositoryのPostgreSQL実装。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo は新しいPostgresBookmarkRepoを作成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

// Toggle はブックマークをトグルする。実装方針はリアクションのトグルと同じ。
func (r *PostgresBookmarkRepo) Toggle(ctx context.Context, postID, userID string) (*model.ToggleResult, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, post_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING`,
		uuid.NewString(), postID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ブックマークの登録に失敗しました: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("ブックマーク登録結果の取得に失敗しました: %w", err)
	}

	active := inserted > 0
	if !active {
		if _, err := r.db.ExecContext(ctx, `
			DELETE FROM bookmarks WHERE post_id = $1 AND user_id = $2`,
			postID, userID,
		); err != nil {
			return nil, fmt.Errorf("ブックマークの解除に失敗しました: %w", err)
		}
	}

	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM bookmarks WHERE post_id = $1`, postID,
	).Scan(&count); err != nil {
		return nil, fmt.Errorf("ブックマーク数の集計に失敗しました: %w", err)
	}
	return &model.ToggleResult{Active: active, Count: count}, nil
}

// Exists は指定(post, user)のブックマークが存在するかを返す。
func (r *PostgresBookmarkRepo) Exists(ctx context.Context, postID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookmarks WHERE post_id = $1 AND user_id = $2
		)`, postID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ブックマークの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// ListByUser はユーザーのブックマーク済み記事をブックマーク日時降順に返す。
func (r *PostgresBookmarkRepo) ListByUser(ctx context.Context, userID string) ([]model.PostWithMeta, error) {
	rows, err := r.db.QueryContext(ctx, postMetaSelect+`
		JOIN bookmarks b ON b.post_id = p.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var posts []model.PostWithMeta
	for rows.Next() {
		p, err := scanPostWithMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("記事行のスキャンに失敗しました: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の読み取りに失敗しました: %w", err)
	}
	return posts, nil
}

var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
