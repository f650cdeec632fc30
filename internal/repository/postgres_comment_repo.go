package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/blogman/internal/model"
)

// PostgresCommentRepo はCommentRepositoryのPostgreSQL実装。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo は新しいPostgresCommentRepoを作成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// FindByID は指定IDのコメントを取得する。
func (r *PostgresCommentRepo) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	var parentID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, post_id, user_id, parent_id, content, reported, created_at, updated_at
		FROM comments WHERE id = $1`, id,
	).Scan(&c.ID, &c.PostID, &c.UserID, &parentID, &c.Content, &c.Reported, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	c.ParentID = parentID.String
	return &c, nil
}

// ListThreadsByPost は記事のコメントをスレッド構造で返す。
// トップレベルと返信を1クエリで取得し、メモリ上でスレッドに組み立てる。
func (r *PostgresCommentRepo) ListThreadsByPost(ctx context.Context, postID string) ([]model.CommentThread, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cm.id, cm.post_id, cm.user_id, cm.parent_id, cm.content,
		       cm.reported, cm.created_at, cm.updated_at,
		       p.username, p.avatar_url
		FROM comments cm
		JOIN profiles p ON p.id = cm.user_id
		WHERE cm.post_id = $1
		ORDER BY cm.created_at`, postID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var threads []model.CommentThread
	threadIndex := map[string]int{}
	for rows.Next() {
		var c model.CommentWithUser
		var parentID sql.NullString
		if err := rows.Scan(
			&c.ID, &c.PostID, &c.UserID, &parentID, &c.Content,
			&c.Reported, &c.CreatedAt, &c.UpdatedAt,
			&c.Username, &c.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("コメント行のスキャンに失敗しました: %w", err)
		}
		c.ParentID = parentID.String

		if c.ParentID == "" {
			threadIndex[c.ID] = len(threads)
			threads = append(threads, model.CommentThread{CommentWithUser: c})
			continue
		}
		// 作成日時昇順で読んでいるため親は必ず先に現れる
		if i, ok := threadIndex[c.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コメント一覧の読み取りに失敗しました: %w", err)
	}
	return threads, nil
}

// ListReported は通報済みコメントを投稿者情報付きで作成日時降順に返す。
func (r *PostgresCommentRepo) ListReported(ctx context.Context) ([]model.CommentWithUser, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cm.id, cm.post_id, cm.user_id, cm.parent_id, cm.content,
		       cm.reported, cm.created_at, cm.updated_at,
		       p.username, p.avatar_url
		FROM comments cm
		JOIN profiles p ON p.id = cm.user_id
		WHERE cm.reported
		ORDER BY cm.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("通報コメント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var comments []model.CommentWithUser
	for rows.Next() {
		var c model.CommentWithUser
		var parentID sql.NullString
		if err := rows.Scan(
			&c.ID, &c.PostID, &c.UserID, &parentID, &c.Content,
			&c.Reported, &c.CreatedAt, &c.UpdatedAt,
			&c.Username, &c.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("コメント行のスキャンに失敗しました: %w", err)
		}
		c.ParentID = parentID.String
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通報コメント一覧の読み取りに失敗しました: %w", err)
	}
	return comments, nil
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, user_id, parent_id, content)
		VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.PostID, comment.UserID,
		nullableID(comment.ParentID), comment.Content,
	)
	if err != nil {
		return fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}
	return nil
}

// SetReported は通報フラグを更新する。
func (r *PostgresCommentRepo) SetReported(ctx context.Context, id string, reported bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE comments SET reported = $2, updated_at = now() WHERE id = $1`,
		id, reported,
	)
	if err != nil {
		return fmt.Errorf("通報フラグの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのコメントを削除する。返信はCASCADE削除される。
func (r *PostgresCommentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}
	return nil
}

// CountReported は通報済みコメント数を返す。
func (r *PostgresCommentRepo) CountReported(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM comments WHERE reported`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("通報コメント数の集計に失敗しました: %w", err)
	}
	return count, nil
}

// CountAll は全コメント数を返す。
func (r *PostgresCommentRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM comments`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("コメント数の集計に失敗しました: %w", err)
	}
	return count, nil
}

var _ CommentRepository = (*PostgresCommentRepo)(nil)
