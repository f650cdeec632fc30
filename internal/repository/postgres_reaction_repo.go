package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/blogman/internal/model"
)

// PostgresReactionRepo はReactionRepositoryのPostgreSQL実装。
type PostgresReactionRepo struct {
	db *sql.DB
}

// NewPostgresReactionRepo は新しいPostgresReactionRepoを作成する。
func NewPostgresReactionRepo(db *sql.DB) *PostgresReactionRepo {
	return &PostgresReactionRepo{db: db}
}

// Toggle はリアクションをトグルする。
// ON CONFLICT DO NOTHINGのINSERTを先に試み、挿入できなければDELETEする。
// どちらの経路も単一文でアトミックに完結するためロックは不要。
func (r *PostgresReactionRepo) Toggle(ctx context.Context, postID, userID string, reactionType model.ReactionType) (*model.ToggleResult, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO reactions (id, post_id, user_id, reaction_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, user_id, reaction_type) DO NOTHING`,
		uuid.NewString(), postID, userID, reactionType,
	)
	if err != nil {
		return nil, fmt.Errorf("リアクションの登録に失敗しました: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("リアクション登録結果の取得に失敗しました: %w", err)
	}

	active := inserted > 0
	if !active {
		if _, err := r.db.ExecContext(ctx, `
			DELETE FROM reactions
			WHERE post_id = $1 AND user_id = $2 AND reaction_type = $3`,
			postID, userID, reactionType,
		); err != nil {
			return nil, fmt.Errorf("リアクションの解除に失敗しました: %w", err)
		}
	}

	count, err := r.CountByPost(ctx, postID, reactionType)
	if err != nil {
		return nil, err
	}
	return &model.ToggleResult{Active: active, Count: count}, nil
}

// Exists は指定(post, user, type)のリアクションが存在するかを返す。
func (r *PostgresReactionRepo) Exists(ctx context.Context, postID, userID string, reactionType model.ReactionType) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reactions
			WHERE post_id = $1 AND user_id = $2 AND reaction_type = $3
		)`, postID, userID, reactionType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("リアクションの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// CountByPost は記事のリアクション種別ごとの件数を返す。
func (r *PostgresReactionRepo) CountByPost(ctx context.Context, postID string, reactionType model.ReactionType) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM reactions
		WHERE post_id = $1 AND reaction_type = $2`,
		postID, reactionType,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("リアクション数の集計に失敗しました: %w", err)
	}
	return count, nil
}

var _ ReactionRepository = (*PostgresReactionRepo)(nil)
