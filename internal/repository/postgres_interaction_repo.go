package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/blogman/internal/model"
)

// PostgresInteractionStateRepo はInteractionStateRepositoryのPostgreSQL実装。
type PostgresInteractionStateRepo struct {
	db *sql.DB
}

// NewPostgresInteractionStateRepo は新しいPostgresInteractionStateRepoを作成する。
func NewPostgresInteractionStateRepo(db *sql.DB) *PostgresInteractionStateRepo {
	return &PostgresInteractionStateRepo{db: db}
}

// Find は指定(user, post, kind)の状態を取得する。
func (r *PostgresInteractionStateRepo) Find(ctx context.Context, userID, postID string, kind model.InteractionStateKind) (*model.InteractionState, error) {
	var s model.InteractionState
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, post_id, kind, value, created_at, updated_at
		FROM interaction_states
		WHERE user_id = $1 AND post_id = $2 AND kind = $3`,
		userID, postID, kind,
	).Scan(&s.ID, &s.UserID, &s.PostID, &s.Kind, &s.Value, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("インタラクション状態の取得に失敗しました: %w", err)
	}
	return &s, nil
}

// Upsert は状態を冪等にUPSERTする。同じ値で何度呼んでも結果は変わらない。
func (r *PostgresInteractionStateRepo) Upsert(ctx context.Context, userID, postID string, kind model.InteractionStateKind, value []byte) (*model.InteractionState, error) {
	var s model.InteractionState
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO interaction_states (id, user_id, post_id, kind, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, post_id, kind) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
		RETURNING id, user_id, post_id, kind, value, created_at, updated_at`,
		uuid.NewString(), userID, postID, kind, value,
	).Scan(&s.ID, &s.UserID, &s.PostID, &s.Kind, &s.Value, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("インタラクション状態のUPSERTに失敗しました: %w", err)
	}
	return &s, nil
}

var _ InteractionStateRepository = (*PostgresInteractionStateRepo)(nil)
