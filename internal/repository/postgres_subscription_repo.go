package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/blogman/internal/model"
)

// PostgresSubscriptionRepo はSubscriptionRepositoryのPostgreSQL実装。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo は新しいPostgresSubscriptionRepoを作成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// FindByEmail はメールアドレスで購読をカテゴリ選択付きで検索する。
func (r *PostgresSubscriptionRepo) FindByEmail(ctx context.Context, email string) (*model.Subscription, error) {
	var s model.Subscription
	var userID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, user_id, created_at, updated_at
		FROM subscriptions WHERE email = $1`, email,
	).Scan(&s.ID, &s.Email, &userID, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}
	s.UserID = userID.String

	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id FROM subscription_categories
		WHERE subscription_id = $1`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("購読カテゴリの取得に失敗しました: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var categoryID string
		if err := rows.Scan(&categoryID); err != nil {
			return nil, fmt.Errorf("購読カテゴリのスキャンに失敗しました: %w", err)
		}
		s.CategoryIDs = append(s.CategoryIDs, categoryID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読カテゴリの読み取りに失敗しました: %w", err)
	}
	return &s, nil
}

// UpsertByEmail は購読をメールアドレスをキーにUPSERTする。
// 既存購読の場合はカテゴリ選択リンクを全置換する。全体が単一トランザクション。
func (r *PostgresSubscriptionRepo) UpsertByEmail(ctx context.Context, email, userID string, categoryIDs []string) (*model.SubscriptionResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	// xmax = 0 はINSERTされた行、非0はUPDATEされた行を示す
	var subscriptionID string
	var updated bool
	err = tx.QueryRowContext(ctx, `
		INSERT INTO subscriptions (id, email, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET user_id = COALESCE(EXCLUDED.user_id, subscriptions.user_id),
		    updated_at = now()
		RETURNING id, (xmax <> 0)`,
		uuid.NewString(), email, nullableID(userID),
	).Scan(&subscriptionID, &updated)
	if err != nil {
		return nil, fmt.Errorf("購読のUPSERTに失敗しました: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM subscription_categories WHERE subscription_id = $1`,
		subscriptionID,
	); err != nil {
		return nil, fmt.Errorf("購読カテゴリの削除に失敗しました: %w", err)
	}

	for _, categoryID := range categoryIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subscription_categories (subscription_id, category_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			subscriptionID, categoryID,
		); err != nil {
			return nil, fmt.Errorf("購読カテゴリの登録に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return &model.SubscriptionResult{SubscriptionID: subscriptionID, Updated: updated}, nil
}

// ListEmailsByCategory は指定カテゴリを購読しているメールアドレス一覧を返す。
func (r *PostgresSubscriptionRepo) ListEmailsByCategory(ctx context.Context, categoryID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.email
		FROM subscriptions s
		JOIN subscription_categories sc ON sc.subscription_id = s.id
		WHERE sc.category_id = $1
		ORDER BY s.email`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("購読メール一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("購読メールのスキャンに失敗しました: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読メール一覧の読み取りに失敗しました: %w", err)
	}
	return emails, nil
}

var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
