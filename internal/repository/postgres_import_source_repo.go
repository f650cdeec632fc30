package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/blogman/internal/model"
)

// PostgresImportSourceRepo はImportSourceRepositoryのPostgreSQL実装。
type PostgresImportSourceRepo struct {
	db *sql.DB
}

// NewPostgresImportSourceRepo は新しいPostgresImportSourceRepoを作成する。
func NewPostgresImportSourceRepo(db *sql.DB) *PostgresImportSourceRepo {
	return &PostgresImportSourceRepo{db: db}
}

const importSourceColumns = `id, feed_url, title, category_id, status, consecutive_errors, error_message, last_fetched_at, created_at, updated_at`

func scanImportSource(row rowScanner) (*model.ImportSource, error) {
	var s model.ImportSource
	var categoryID sql.NullString
	err := row.Scan(
		&s.ID, &s.FeedURL, &s.Title, &categoryID, &s.Status,
		&s.ConsecutiveErrors, &s.ErrorMessage, &s.LastFetchedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.CategoryID = categoryID.String
	return &s, nil
}

// FindByID は指定IDのインポート元を取得する。
func (r *PostgresImportSourceRepo) FindByID(ctx context.Context, id string) (*model.ImportSource, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+importSourceColumns+` FROM import_sources WHERE id = $1`, id)
	s, err := scanImportSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("インポート元の取得に失敗しました: %w", err)
	}
	return s, nil
}

// FindByFeedURL はフィードURLでインポート元を検索する。
func (r *PostgresImportSourceRepo) FindByFeedURL(ctx context.Context, feedURL string) (*model.ImportSource, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+importSourceColumns+` FROM import_sources WHERE feed_url = $1`, feedURL)
	s, err := scanImportSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("インポート元の取得に失敗しました: %w", err)
	}
	return s, nil
}

// List は全インポート元を作成日時昇順に返す。
func (r *PostgresImportSourceRepo) List(ctx context.Context) ([]*model.ImportSource, error) {
	return r.list(ctx, ``)
}

// ListActive はアクティブなインポート元を返す。
func (r *PostgresImportSourceRepo) ListActive(ctx context.Context) ([]*model.ImportSource, error) {
	return r.list(ctx, `WHERE status = 'active'`)
}

func (r *PostgresImportSourceRepo) list(ctx context.Context, where string) ([]*model.ImportSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+importSourceColumns+` FROM import_sources `+where+` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("インポート元一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sources []*model.ImportSource
	for rows.Next() {
		s, err := scanImportSource(rows)
		if err != nil {
			return nil, fmt.Errorf("インポート元行のスキャンに失敗しました: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("インポート元一覧の読み取りに失敗しました: %w", err)
	}
	return sources, nil
}

// Create はインポート元を作成する。
func (r *PostgresImportSourceRepo) Create(ctx context.Context, source *model.ImportSource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_sources (id, feed_url, title, category_id, status)
		VALUES ($1, $2, $3, $4, $5)`,
		source.ID, source.FeedURL, source.Title,
		nullableID(source.CategoryID), source.Status,
	)
	if err != nil {
		return fmt.Errorf("インポート元の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateFetchState はフェッチ結果を更新する。
func (r *PostgresImportSourceRepo) UpdateFetchState(ctx context.Context, source *model.ImportSource) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE import_sources
		SET title = $2, status = $3, consecutive_errors = $4,
		    error_message = $5, last_fetched_at = $6, updated_at = now()
		WHERE id = $1`,
		source.ID, source.Title, source.Status,
		source.ConsecutiveErrors, source.ErrorMessage, source.LastFetchedAt,
	)
	if err != nil {
		return fmt.Errorf("インポート元の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのインポート元を削除する。
func (r *PostgresImportSourceRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM import_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("インポート元の削除に失敗しました: %w", err)
	}
	return nil
}

var _ ImportSourceRepository = (*PostgresImportSourceRepo)(nil)
