package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/blogman/internal/model"
)

// PostgresCategoryRepo はCategoryRepositoryのPostgreSQL実装。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo は新しいPostgresCategoryRepoを作成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

func scanCategory(row *sql.Row) (*model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	return &c, nil
}

// FindByID は指定IDのカテゴリを取得する。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, created_at FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

// FindBySlug はスラッグでカテゴリを検索する。
func (r *PostgresCategoryRepo) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description, created_at FROM categories WHERE slug = $1`, slug)
	return scanCategory(row)
}

// ListWithPostCount は全カテゴリを公開記事数付きで名前順に返す。
func (r *PostgresCategoryRepo) ListWithPostCount(ctx context.Context) ([]model.CategoryWithCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.slug, c.description, c.created_at,
		       count(p.id) FILTER (WHERE p.published)
		FROM categories c
		LEFT JOIN posts p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []model.CategoryWithCount
	for rows.Next() {
		var c model.CategoryWithCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.PostCount); err != nil {
			return nil, fmt.Errorf("カテゴリ行のスキャンに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の読み取りに失敗しました: %w", err)
	}
	return categories, nil
}

// Create はカテゴリを作成する。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description)
		VALUES ($1, $2, $3, $4)`,
		category.ID, category.Name, category.Slug, category.Description,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はカテゴリの名前・スラッグ・説明を更新する。
func (r *PostgresCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = $2, slug = $3, description = $4 WHERE id = $1`,
		category.ID, category.Name, category.Slug, category.Description,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのカテゴリを削除する。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}
	return nil
}

var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
