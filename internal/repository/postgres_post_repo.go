package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/blogman/internal/model"
)

// PostgresPostRepo はPostRepositoryのPostgreSQL実装。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo は新しいPostgresPostRepoを作成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// postMetaSelect は記事とメタ情報（著者・カテゴリ・いいね数・コメント数）を
// 結合して取得するSELECT句。エイリアスpがposts本体を指す。
const postMetaSelect = `
	SELECT p.id, p.title, p.slug, p.content, p.excerpt, p.author_id,
	       p.category_id, p.cover_image, p.published, p.featured,
	       p.publish_date, p.read_time, p.views, p.import_guid,
	       p.created_at, p.updated_at,
	       a.username, a.avatar_url,
	       COALESCE(c.name, ''), COALESCE(c.slug, ''),
	       (SELECT count(*) FROM reactions r WHERE r.post_id = p.id AND r.reaction_type = 'like'),
	       (SELECT count(*) FROM comments cm WHERE cm.post_id = p.id)
	FROM posts p
	JOIN profiles a ON a.id = p.author_id
	LEFT JOIN categories c ON c.id = p.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostWithMeta(row rowScanner) (*model.PostWithMeta, error) {
	var p model.PostWithMeta
	var categoryID sql.NullString
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.AuthorID,
		&categoryID, &p.CoverImage, &p.Published, &p.Featured,
		&p.PublishDate, &p.ReadTime, &p.Views, &p.ImportGUID,
		&p.CreatedAt, &p.UpdatedAt,
		&p.AuthorUsername, &p.AuthorAvatar,
		&p.CategoryName, &p.CategorySlug,
		&p.LikeCount, &p.CommentCount,
	)
	if err != nil {
		return nil, err
	}
	p.CategoryID = categoryID.String
	return &p, nil
}

// nullableID は空文字をNULLに変換する。category_id等のNULL許容FK用。
func nullableID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

// FindByID は指定IDの記事を取得する。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByImportGUID はインポートGUIDで記事を検索する。
func (r *PostgresPostRepo) FindByImportGUID(ctx context.Context, guid string) (*model.Post, error) {
	return r.findOne(ctx, `WHERE import_guid = $1`, guid)
}

func (r *PostgresPostRepo) findOne(ctx context.Context, where string, arg any) (*model.Post, error) {
	var p model.Post
	var categoryID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, slug, content, excerpt, author_id, category_id,
		       cover_image, published, featured, publish_date, read_time,
		       views, import_guid, created_at, updated_at
		FROM posts `+where, arg,
	).Scan(
		&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.AuthorID, &categoryID,
		&p.CoverImage, &p.Published, &p.Featured, &p.PublishDate, &p.ReadTime,
		&p.Views, &p.ImportGUID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	p.CategoryID = categoryID.String
	return &p, nil
}

// FindBySlug はスラッグで記事をメタ情報付きで検索する。
func (r *PostgresPostRepo) FindBySlug(ctx context.Context, slug string) (*model.PostWithMeta, error) {
	row := r.db.QueryRowContext(ctx, postMetaSelect+` WHERE p.slug = $1`, slug)
	p, err := scanPostWithMeta(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return p, nil
}

// List は記事一覧をカーソルベースページネーションで返す。
func (r *PostgresPostRepo) List(ctx context.Context, filter model.PostFilter, cursor time.Time, limit int) ([]model.PostWithMeta, error) {
	query := postMetaSelect + ` WHERE 1=1`
	args := []any{}
	argN := 1

	if !filter.IncludeDrafts {
		query += ` AND p.published`
	}
	if filter.FeaturedOnly {
		query += ` AND p.featured`
	}
	if filter.CategorySlug != "" {
		query += fmt.Sprintf(` AND c.slug = $%d`, argN)
		args = append(args, filter.CategorySlug)
		argN++
	}
	if !cursor.IsZero() {
		query += fmt.Sprintf(` AND p.created_at < $%d`, argN)
		args = append(args, cursor)
		argN++
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT $%d`, argN)
	args = append(args, limit)

	return r.queryMeta(ctx, query, args...)
}

// Search は公開記事をタイトル・本文の部分一致で検索する。
func (r *PostgresPostRepo) Search(ctx context.Context, query string, limit int) ([]model.PostWithMeta, error) {
	pattern := "%" + query + "%"
	return r.queryMeta(ctx, postMetaSelect+`
		WHERE p.published AND (p.title ILIKE $1 OR p.content ILIKE $1)
		ORDER BY p.created_at DESC
		LIMIT $2`, pattern, limit)
}

func (r *PostgresPostRepo) queryMeta(ctx context.Context, query string, args ...any) ([]model.PostWithMeta, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
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
		return nil, fmt.Errorf("記事一覧の読み取りに失敗しました: %w", err)
	}
	return posts, nil
}

// ListCorpus は全公開記事のタイトル・本文・スラッグを作成日時降順で返す。
func (r *PostgresPostRepo) ListCorpus(ctx context.Context) ([]model.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, slug, content
		FROM posts
		WHERE published
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("記事コーパスの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Content); err != nil {
			return nil, fmt.Errorf("記事行のスキャンに失敗しました: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事コーパスの読み取りに失敗しました: %w", err)
	}
	return posts, nil
}

// Create は記事を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, slug, content, excerpt, author_id, category_id,
		                   cover_image, published, featured, publish_date, read_time, import_guid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		post.ID, post.Title, post.Slug, post.Content, post.Excerpt,
		post.AuthorID, nullableID(post.CategoryID), post.CoverImage,
		post.Published, post.Featured, post.PublishDate, post.ReadTime, post.ImportGUID,
	)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は記事を上書き更新する。
func (r *PostgresPostRepo) Update(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE posts
		SET title = $2, slug = $3, content = $4, excerpt = $5, category_id = $6,
		    cover_image = $7, published = $8, featured = $9, publish_date = $10,
		    read_time = $11, updated_at = now()
		WHERE id = $1`,
		post.ID, post.Title, post.Slug, post.Content, post.Excerpt,
		nullableID(post.CategoryID), post.CoverImage, post.Published,
		post.Featured, post.PublishDate, post.ReadTime,
	)
	if err != nil {
		return fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの記事を削除する。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	return nil
}

// IncrementViews は閲覧数をアトミックに+1する。
func (r *PostgresPostRepo) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("閲覧数の更新に失敗しました: %w", err)
	}
	return nil
}

// CountByPublished は公開状態別の記事数を返す。
func (r *PostgresPostRepo) CountByPublished(ctx context.Context) (int, int, error) {
	var published, drafts int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FILTER (WHERE published),
		       count(*) FILTER (WHERE NOT published)
		FROM posts`,
	).Scan(&published, &drafts)
	if err != nil {
		return 0, 0, fmt.Errorf("記事数の集計に失敗しました: %w", err)
	}
	return published, drafts, nil
}

var _ PostRepository = (*PostgresPostRepo)(nil)
