package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/blogman/internal/model"
)

// PostgresProfileRepo はProfileRepositoryのPostgreSQL実装。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo は新しいPostgresProfileRepoを作成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

const profileColumns = `id, username, email, password_hash, full_name, avatar_url, bio, website, role, created_at, updated_at`

func scanProfile(row *sql.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ID, &p.Username, &p.Email, &p.PasswordHash,
		&p.FullName, &p.AvatarURL, &p.Bio, &p.Website,
		&p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	return &p, nil
}

// FindByID は指定IDのプロフィールを取得する。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// FindByEmail はメールアドレスでプロフィールを検索する。
func (r *PostgresProfileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
	return scanProfile(row)
}

// FindByUsername はユーザー名でプロフィールを検索する。
func (r *PostgresProfileRepo) FindByUsername(ctx context.Context, username string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE username = $1`, username)
	return scanProfile(row)
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, email, password_hash, full_name, avatar_url, bio, website, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		profile.ID, profile.Username, profile.Email, profile.PasswordHash,
		profile.FullName, profile.AvatarURL, profile.Bio, profile.Website, profile.Role,
	)
	if err != nil {
		return fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はプロフィール情報を更新する。認証情報とロールは対象外。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET full_name = $2, avatar_url = $3, bio = $4, website = $5, updated_at = now()
		WHERE id = $1`,
		profile.ID, profile.FullName, profile.AvatarURL, profile.Bio, profile.Website,
	)
	if err != nil {
		return fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのプロフィールを削除する。
func (r *PostgresProfileRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("プロフィールの削除に失敗しました: %w", err)
	}
	return nil
}

// FindFirstAdmin は最も古い管理者プロフィールを返す。
// フィードインポートの下書き著者を決定するために使用する。
// 管理者が存在しない場合はnilを返す。
func (r *PostgresProfileRepo) FindFirstAdmin(ctx context.Context) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE role = $1 ORDER BY created_at LIMIT 1`,
		model.RoleAdmin)
	return scanProfile(row)
}

var _ ProfileRepository = (*PostgresProfileRepo)(nil)
