// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/blogman/internal/model"
)

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByEmail はメールアドレスでプロフィールを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)

	// FindByUsername はユーザー名でプロフィールを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Profile, error)

	// Create はプロフィールを作成する。
	Create(ctx context.Context, profile *model.Profile) error

	// Update はプロフィール情報（表示名・自己紹介・サイト・アバター）を更新する。
	Update(ctx context.Context, profile *model.Profile) error

	// DeleteByID は指定IDのプロフィールを削除する。
	// 関連するセッション、コメント、リアクション、ブックマークはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// FindBySlug はスラッグでカテゴリを検索する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Category, error)

	// ListWithPostCount は全カテゴリを公開記事数付きで名前順に返す。
	ListWithPostCount(ctx context.Context) ([]model.CategoryWithCount, error)

	// Create はカテゴリを作成する。
	Create(ctx context.Context, category *model.Category) error

	// Update はカテゴリの名前・スラッグ・説明を更新する。
	Update(ctx context.Context, category *model.Category) error

	// Delete は指定IDのカテゴリを削除する。
	// 属していた記事のcategory_idはNULLになる（記事は削除されない）。
	Delete(ctx context.Context, id string) error
}

// PostRepository は記事データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// FindBySlug はスラッグで記事をメタ情報付きで検索する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.PostWithMeta, error)

	// FindByImportGUID はインポートGUIDで記事を検索する。見つからない場合はnilを返す。
	// フィードインポートの同一性判定に使用する。
	FindByImportGUID(ctx context.Context, guid string) (*model.Post, error)

	// List は記事一覧をメタ情報付きでカーソルベースページネーションで返す。
	// created_at降順。cursorがゼロ値の場合は先頭から取得する。
	List(ctx context.Context, filter model.PostFilter, cursor time.Time, limit int) ([]model.PostWithMeta, error)

	// ListCorpus は全公開記事のタイトル・本文・スラッグを作成日時降順で返す。
	// 関連記事ランキングのプロンプト構築に使用する。
	ListCorpus(ctx context.Context) ([]model.Post, error)

	// Create は記事を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は記事を上書き更新する。
	Update(ctx context.Context, post *model.Post) error

	// Delete は指定IDの記事を削除する。コメント等はCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// IncrementViews は閲覧数をアトミックに+1する。
	IncrementViews(ctx context.Context, id string) error

	// Search は公開記事をタイトル・本文の部分一致で検索する。
	// Meilisearchが使用できない場合のフォールバック実装。
	Search(ctx context.Context, query string, limit int) ([]model.PostWithMeta, error)

	// CountByPublished は公開状態別の記事数を返す。
	CountByPublished(ctx context.Context) (published int, drafts int, err error)
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// ListThreadsByPost は記事のトップレベルコメントを作成日時昇順で、
	// それぞれの返信も作成日時昇順で返す。
	ListThreadsByPost(ctx context.Context, postID string) ([]model.CommentThread, error)

	// ListReported は通報済みコメントを投稿者情報付きで作成日時降順に返す。
	ListReported(ctx context.Context) ([]model.CommentWithUser, error)

	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// SetReported は通報フラグを更新する。
	SetReported(ctx context.Context, id string, reported bool) error

	// Delete は指定IDのコメントを削除する。返信はCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// CountReported は通報済みコメント数を返す。
	CountReported(ctx context.Context) (int, error)

	// CountAll は全コメント数を返す。
	CountAll(ctx context.Context) (int, error)
}

// ReactionRepository はリアクションデータの永続化インターフェース。
// トグルはUNIQUE制約を前提にしたアトミックなINSERT/DELETEで実装される。
type ReactionRepository interface {
	// Toggle はリアクションをトグルする。
	// 行が存在しなければINSERT（active=true）、存在すればDELETE（active=false）し、
	// トグル後の記事全体の件数を返す。
	Toggle(ctx context.Context, postID, userID string, reactionType model.ReactionType) (*model.ToggleResult, error)

	// Exists は指定(post, user, type)のリアクションが存在するかを返す。
	Exists(ctx context.Context, postID, userID string, reactionType model.ReactionType) (bool, error)

	// CountByPost は記事のリアクション種別ごとの件数を返す。
	CountByPost(ctx context.Context, postID string, reactionType model.ReactionType) (int, error)
}

// BookmarkRepository はブックマークデータの永続化インターフェース。
type BookmarkRepository interface {
	// Toggle はブックマークをトグルする。挙動はReactionRepository.Toggleと同様。
	Toggle(ctx context.Context, postID, userID string) (*model.ToggleResult, error)

	// Exists は指定(post, user)のブックマークが存在するかを返す。
	Exists(ctx context.Context, postID, userID string) (bool, error)

	// ListByUser はユーザーのブックマーク済み記事をブックマーク日時降順に返す。
	ListByUser(ctx context.Context, userID string) ([]model.PostWithMeta, error)
}

// SubscriptionRepository はメール購読データの永続化インターフェース。
type SubscriptionRepository interface {
	// FindByEmail はメールアドレスで購読をカテゴリ選択付きで検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Subscription, error)

	// UpsertByEmail は購読をメールアドレスをキーにUPSERTする。
	// 既存購読の場合はカテゴリ選択を全置換する（旧リンク削除→新リンク挿入）。
	// 一連の処理は単一トランザクションで実行される。
	UpsertByEmail(ctx context.Context, email, userID string, categoryIDs []string) (*model.SubscriptionResult, error)

	// ListEmailsByCategory は指定カテゴリを購読しているメールアドレス一覧を返す。
	ListEmailsByCategory(ctx context.Context, categoryID string) ([]string, error)
}

// InteractionStateRepository はユーザーごとのインタラクション状態（投票/付箋）の
// 永続化インターフェース。
type InteractionStateRepository interface {
	// Find は指定(user, post, kind)の状態を取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, userID, postID string, kind model.InteractionStateKind) (*model.InteractionState, error)

	// Upsert は状態を冪等にUPSERTする。
	Upsert(ctx context.Context, userID, postID string, kind model.InteractionStateKind, value []byte) (*model.InteractionState, error)
}

// ImportSourceRepository は記事インポート元の永続化インターフェース。
type ImportSourceRepository interface {
	// FindByID は指定IDのインポート元を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ImportSource, error)

	// FindByFeedURL はフィードURLでインポート元を検索する。見つからない場合はnilを返す。
	FindByFeedURL(ctx context.Context, feedURL string) (*model.ImportSource, error)

	// List は全インポート元を作成日時昇順に返す。
	List(ctx context.Context) ([]*model.ImportSource, error)

	// ListActive はアクティブなインポート元を返す。
	ListActive(ctx context.Context) ([]*model.ImportSource, error)

	// Create はインポート元を作成する。
	Create(ctx context.Context, source *model.ImportSource) error

	// UpdateFetchState はフェッチ結果（状態・連続エラー数・エラーメッセージ・最終取得日時）を更新する。
	UpdateFetchState(ctx context.Context, source *model.ImportSource) error

	// Delete は指定IDのインポート元を削除する。
	Delete(ctx context.Context, id string) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
