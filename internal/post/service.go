// Package post は記事管理のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
	"github.com/hitoshi/blogman/internal/search"
)

// defaultPageSize は記事一覧の1ページあたりの件数。
const defaultPageSize = 20

// maxPageSize はクライアントが指定できる件数の上限。
const maxPageSize = 100

// Sanitizer は記事本文のサニタイズインターフェース。
// security.ContentSanitizerServiceを抽象化してテスタビリティを向上させる。
type Sanitizer interface {
	SanitizePost(rawHTML string) string
}

// Service は記事に関するビジネスロジックを提供する。
type Service struct {
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	sanitizer    Sanitizer
	search       *search.Service
}

// NewService はServiceを生成する。searchはnil可（インデックス反映をスキップ）。
func NewService(
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	sanitizer Sanitizer,
	searchSvc *search.Service,
) *Service {
	return &Service{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		sanitizer:    sanitizer,
		search:       searchSvc,
	}
}

// ListInput は記事一覧の取得条件。
type ListInput struct {
	CategorySlug  string
	FeaturedOnly  bool
	IncludeDrafts bool // 管理画面のみtrue
	Cursor        time.Time
	Limit         int
}

// List は公開記事の一覧をカーソルページネーションで返す。
func (s *Service) List(ctx context.Context, input ListInput) ([]model.PostWithMeta, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := model.PostFilter{
		CategorySlug:  input.CategorySlug,
		FeaturedOnly:  input.FeaturedOnly,
		IncludeDrafts: input.IncludeDrafts,
	}
	posts, err := s.postRepo.List(ctx, filter, input.Cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// GetBySlug は公開記事をスラッグで取得し、閲覧数を+1する。
// 未公開記事は存在しないものとして扱う。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.PostWithMeta, error) {
	post, err := s.postRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil || !post.Published {
		return nil, model.NewPostNotFoundError(slug)
	}

	// 閲覧数の更新失敗は記事取得を妨げない
	if err := s.postRepo.IncrementViews(ctx, post.ID); err != nil {
		slog.Warn("閲覧数の更新に失敗しました",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	} else {
		post.Views++
	}
	return post, nil
}

// Search は公開記事を全文検索する。
func (s *Service) Search(ctx context.Context, query, categorySlug string, limit int) ([]search.Result, int, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	return s.search.Search(search.Query{
		Text:         query,
		CategorySlug: categorySlug,
		Limit:        limit,
	})
}

// CreateInput は記事作成・更新のパラメータ。
type CreateInput struct {
	Title      string
	Content    string // 未サニタイズのHTML
	CategoryID string
	CoverImage string
	Published  bool
	Featured   bool
}

// Create は記事を作成する。
// スラッグはタイトルから導出し、衝突時は連番を付与する。
// 本文はサニタイズされ、抜粋と読了時間が自動計算される。
func (s *Service) Create(ctx context.Context, authorID string, input CreateInput) (*model.Post, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return nil, model.NewEmptyContentError()
	}
	if input.CategoryID != "" {
		category, err := s.categoryRepo.FindByID(ctx, input.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to find category: %w", err)
		}
		if category == nil {
			return nil, model.NewCategoryNotFoundError(input.CategoryID)
		}
	}

	slug, err := s.uniqueSlug(ctx, Slugify(input.Title), "")
	if err != nil {
		return nil, err
	}

	content := s.sanitizer.SanitizePost(input.Content)
	now := time.Now()
	post := &model.Post{
		ID:         uuid.New().String(),
		Title:      input.Title,
		Slug:       slug,
		Content:    content,
		Excerpt:    Excerpt(content, ExcerptMaxRunes),
		AuthorID:   authorID,
		CategoryID: input.CategoryID,
		CoverImage: input.CoverImage,
		Published:  input.Published,
		Featured:   input.Featured,
		ReadTime:   ReadTime(content),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if input.Published {
		post.PublishDate = &now
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.indexPost(ctx, post)
	slog.Info("記事を作成しました",
		slog.String("post_id", post.ID),
		slog.String("slug", post.Slug),
		slog.Bool("published", post.Published),
	)
	return post, nil
}

// Update は記事を更新する。
// タイトル変更時もスラッグは維持される（既存リンクを壊さない）。
func (s *Service) Update(ctx context.Context, postID string, input CreateInput) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return nil, model.NewEmptyContentError()
	}
	if input.CategoryID != "" {
		category, err := s.categoryRepo.FindByID(ctx, input.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to find category: %w", err)
		}
		if category == nil {
			return nil, model.NewCategoryNotFoundError(input.CategoryID)
		}
	}

	content := s.sanitizer.SanitizePost(input.Content)
	wasPublished := post.Published

	post.Title = input.Title
	post.Content = content
	post.Excerpt = Excerpt(content, ExcerptMaxRunes)
	post.CategoryID = input.CategoryID
	post.CoverImage = input.CoverImage
	post.Published = input.Published
	post.Featured = input.Featured
	post.ReadTime = ReadTime(content)
	if input.Published && !wasPublished {
		now := time.Now()
		post.PublishDate = &now
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.indexPost(ctx, post)
	return post, nil
}

// Delete は記事を削除する。コメント・リアクション等はCASCADE削除される。
func (s *Service) Delete(ctx context.Context, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if s.search != nil {
		s.search.DeletePost(postID)
	}
	slog.Info("記事を削除しました", slog.String("post_id", postID))
	return nil
}

// Stats は管理ダッシュボード用の集計を表す。
type Stats struct {
	PublishedPosts   int `json:"published_posts"`
	DraftPosts       int `json:"draft_posts"`
	TotalComments    int `json:"total_comments"`
	ReportedComments int `json:"reported_comments"`
}

// CommentCounter はコメント集計のインターフェース。
type CommentCounter interface {
	CountAll(ctx context.Context) (int, error)
	CountReported(ctx context.Context) (int, error)
}

// GetStats は管理ダッシュボード用の集計を返す。
func (s *Service) GetStats(ctx context.Context, comments CommentCounter) (*Stats, error) {
	published, drafts, err := s.postRepo.CountByPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	total, err := comments.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	reported, err := comments.CountReported(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count reported comments: %w", err)
	}
	return &Stats{
		PublishedPosts:   published,
		DraftPosts:       drafts,
		TotalComments:    total,
		ReportedComments: reported,
	}, nil
}

// uniqueSlug はベーススラッグの衝突を検出し、必要なら連番サフィックスを付与する。
// excludeIDは更新時に自分自身を除外するための記事ID。
func (s *Service) uniqueSlug(ctx context.Context, base, excludeID string) (string, error) {
	slug := base
	for i := 2; ; i++ {
		existing, err := s.postRepo.FindBySlug(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if existing == nil || existing.ID == excludeID {
			return slug, nil
		}
		if i > 50 {
			return "", model.NewDuplicateSlugError(base)
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// indexPost は検索インデックスへ反映する。公開記事のみ登録し、
// 非公開化された記事はインデックスから外す。
func (s *Service) indexPost(ctx context.Context, post *model.Post) {
	if s.search == nil {
		return
	}
	if !post.Published {
		s.search.DeletePost(post.ID)
		return
	}

	categorySlug := ""
	if post.CategoryID != "" {
		if category, err := s.categoryRepo.FindByID(ctx, post.CategoryID); err == nil && category != nil {
			categorySlug = category.Slug
		}
	}
	s.search.IndexPost(search.PostRecord{
		ID:           post.ID,
		Title:        post.Title,
		Excerpt:      post.Excerpt,
		Content:      post.Content,
		Slug:         post.Slug,
		CategorySlug: categorySlug,
		Published:    post.Published,
	})
}
