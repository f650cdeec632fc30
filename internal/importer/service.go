// Package importer は外部フィードからの記事インポートを提供する。
// 管理者が登録したインポート元をワーカーが定期的にフェッチし、
// 下書き記事としてUPSERTする。
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/post"
	"github.com/hitoshi/blogman/internal/repository"
)

const (
	// maxConsecutiveErrors を超えて失敗したインポート元はerror状態になり、
	// 以降の定期フェッチ対象から外れる。
	maxConsecutiveErrors = 5
	// maxArticlesPerFetch は1回のフェッチで取り込む記事数の上限。
	maxArticlesPerFetch = 50

	defaultFetchTimeout = 30 * time.Second
	defaultMaxBodySize  = 10 << 20 // 10MiB

	userAgent = "Blogman/1.0 Feed Importer"
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Sanitizer はインポート記事本文のサニタイズインターフェース。
type Sanitizer interface {
	SanitizePost(rawHTML string) string
}

// Metrics はインポート関連メトリクスの記録インターフェース。
type Metrics interface {
	RecordImportedPosts(count int)
	RecordImportFailure()
}

// Service はインポート元の管理とフェッチパイプラインを提供する。
type Service struct {
	sourceRepo   repository.ImportSourceRepository
	postRepo     repository.PostRepository
	categoryRepo repository.CategoryRepository
	ssrfGuard    SSRFValidator
	sanitizer    Sanitizer
	metrics      Metrics // nil可
	// authorID はインポートされた下書きの著者として記録される管理者ID。
	authorID     string
	fetchTimeout time.Duration
	maxBodySize  int64
}

// NewService はServiceを生成する。
// fetchTimeoutとmaxBodySizeが0以下の場合はデフォルト値を使用する。
func NewService(
	sourceRepo repository.ImportSourceRepository,
	postRepo repository.PostRepository,
	categoryRepo repository.CategoryRepository,
	ssrfGuard SSRFValidator,
	sanitizer Sanitizer,
	metrics Metrics,
	authorID string,
	fetchTimeout time.Duration,
	maxBodySize int64,
) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &Service{
		sourceRepo:   sourceRepo,
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		ssrfGuard:    ssrfGuard,
		sanitizer:    sanitizer,
		metrics:      metrics,
		authorID:     authorID,
		fetchTimeout: fetchTimeout,
		maxBodySize:  maxBodySize,
	}
}

// RegisterSource はインポート元を登録する。
// フィードURLはSSRF検証を通過しなければならない。
func (s *Service) RegisterSource(ctx context.Context, feedURL, title, categoryID string) (*model.ImportSource, error) {
	feedURL = strings.TrimSpace(feedURL)
	if err := s.ssrfGuard.ValidateURL(feedURL); err != nil {
		slog.Warn("インポート元URLの検証に失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewSSRFBlockedError()
	}

	existing, err := s.sourceRepo.FindByFeedURL(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to find import source: %w", err)
	}
	if existing != nil {
		return nil, model.NewInvalidURLError("このフィードURLは登録済みです")
	}

	if categoryID != "" {
		category, err := s.categoryRepo.FindByID(ctx, categoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to find category: %w", err)
		}
		if category == nil {
			return nil, model.NewCategoryNotFoundError(categoryID)
		}
	}

	now := time.Now()
	source := &model.ImportSource{
		ID:         uuid.New().String(),
		FeedURL:    feedURL,
		Title:      strings.TrimSpace(title),
		CategoryID: categoryID,
		Status:     model.ImportStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if source.Title == "" {
		// 初期タイトルはフィードURL（パース時に更新される）
		source.Title = feedURL
	}
	if err := s.sourceRepo.Create(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to create import source: %w", err)
	}

	slog.Info("インポート元を登録しました",
		slog.String("source_id", source.ID),
		slog.String("feed_url", source.FeedURL),
	)
	return source, nil
}

// ListSources は全インポート元を返す。
func (s *Service) ListSources(ctx context.Context) ([]*model.ImportSource, error) {
	sources, err := s.sourceRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list import sources: %w", err)
	}
	return sources, nil
}

// DeleteSource はインポート元を削除する。インポート済みの下書きは残る。
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	source, err := s.sourceRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find import source: %w", err)
	}
	if source == nil {
		return model.NewImportSourceNotFoundError(id)
	}
	if err := s.sourceRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete import source: %w", err)
	}
	slog.Info("インポート元を削除しました", slog.String("source_id", id))
	return nil
}

// RefreshAll はアクティブな全インポート元を順番にフェッチする。
// 個別の失敗は記録して続行する。
func (s *Service) RefreshAll(ctx context.Context) {
	sources, err := s.sourceRepo.ListActive(ctx)
	if err != nil {
		slog.Error("インポート元一覧の取得に失敗しました", slog.String("error", err.Error()))
		return
	}

	for _, source := range sources {
		if ctx.Err() != nil {
			return
		}
		if err := s.Refresh(ctx, source); err != nil {
			slog.Warn("インポート元のフェッチに失敗しました",
				slog.String("source_id", source.ID),
				slog.String("feed_url", source.FeedURL),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ErrNoImportAuthor は下書きの著者となる管理者が未設定の場合に返される。
// posts.author_idはNOT NULLのため、著者なしでは下書きを保存できない。
var ErrNoImportAuthor = errors.New("import author is not configured")

// Refresh はインポート元を1件フェッチし、下書き記事をUPSERTする。
// 取得結果に応じて連続エラー数と状態を更新する。
// 著者未設定の場合はフェッチ前にErrNoImportAuthorを返す
// （インポート元の連続エラー数は進めない）。
func (s *Service) Refresh(ctx context.Context, source *model.ImportSource) error {
	if s.authorID == "" {
		return ErrNoImportAuthor
	}

	start := time.Now()

	articles, feedTitle, err := s.fetchArticles(ctx, source.FeedURL)
	if err != nil {
		s.recordFailure(ctx, source, err)
		return err
	}

	imported := 0
	for _, article := range articles {
		ok, err := s.upsertDraft(ctx, source, article)
		if err != nil {
			slog.Warn("インポート記事の保存に失敗しました",
				slog.String("source_id", source.ID),
				slog.String("guid", article.GUID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			imported++
		}
	}

	if feedTitle != "" {
		source.Title = feedTitle
	}
	now := time.Now()
	source.Status = model.ImportStatusActive
	source.ConsecutiveErrors = 0
	source.ErrorMessage = ""
	source.LastFetchedAt = &now
	source.UpdatedAt = now
	if err := s.sourceRepo.UpdateFetchState(ctx, source); err != nil {
		return fmt.Errorf("failed to update import source: %w", err)
	}

	if s.metrics != nil && imported > 0 {
		s.metrics.RecordImportedPosts(imported)
	}
	slog.Info("インポート元のフェッチが完了しました",
		slog.String("source_id", source.ID),
		slog.String("feed_url", source.FeedURL),
		slog.Int("articles_total", len(articles)),
		slog.Int("articles_imported", imported),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// fetchArticles はフィードをフェッチしてパースする。
func (s *Service) fetchArticles(ctx context.Context, feedURL string) ([]model.ImportedArticle, string, error) {
	if err := s.ssrfGuard.ValidateURL(feedURL); err != nil {
		return nil, "", fmt.Errorf("unsafe feed URL: %w", err)
	}

	client := s.ssrfGuard.NewSafeClient(s.fetchTimeout, s.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse feed: %w", err)
	}

	return convertItems(parsed.Items), parsed.Title, nil
}

// upsertDraft は記事をGUIDをキーに下書きとしてUPSERTする。
// 新規作成した場合はtrueを返す。既存記事はタイトルと本文のみ更新する
// （編集者が加えた公開フラグ等の変更は維持する）。
func (s *Service) upsertDraft(ctx context.Context, source *model.ImportSource, article model.ImportedArticle) (bool, error) {
	if article.GUID == "" || article.Title == "" {
		return false, nil
	}

	content := s.sanitizer.SanitizePost(article.Content)
	if strings.TrimSpace(post.ExtractText(content)) == "" {
		return false, nil
	}

	existing, err := s.postRepo.FindByImportGUID(ctx, article.GUID)
	if err != nil {
		return false, fmt.Errorf("failed to find post by GUID: %w", err)
	}

	now := time.Now()
	if existing != nil {
		existing.Title = article.Title
		existing.Content = content
		existing.Excerpt = post.Excerpt(content, post.ExcerptMaxRunes)
		existing.ReadTime = post.ReadTime(content)
		existing.UpdatedAt = now
		if err := s.postRepo.Update(ctx, existing); err != nil {
			return false, fmt.Errorf("failed to update imported post: %w", err)
		}
		return false, nil
	}

	draft := &model.Post{
		ID:         uuid.New().String(),
		Title:      article.Title,
		Slug:       s.uniqueSlug(ctx, article.Title),
		Content:    content,
		Excerpt:    post.Excerpt(content, post.ExcerptMaxRunes),
		AuthorID:   s.authorID,
		CategoryID: source.CategoryID,
		Published:  false,
		ReadTime:   post.ReadTime(content),
		ImportGUID: article.GUID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.postRepo.Create(ctx, draft); err != nil {
		return false, fmt.Errorf("failed to create imported post: %w", err)
	}
	return true, nil
}

// uniqueSlug はタイトルからスラッグを導出する。
// 衝突時はUUID先頭8文字を付けて一意にする。
func (s *Service) uniqueSlug(ctx context.Context, title string) string {
	slug := post.Slugify(title)
	existing, err := s.postRepo.FindBySlug(ctx, slug)
	if err != nil || existing == nil {
		return slug
	}
	return slug + "-" + uuid.NewString()[:8]
}

// recordFailure は連続エラー数を進め、上限を超えたらerror状態にする。
func (s *Service) recordFailure(ctx context.Context, source *model.ImportSource, cause error) {
	source.ConsecutiveErrors++
	source.ErrorMessage = cause.Error()
	source.UpdatedAt = time.Now()
	if source.ConsecutiveErrors >= maxConsecutiveErrors {
		source.Status = model.ImportStatusError
		slog.Warn("連続エラーによりインポート元を停止します",
			slog.String("source_id", source.ID),
			slog.String("feed_url", source.FeedURL),
			slog.Int("consecutive_errors", source.ConsecutiveErrors),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordImportFailure()
	}
	if err := s.sourceRepo.UpdateFetchState(ctx, source); err != nil {
		slog.Error("インポート元状態の更新に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
	}
}

// convertItems はgofeedの記事をImportedArticleに変換する。
func convertItems(items []*gofeed.Item) []model.ImportedArticle {
	articles := make([]model.ImportedArticle, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if len(articles) >= maxArticlesPerFetch {
			break
		}

		article := model.ImportedArticle{
			GUID:    item.GUID,
			Title:   item.Title,
			Link:    item.Link,
			Content: item.Content,
			Summary: item.Description,
		}
		if article.Content == "" {
			article.Content = item.Description
		}
		// GUIDのないフィードはリンクで同一性を取る
		if article.GUID == "" {
			article.GUID = item.Link
		}
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			article.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			article.PublishedAt = &t
		}

		articles = append(articles, article)
	}
	return articles
}
