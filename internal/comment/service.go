// Package comment はコメントとモデレーションのドメインロジックを提供する。
package comment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// Sanitizer はコメント本文のサニタイズインターフェース。
type Sanitizer interface {
	SanitizeComment(rawHTML string) string
}

// ThreadCache はコメントスレッドのキャッシュインターフェース。
// cache.CommentCacheを抽象化してテスタビリティを向上させる。
type ThreadCache interface {
	Get(ctx context.Context, postID string) ([]model.CommentThread, bool, error)
	Set(ctx context.Context, postID string, threads []model.CommentThread) error
	Invalidate(ctx context.Context, postID string) error
}

// Metrics はコメント関連メトリクスの記録インターフェース。
type Metrics interface {
	RecordCommentCreated()
	RecordCommentReported()
}

// Service はコメントに関するビジネスロジックを提供する。
type Service struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	sanitizer   Sanitizer
	cache       ThreadCache // nil可（キャッシュなしで動作）
	metrics     Metrics     // nil可
}

// NewService はServiceを生成する。
func NewService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	sanitizer Sanitizer,
	cache ThreadCache,
	metrics Metrics,
) *Service {
	return &Service{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		sanitizer:   sanitizer,
		cache:       cache,
		metrics:     metrics,
	}
}

// ListByPost は記事のコメントをスレッド構造で返す。
// 存在しない記事・未公開の記事はPOST_NOT_FOUNDになる。
// キャッシュヒット時はスレッド読み込みのDBアクセスを省略する。
// キャッシュ障害はDB読みにフォールバックする。
func (s *Service) ListByPost(ctx context.Context, postID string) ([]model.CommentThread, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil || !post.Published {
		return nil, model.NewPostNotFoundError(postID)
	}

	if s.cache != nil {
		threads, hit, err := s.cache.Get(ctx, postID)
		if err != nil {
			slog.Warn("コメントキャッシュの読み取りに失敗しました",
				slog.String("post_id", postID),
				slog.String("error", err.Error()),
			)
		} else if hit {
			return threads, nil
		}
	}

	threads, err := s.commentRepo.ListThreadsByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, postID, threads); err != nil {
			slog.Warn("コメントキャッシュの保存に失敗しました",
				slog.String("post_id", postID),
				slog.String("error", err.Error()),
			)
		}
	}
	return threads, nil
}

// CreateInput はコメント作成のパラメータ。
type CreateInput struct {
	PostID   string
	ParentID string // トップレベルコメントの場合は空
	Content  string // 未サニタイズ
}

// Create はコメントを作成する。
// ネストは1段まで: 返信への返信は拒否される。
// 親コメントは同じ記事に属していなければならない。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Comment, error) {
	post, err := s.postRepo.FindByID(ctx, input.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil || !post.Published {
		return nil, model.NewPostNotFoundError(input.PostID)
	}

	content := strings.TrimSpace(s.sanitizer.SanitizeComment(input.Content))
	if content == "" {
		return nil, model.NewEmptyContentError()
	}

	if input.ParentID != "" {
		parent, err := s.commentRepo.FindByID(ctx, input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to find parent comment: %w", err)
		}
		if parent == nil {
			return nil, model.NewCommentNotFoundError(input.ParentID)
		}
		if parent.PostID != input.PostID {
			return nil, model.NewParentMismatchError()
		}
		if parent.IsReply() {
			return nil, model.NewCommentDepthError()
		}
	}

	now := time.Now()
	comment := &model.Comment{
		ID:        uuid.New().String(),
		PostID:    input.PostID,
		UserID:    userID,
		ParentID:  input.ParentID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.invalidate(ctx, input.PostID)
	if s.metrics != nil {
		s.metrics.RecordCommentCreated()
	}
	slog.Info("コメントを作成しました",
		slog.String("comment_id", comment.ID),
		slog.String("post_id", comment.PostID),
		slog.Bool("is_reply", comment.IsReply()),
	)
	return comment, nil
}

// Report はコメントを通報済みにする。冪等で、二重通報もエラーにしない。
func (s *Service) Report(ctx context.Context, commentID string) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment == nil {
		return model.NewCommentNotFoundError(commentID)
	}

	if err := s.commentRepo.SetReported(ctx, commentID, true); err != nil {
		return fmt.Errorf("failed to report comment: %w", err)
	}

	s.invalidate(ctx, comment.PostID)
	if s.metrics != nil {
		s.metrics.RecordCommentReported()
	}
	slog.Info("コメントが通報されました", slog.String("comment_id", commentID))
	return nil
}

// ClearReport は通報フラグを解除する（モデレーション: 問題なしと判断）。
func (s *Service) ClearReport(ctx context.Context, commentID string) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment == nil {
		return model.NewCommentNotFoundError(commentID)
	}

	if err := s.commentRepo.SetReported(ctx, commentID, false); err != nil {
		return fmt.Errorf("failed to clear report: %w", err)
	}

	s.invalidate(ctx, comment.PostID)
	return nil
}

// Delete はコメントを削除する（モデレーション）。
// トップレベルコメントの削除は返信もまとめて削除する。
func (s *Service) Delete(ctx context.Context, commentID string) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment == nil {
		return model.NewCommentNotFoundError(commentID)
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.invalidate(ctx, comment.PostID)
	slog.Info("コメントを削除しました", slog.String("comment_id", commentID))
	return nil
}

// ListReported は通報済みコメントの一覧を返す（モデレーションキュー）。
func (s *Service) ListReported(ctx context.Context) ([]model.CommentWithUser, error) {
	comments, err := s.commentRepo.ListReported(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reported comments: %w", err)
	}
	return comments, nil
}

func (s *Service) invalidate(ctx context.Context, postID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, postID); err != nil {
		slog.Warn("コメントキャッシュの無効化に失敗しました",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
	}
}
