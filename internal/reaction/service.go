// Package reaction はリアクション（いいね）とブックマークのドメインロジックを提供する。
package reaction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// Metrics はリアクション関連メトリクスの記録インターフェース。
type Metrics interface {
	RecordReactionToggle(reactionType string)
}

// Service はリアクションとブックマークのビジネスロジックを提供する。
type Service struct {
	reactionRepo repository.ReactionRepository
	bookmarkRepo repository.BookmarkRepository
	postRepo     repository.PostRepository
	metrics      Metrics // nil可
}

// NewService はServiceを生成する。
func NewService(
	reactionRepo repository.ReactionRepository,
	bookmarkRepo repository.BookmarkRepository,
	postRepo repository.PostRepository,
	metrics Metrics,
) *Service {
	return &Service{
		reactionRepo: reactionRepo,
		bookmarkRepo: bookmarkRepo,
		postRepo:     postRepo,
		metrics:      metrics,
	}
}

// ToggleReaction はリアクションをトグルし、トグル後の状態と件数を返す。
// 同一ユーザーの同時リクエストはDB側のUNIQUE制約で直列化され、
// 二重カウントは発生しない。
func (s *Service) ToggleReaction(ctx context.Context, userID, postID string, reactionType model.ReactionType) (*model.ToggleResult, error) {
	if !reactionType.IsValid() {
		return nil, model.NewInvalidReactionError(string(reactionType))
	}
	if err := s.requirePublishedPost(ctx, postID); err != nil {
		return nil, err
	}

	result, err := s.reactionRepo.Toggle(ctx, postID, userID, reactionType)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordReactionToggle(string(reactionType))
	}
	slog.Info("リアクションをトグルしました",
		slog.String("post_id", postID),
		slog.String("reaction_type", string(reactionType)),
		slog.Bool("active", result.Active),
	)
	return result, nil
}

// ToggleBookmark はブックマークをトグルし、トグル後の状態を返す。
func (s *Service) ToggleBookmark(ctx context.Context, userID, postID string) (*model.ToggleResult, error) {
	if err := s.requirePublishedPost(ctx, postID); err != nil {
		return nil, err
	}

	result, err := s.bookmarkRepo.Toggle(ctx, postID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle bookmark: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordReactionToggle("bookmark")
	}
	return result, nil
}

// HasReaction は指定ユーザーが記事にリアクション済みかを返す。
func (s *Service) HasReaction(ctx context.Context, userID, postID string, reactionType model.ReactionType) (bool, error) {
	if !reactionType.IsValid() {
		return false, model.NewInvalidReactionError(string(reactionType))
	}
	exists, err := s.reactionRepo.Exists(ctx, postID, userID, reactionType)
	if err != nil {
		return false, fmt.Errorf("failed to check reaction: %w", err)
	}
	return exists, nil
}

// HasBookmark は指定ユーザーが記事をブックマーク済みかを返す。
func (s *Service) HasBookmark(ctx context.Context, userID, postID string) (bool, error) {
	exists, err := s.bookmarkRepo.Exists(ctx, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check bookmark: %w", err)
	}
	return exists, nil
}

// ListBookmarks はユーザーのブックマーク済み記事をブックマーク日時降順に返す。
func (s *Service) ListBookmarks(ctx context.Context, userID string) ([]model.PostWithMeta, error) {
	posts, err := s.bookmarkRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return posts, nil
}

func (s *Service) requirePublishedPost(ctx context.Context, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil || !post.Published {
		return model.NewPostNotFoundError(postID)
	}
	return nil
}
