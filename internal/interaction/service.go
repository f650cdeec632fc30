// Package interaction は記事ごとのユーザーインタラクション状態（投票・付箋）の
// ドメインロジックを提供する。状態の中身はJSONのままで、サーバーは解釈しない。
package interaction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// maxValueBytes は状態値の上限サイズ。肥大化したペイロードを弾く。
const maxValueBytes = 16 * 1024

// Service はインタラクション状態のビジネスロジックを提供する。
type Service struct {
	stateRepo repository.InteractionStateRepository
	postRepo  repository.PostRepository
}

// NewService はServiceを生成する。
func NewService(stateRepo repository.InteractionStateRepository, postRepo repository.PostRepository) *Service {
	return &Service{stateRepo: stateRepo, postRepo: postRepo}
}

// Get は指定(user, post, kind)の状態を取得する。未保存の場合はnilを返す。
func (s *Service) Get(ctx context.Context, userID, postID string, kind model.InteractionStateKind) (*model.InteractionState, error) {
	if !kind.IsValid() {
		return nil, model.NewInvalidStateKindError(string(kind))
	}
	state, err := s.stateRepo.Find(ctx, userID, postID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to find interaction state: %w", err)
	}
	return state, nil
}

// Put は状態を冪等に保存する。同じ(user, post, kind)への再保存は上書きになる。
// 値は妥当なJSONでなければならない。
func (s *Service) Put(ctx context.Context, userID, postID string, kind model.InteractionStateKind, value []byte) (*model.InteractionState, error) {
	if !kind.IsValid() {
		return nil, model.NewInvalidStateKindError(string(kind))
	}
	if len(value) == 0 || len(value) > maxValueBytes || !json.Valid(value) {
		return nil, model.NewEmptyContentError()
	}

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil || !post.Published {
		return nil, model.NewPostNotFoundError(postID)
	}

	state, err := s.stateRepo.Upsert(ctx, userID, postID, kind, value)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert interaction state: %w", err)
	}
	return state, nil
}
