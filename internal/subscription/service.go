// Package subscription はメール購読のドメインロジックを提供する。
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// Service はメール購読のビジネスロジックを提供する。
type Service struct {
	subscriptionRepo repository.SubscriptionRepository
	categoryRepo     repository.CategoryRepository
}

// NewService はServiceを生成する。
func NewService(
	subscriptionRepo repository.SubscriptionRepository,
	categoryRepo repository.CategoryRepository,
) *Service {
	return &Service{
		subscriptionRepo: subscriptionRepo,
		categoryRepo:     categoryRepo,
	}
}

// Subscribe はメール購読を登録または更新する。
// メールアドレスが重複排除キーとなり、再購読はカテゴリ選択を全置換する。
// userIDは未ログイン購読の場合は空。
func (s *Service) Subscribe(ctx context.Context, email, userID string, categoryIDs []string) (*model.SubscriptionResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, model.NewInvalidEmailError(email)
	}

	for _, id := range categoryIDs {
		category, err := s.categoryRepo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to find category: %w", err)
		}
		if category == nil {
			return nil, model.NewCategoryNotFoundError(id)
		}
	}

	result, err := s.subscriptionRepo.UpsertByEmail(ctx, email, userID, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	slog.Info("メール購読を登録しました",
		slog.String("subscription_id", result.SubscriptionID),
		slog.Bool("updated", result.Updated),
		slog.Int("category_count", len(categoryIDs)),
	)
	return result, nil
}

// Get はメールアドレスで購読をカテゴリ選択付きで取得する。
// 見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, email string) (*model.Subscription, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	subscription, err := s.subscriptionRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return subscription, nil
}
