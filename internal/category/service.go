// Package category はカテゴリ管理のドメインロジックを提供する。
package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/post"
	"github.com/hitoshi/blogman/internal/repository"
)

// Service はカテゴリに関するビジネスロジックを提供する。
type Service struct {
	categoryRepo repository.CategoryRepository
}

// NewService はServiceを生成する。
func NewService(categoryRepo repository.CategoryRepository) *Service {
	return &Service{categoryRepo: categoryRepo}
}

// List は全カテゴリを公開記事数付きで返す。
func (s *Service) List(ctx context.Context) ([]model.CategoryWithCount, error) {
	categories, err := s.categoryRepo.ListWithPostCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Create はカテゴリを作成する。スラッグは名前から導出する。
func (s *Service) Create(ctx context.Context, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewEmptyContentError()
	}

	slug := post.Slugify(name)
	existing, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateSlugError(slug)
	}

	category := &model.Category{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(description),
		CreatedAt:   time.Now(),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("カテゴリを作成しました",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)
	return category, nil
}

// Update はカテゴリの名前と説明を更新する。スラッグも名前に追随する。
func (s *Service) Update(ctx context.Context, id, name, description string) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(id)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewEmptyContentError()
	}

	slug := post.Slugify(name)
	if slug != category.Slug {
		existing, err := s.categoryRepo.FindBySlug(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		if existing != nil && existing.ID != id {
			return nil, model.NewDuplicateSlugError(slug)
		}
	}

	category.Name = name
	category.Slug = slug
	category.Description = strings.TrimSpace(description)
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

// Delete はカテゴリを削除する。
// 属していた記事は削除されず未分類になる（DB側のON DELETE SET NULL）。
func (s *Service) Delete(ctx context.Context, id string) error {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find category: %w", err)
	}
	if category == nil {
		return model.NewCategoryNotFoundError(id)
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	slog.Info("カテゴリを削除しました", slog.String("category_id", id))
	return nil
}
