// Package profile はプロフィールの参照・更新・退会のドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
	"github.com/hitoshi/blogman/internal/storage"
)

const (
	maxFullNameLength = 100
	maxBioLength      = 500
	// maxAvatarBytes はアバター画像の上限サイズ（2MiB）。
	maxAvatarBytes = 2 << 20
)

// Service はプロフィールのビジネスロジックを提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	objectStore storage.ObjectStoreService // nil可（アバターアップロード無効）
}

// NewService はServiceを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	objectStore storage.ObjectStoreService,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		objectStore: objectStore,
	}
}

// Get はプロフィールを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return profile, nil
}

// GetByUsername はユーザー名でプロフィールを取得する（公開プロフィールページ用）。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return profile, nil
}

// UpdateInput はプロフィール更新のパラメータ。
// ユーザー名とメールアドレスはここでは変更できない。
type UpdateInput struct {
	FullName string
	Bio      string
	Website  string
}

// Update はプロフィールの表示情報を更新する。
func (s *Service) Update(ctx context.Context, userID string, input UpdateInput) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	fullName := strings.TrimSpace(input.FullName)
	bio := strings.TrimSpace(input.Bio)
	website := strings.TrimSpace(input.Website)
	if len([]rune(fullName)) > maxFullNameLength || len([]rune(bio)) > maxBioLength {
		return nil, model.NewEmptyContentError()
	}
	if website != "" {
		u, err := url.Parse(website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, model.NewInvalidURLError("website")
		}
	}

	profile.FullName = fullName
	profile.Bio = bio
	profile.Website = website
	profile.UpdatedAt = time.Now()
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// UploadAvatar はアバター画像を保存してプロフィールに反映する。
// 同一ユーザーの再アップロードは旧画像を上書きする。
func (s *Service) UploadAvatar(ctx context.Context, userID string, body io.Reader, size int64, contentType string) (*model.Profile, error) {
	if s.objectStore == nil {
		return nil, model.NewUploadFailedError("オブジェクトストレージが設定されていません")
	}
	if size <= 0 || size > maxAvatarBytes {
		return nil, model.NewUploadFailedError("画像サイズが上限を超えています")
	}

	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	avatarURL, err := s.objectStore.UploadAvatar(ctx, userID, body, size, contentType)
	if err != nil {
		return nil, model.NewUploadFailedError(err.Error())
	}

	profile.AvatarURL = avatarURL
	profile.UpdatedAt = time.Now()
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("アバターを更新しました", slog.String("user_id", userID))
	return profile, nil
}

// DeleteAccount は退会処理を行う。
// プロフィール削除によりコメント・リアクション・ブックマークはCASCADE削除され、
// 全セッションも無効化される。
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return model.NewProfileNotFoundError()
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	if err := s.profileRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	slog.Info("アカウントを削除しました", slog.String("user_id", userID))
	return nil
}
