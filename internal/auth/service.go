// Package auth はメールアドレス＋パスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// minPasswordLength はパスワードの最低文字数。
const minPasswordLength = 8

// usernamePattern は許可されるユーザー名の形式。
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge time.Duration // セッション有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// RegisterInput は新規登録のパラメータ。
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Register は新規ユーザーを登録し、セッションを発行する。
// メールアドレスとユーザー名は一意でなければならない。
// 登録直後のロールはverified。管理者への昇格は運用側で行う。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.Profile, *model.Session, error) {
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, nil, model.NewInvalidEmailError(input.Email)
	}
	if !usernamePattern.MatchString(input.Username) {
		return nil, nil, model.NewInvalidUsernameError(input.Username)
	}
	if len(input.Password) < minPasswordLength {
		return nil, nil, model.NewWeakPasswordError()
	}

	existing, err := s.profileRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewDuplicateEmailError()
	}

	existing, err = s.profileRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewDuplicateUsernameError(input.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	profile := &model.Profile{
		ID:           uuid.New().String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Role:         model.RoleVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, nil, fmt.Errorf("failed to create profile: %w", err)
	}

	session, err := s.createSession(ctx, profile.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("new user registered",
		slog.String("user_id", profile.ID),
		slog.String("username", profile.Username),
	)
	return profile, session, nil
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
// メールアドレスの存在有無はエラーメッセージから判別できないようにする。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Profile, *model.Session, error) {
	profile, err := s.profileRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		// 存在しないユーザーでも同等の時間を消費させタイミング攻撃を緩和する
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$000000000000000000000uGyUvPMW3Tr1W3Tr1W3Tr1W3Tr1W3Tr2"),
			[]byte(password),
		)
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, profile.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in", slog.String("user_id", profile.ID))
	return profile, session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return model.NewUnauthorizedError()
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentProfile はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentProfile(ctx context.Context, sessionID string) (*model.Profile, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	profile, err := s.profileRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewUnauthorizedError()
	}

	return profile, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.config.SessionMaxAge),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
