package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/blogman/internal/model"
)

// ProfileFinder は管理者判定に必要なプロフィール検索インターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// NewAdminMiddleware は管理者ロールのみを通過させるミドルウェアを返す。
// SessionMiddlewareの後に配置すること。
// 認証済みでも管理者でないユーザーには403 Forbiddenを返す。
func NewAdminMiddleware(profiles ProfileFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			profile, err := profiles.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to find profile for admin check",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if profile == nil || !profile.IsAdmin() {
				slog.Warn("admin route denied",
					slog.String("user_id", userID),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
