package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blogman/internal/middleware"
	"github.com/hitoshi/blogman/internal/post"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	ProfileFinder     middleware.ProfileFinder
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	Metrics           middleware.StatusRecorder // nil可
	MetricsHandler    http.Handler              // nil可（/metrics無効）

	// ヘルスチェック
	DB Pinger

	// ドメインサービス
	AuthService         AuthServiceInterface
	AuthCookie          AuthCookieConfig
	ProfileService      ProfileServiceInterface
	CategoryService     CategoryServiceInterface
	PostService         PostServiceInterface
	CommentService      CommentServiceInterface
	CommentCounter      post.CommentCounter
	ReactionService     ReactionServiceInterface
	SubscriptionService SubscriptionServiceInterface
	InteractionService  InteractionServiceInterface
	ImportService       ImportServiceInterface
	AIHandler           *AIHandler // nil可（AI無効時はルート未登録）
	PostImageUploader   PostImageUploader
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成した
// chi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → CSRF
//
// その内側で、公開ルート / 認証ルート（Session → RateLimit） /
// 管理ルート（Session → RateLimit → Admin）の3グループに分かれる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthCookie)
	profileHandler := NewProfileHandler(deps.ProfileService)
	categoryHandler := NewCategoryHandler(deps.CategoryService)
	postHandler := NewPostHandler(deps.PostService, deps.CommentCounter, deps.PostImageUploader)
	commentHandler := NewCommentHandler(deps.CommentService)
	reactionHandler := NewReactionHandler(deps.ReactionService)
	subscriptionHandler := NewSubscriptionHandler(deps.SubscriptionService)
	interactionHandler := NewInteractionHandler(deps.InteractionService)
	importHandler := NewImportHandler(deps.ImportService)

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証不要の公開ルート ---
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	r.Get("/api/categories", categoryHandler.List)
	r.Get("/api/posts", postHandler.List)
	r.Get("/api/posts/{slug}", postHandler.GetBySlug)
	r.Get("/api/search", postHandler.Search)
	r.Get("/api/posts/{id}/comments", commentHandler.ListByPost)

	// メール購読は未ログインでも可能。ログイン済みならユーザーに紐付ける。
	r.With(middleware.NewOptionalSessionMiddleware(deps.SessionFinder)).
		Post("/api/subscriptions", subscriptionHandler.Subscribe)

	// 生成AIヘルパー
	if deps.AIHandler != nil {
		r.Post("/api/ai/summarize", deps.AIHandler.Summarize)
		r.Post("/api/ai/related", deps.AIHandler.Related)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Put("/", profileHandler.Update)
			r.Post("/avatar", profileHandler.UploadAvatar)
		})
		r.Delete("/api/users/me", profileHandler.DeleteAccount)

		// コメント投稿は書き込み専用レート制限を追加
		r.With(deps.RateLimiter.WriteLimitMiddleware()).
			Post("/api/posts/{id}/comments", commentHandler.Create)
		r.Post("/api/comments/{id}/report", commentHandler.Report)

		// リアクション・ブックマーク
		r.Post("/api/posts/{id}/like", reactionHandler.ToggleLike)
		r.Post("/api/posts/{id}/bookmark", reactionHandler.ToggleBookmark)
		r.Get("/api/bookmarks", reactionHandler.ListBookmarks)

		// インタラクション状態
		r.Route("/api/posts/{id}/state/{kind}", func(r chi.Router) {
			r.Get("/", interactionHandler.Get)
			r.Put("/", interactionHandler.Put)
		})
	})

	// --- 管理ルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → Admin
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewAdminMiddleware(deps.ProfileFinder))

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", categoryHandler.Create)
			r.Put("/{id}", categoryHandler.Update)
			r.Delete("/{id}", categoryHandler.Delete)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.AdminList)
			r.Post("/", postHandler.Create)
			r.Post("/images", postHandler.UploadImage)
			r.Put("/{id}", postHandler.Update)
			r.Delete("/{id}", postHandler.Delete)
		})

		r.Get("/stats", postHandler.Stats)

		r.Route("/comments", func(r chi.Router) {
			r.Get("/", commentHandler.ListReported)
			r.Delete("/{id}/report", commentHandler.ClearReport)
			r.Delete("/{id}", commentHandler.Delete)
		})

		r.Route("/import-sources", func(r chi.Router) {
			r.Get("/", importHandler.List)
			r.Post("/", importHandler.Register)
			r.Delete("/{id}", importHandler.Delete)
		})
	})

	return r
}
