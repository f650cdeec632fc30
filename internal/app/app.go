// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/blogman/internal/ai"
	"github.com/hitoshi/blogman/internal/auth"
	"github.com/hitoshi/blogman/internal/cache"
	"github.com/hitoshi/blogman/internal/category"
	"github.com/hitoshi/blogman/internal/comment"
	"github.com/hitoshi/blogman/internal/config"
	"github.com/hitoshi/blogman/internal/database"
	"github.com/hitoshi/blogman/internal/handler"
	"github.com/hitoshi/blogman/internal/importer"
	"github.com/hitoshi/blogman/internal/interaction"
	"github.com/hitoshi/blogman/internal/logger"
	"github.com/hitoshi/blogman/internal/metrics"
	"github.com/hitoshi/blogman/internal/middleware"
	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/post"
	"github.com/hitoshi/blogman/internal/profile"
	"github.com/hitoshi/blogman/internal/reaction"
	"github.com/hitoshi/blogman/internal/repository"
	"github.com/hitoshi/blogman/internal/search"
	"github.com/hitoshi/blogman/internal/security"
	"github.com/hitoshi/blogman/internal/storage"
	"github.com/hitoshi/blogman/internal/subscription"
	"github.com/hitoshi/blogman/internal/worker/cleanup"
	"github.com/hitoshi/blogman/internal/worker/importrun"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	reactionRepo := repository.NewPostgresReactionRepo(db)
	bookmarkRepo := repository.NewPostgresBookmarkRepo(db)
	subscriptionRepo := repository.NewPostgresSubscriptionRepo(db)
	interactionRepo := repository.NewPostgresInteractionStateRepo(db)
	importSourceRepo := repository.NewPostgresImportSourceRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. オプショナルな外部サービスの初期化
	// Redisコメントキャッシュ。未設定または接続失敗時はキャッシュなしで継続する。
	var threadCache comment.ThreadCache
	if cfg.RedisURL != "" {
		commentCache, err := cache.NewCommentCache(cfg.RedisURL)
		if err != nil {
			slog.Warn("Redis接続に失敗したためコメントキャッシュを無効化します",
				slog.String("error", err.Error()),
			)
		} else {
			defer commentCache.Close()
			threadCache = commentCache
			slog.Info("comment cache enabled")
		}
	}

	// Meilisearch。未設定時はPostgres全文検索にフォールバックする。
	var meili *search.Meili
	if cfg.MeiliURL != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey)
		slog.Info("meilisearch enabled", slog.String("url", cfg.MeiliURL))
	}
	searchService := search.NewService(meili, search.NewPgFallback(db))

	// オブジェクトストレージ。未設定時は画像アップロードが無効になる。
	var objectStore storage.ObjectStoreService
	var postImageUploader handler.PostImageUploader
	if cfg.StorageEndpoint != "" {
		store, err := storage.NewObjectStore(storage.Config{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			UseSSL:    cfg.StorageUseSSL,
			PublicURL: cfg.StoragePublicURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize object storage: %w", err)
		}
		if err := store.EnsureBuckets(context.Background()); err != nil {
			return fmt.Errorf("failed to ensure storage buckets: %w", err)
		}
		objectStore = store
		postImageUploader = store
		slog.Info("object storage enabled", slog.String("endpoint", cfg.StorageEndpoint))
	}

	// 6. ドメインサービスの初期化
	authService := auth.NewService(profileRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge: time.Duration(cfg.SessionMaxAge) * time.Second,
	})
	profileService := profile.NewService(profileRepo, sessionRepo, objectStore)
	categoryService := category.NewService(categoryRepo)
	postService := post.NewService(postRepo, categoryRepo, sanitizer, searchService)
	commentService := comment.NewService(commentRepo, postRepo, sanitizer, threadCache, collector)
	reactionService := reaction.NewService(reactionRepo, bookmarkRepo, postRepo, collector)
	subscriptionService := subscription.NewService(subscriptionRepo, categoryRepo)
	interactionService := interaction.NewService(interactionRepo, postRepo)

	importAuthorID, err := resolveImportAuthorID(context.Background(), profileRepo)
	if err != nil {
		return err
	}
	importService := importer.NewService(
		importSourceRepo, postRepo, categoryRepo, ssrfGuard, sanitizer, collector,
		importAuthorID, cfg.ImportTimeout, cfg.ImportMaxBodySize,
	)

	// 生成AIヘルパー。APIキー未設定時はルートごと無効になる。
	var aiHandler *handler.AIHandler
	if cfg.GeminiAPIKey != "" {
		aiClient := ai.NewClient(
			&http.Client{Timeout: cfg.AITimeout},
			slog.Default(), cfg.GeminiAPIKey, cfg.GeminiEndpoint,
		)
		aiHandler = handler.NewAIHandler(aiClient, postRepo, collector)
		slog.Info("AI helper enabled")
	}

	// 7. レートリミッターの構築（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.WriteRate = rate.Limit(float64(cfg.RateLimitWrite) / 60.0)
	rateLimiterCfg.WriteBurst = cfg.RateLimitWrite
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		ProfileFinder:     profileRepo,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:         slog.Default(),
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),

		DB: db,

		AuthService: authService,
		AuthCookie: handler.AuthCookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
			MaxAge: cfg.SessionMaxAge,
		},
		ProfileService:      profileService,
		CategoryService:     categoryService,
		PostService:         postService,
		CommentService:      commentService,
		CommentCounter:      commentRepo,
		ReactionService:     reactionService,
		SubscriptionService: subscriptionService,
		InteractionService:  interactionService,
		ImportService:       importService,
		AIHandler:           aiHandler,
		PostImageUploader:   postImageUploader,
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// フィード取り込みスケジューラとセッションクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	categoryRepo := repository.NewPostgresCategoryRepo(db)
	postRepo := repository.NewPostgresPostRepo(db)
	importSourceRepo := repository.NewPostgresImportSourceRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. インポートサービスの初期化
	// 下書きの著者となる管理者がいない限りワーカーは起動しない。
	// 起動させても全記事の保存がNOT NULL違反で失敗するだけになる。
	importAuthorID, err := resolveImportAuthorID(context.Background(), profileRepo)
	if err != nil {
		return err
	}
	if importAuthorID == "" {
		return errors.New("no admin profile registered: create an admin account before starting the worker")
	}
	importService := importer.NewService(
		importSourceRepo, postRepo, categoryRepo, ssrfGuard, sanitizer, nil,
		importAuthorID, cfg.ImportTimeout, cfg.ImportMaxBodySize,
	)

	// 5. スケジューラとクリーンアップジョブの初期化
	scheduler := importrun.NewScheduler(importService, slog.Default(), cfg.ImportInterval)
	cleanupJob := cleanup.NewSessionCleanupJob(sessionRepo, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("import_interval", cfg.ImportInterval),
	)

	// セッションクリーンアップを日次でバックグラウンド実行
	go cleanupJob.Start(ctx, 24*time.Hour)

	// 取り込みスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// adminFinder は管理者プロフィールの検索インターフェース。
type adminFinder interface {
	FindFirstAdmin(ctx context.Context) (*model.Profile, error)
}

// resolveImportAuthorID はインポート下書きの著者として使う管理者IDを決定する。
// 最も古い管理者プロフィールを採用する。管理者が未登録の場合は空文字を返す。
// posts.author_idはNOT NULLのため、空文字のままフェッチは実行できない
// （serveモードはインポート元の管理のみを行うため空文字でも起動する）。
func resolveImportAuthorID(ctx context.Context, profiles adminFinder) (string, error) {
	admin, err := profiles.FindFirstAdmin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve import author: %w", err)
	}
	if admin == nil {
		slog.Warn("管理者が未登録のためインポート下書きの著者を解決できません")
		return "", nil
	}
	return admin.ID, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
