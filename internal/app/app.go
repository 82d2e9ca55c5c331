package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/ichiba/internal/auth"
	"github.com/hitoshi/ichiba/internal/config"
	"github.com/hitoshi/ichiba/internal/database"
	"github.com/hitoshi/ichiba/internal/handler"
	"github.com/hitoshi/ichiba/internal/logger"
	"github.com/hitoshi/ichiba/internal/logo"
	"github.com/hitoshi/ichiba/internal/mail"
	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/order"
	"github.com/hitoshi/ichiba/internal/product"
	"github.com/hitoshi/ichiba/internal/report"
	"github.com/hitoshi/ichiba/internal/repository"
	"github.com/hitoshi/ichiba/internal/review"
	"github.com/hitoshi/ichiba/internal/security"
	"github.com/hitoshi/ichiba/internal/store"
	"github.com/hitoshi/ichiba/internal/worker/aggregate"
	"github.com/hitoshi/ichiba/internal/worker/cleanup"
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

// newMailNotifier は設定に応じたメール通知サービスを構築する。
// SMTP_HOSTが未設定の場合はログ出力のみのメーラーにフォールバックする。
func newMailNotifier(cfg *config.Config) *mail.Notifier {
	if cfg.SMTPHost == "" {
		slog.Info("SMTP_HOST is not set, falling back to log mailer")
		return mail.NewNotifier(mail.NewLogMailer(), cfg.BaseURL, cfg.ActivationTokenTTL)
	}

	port, err := strconv.Atoi(cfg.SMTPPort)
	if err != nil {
		slog.Warn("invalid SMTP_PORT, using 587", slog.String("smtp_port", cfg.SMTPPort))
		port = 587
	}

	mailer := mail.NewSMTPMailer(cfg.SMTPHost, port, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
	return mail.NewNotifier(mailer, cfg.BaseURL, cfg.ActivationTokenTTL)
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
	userRepo := repository.NewPostgresUserRepo(db)
	storeRepo := repository.NewPostgresStoreRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	orderRepo := repository.NewPostgresOrderRepo(db)

	// 3. セキュリティサービスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 4. ドメインサービスの初期化
	tokens := auth.NewTokenService(cfg.SessionSecret, time.Duration(cfg.SessionMaxAge)*time.Second)
	authService := auth.NewService(userRepo, tokens)

	notifier := newMailNotifier(cfg)
	logoFetcher := logo.NewFetcher(ssrfGuard, cfg.LogoFetchTimeout, cfg.LogoMaxSize)
	storeService := store.NewService(
		storeRepo, userRepo, notifier, logoFetcher, ssrfGuard, cfg.ActivationTokenTTL,
	)

	productService := product.NewService(productRepo, storeRepo, sanitizer)
	reviewService := review.NewService(reviewRepo, productRepo, sanitizer)
	orderService := order.NewService(orderRepo, productRepo)
	reportService := report.NewService(orderRepo, productRepo, storeRepo, reviewRepo)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. ルーターの構築
	// configのレート制限値はreq/min単位なのでreq/secに変換する
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteRateLimiterConfig(
		cfg.RateLimitGeneral, cfg.RateLimitLogin, cfg.RateLimitReview,
	))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger: slog.Default(),

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),
		Collector:      collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		StoreService:   storeService,
		ProductService: productService,
		ReviewService:  reviewService,
		OrderService:   orderService,
		ReportService:  reportService,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
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
// DB接続を開き、評価集計ジョブと論理削除パージジョブを起動する。
// メトリクススクレイプ用に/metricsのみの軽量HTTPサーバーも立てる。
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
	storeRepo := repository.NewPostgresStoreRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ジョブの初期化
	aggregateJob := aggregate.NewAggregateJob(
		reviewRepo, productRepo, storeRepo, collector, slog.Default(),
	)

	cleanupJob := cleanup.NewCleanupJob(productRepo, collector, slog.Default())
	cleanupJob.RetentionDays = cfg.PurgeRetentionDays

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

	// メトリクススクレイプ用の軽量HTTPサーバー
	metricsServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: metrics.SetupMetricsRoute(registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	slog.Info("worker starting",
		slog.Duration("aggregate_interval", cfg.AggregateInterval),
		slog.Int("purge_retention_days", cfg.PurgeRetentionDays),
	)

	// パージジョブを日次でバックグラウンド実行
	go cleanupJob.Start(ctx, 24*time.Hour)

	// 評価集計ジョブをメインgoroutineで実行（ブロッキング）
	aggregateJob.Start(ctx, cfg.AggregateInterval)

	slog.Info("worker stopped gracefully")
	return nil
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
