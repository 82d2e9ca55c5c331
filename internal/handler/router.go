package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ichiba/internal/metrics"
	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 運用エンドポイント（nil可）
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// メトリクス（nil可）
	Collector metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメインサービス
	StoreService   StoreServiceInterface
	ProductService ProductServiceInterface
	ReviewService  ReviewServiceInterface
	OrderService   OrderServiceInterface
	ReportService  ReportServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ルートグループ:
//
//	公開       — ストアフロント閲覧・店舗有効化（認証なし）
//	認証       — 会員登録・ログイン（IP単位レート制限）、ログアウト、自分情報
//	会員       — 注文・レビュー投稿・出店申請（RequireAuth + 一般レート制限 + CSRF）
//	出店者     — 店舗・商品・レポート管理（sellerロール必須）
//	管理者     — 出店審査・プラットフォームレポート（adminロール必須）
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	catalogHandler := NewCatalogHandler(deps.ProductService, deps.ReviewService, deps.StoreService, deps.Collector)
	storeHandler := NewStoreHandler(deps.StoreService)
	productHandler := NewProductHandler(deps.ProductService)
	reviewHandler := NewReviewHandler(deps.ReviewService, deps.Collector)
	orderHandler := NewOrderHandler(deps.OrderService, deps.Collector)
	reportHandler := NewReportHandler(deps.ReportService)
	adminHandler := NewAdminHandler(deps.StoreService, deps.ReportService)

	requireAny := middleware.RequireAuth(deps.TokenVerifier)
	requireSeller := middleware.RequireAuth(deps.TokenVerifier, model.RoleSeller)
	requireAdmin := middleware.RequireAuth(deps.TokenVerifier, model.RoleAdmin)
	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 運用ルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker).Check)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証ルート ---
	r.Route("/auth", func(r chi.Router) {
		// 未認証エンドポイントはIP単位のレート制限を適用
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/register", authHandler.Register)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(requireAny).Get("/me", authHandler.Me)
	})

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 公開ストアフロント ---
	r.Group(func(r chi.Router) {
		r.Get("/api/products", catalogHandler.SearchProducts)
		r.Get("/api/products/{id}", catalogHandler.GetProduct)
		r.Get("/api/products/{id}/reviews", catalogHandler.ListProductReviews)

		// 有効化エンドポイントは認証不要（トークン自体が所有の証明）
		r.Get("/api/stores/activate", catalogHandler.ActivateStore)

		r.Get("/api/stores/{id}", catalogHandler.GetStorePage)
		r.Get("/api/stores/{id}/products", catalogHandler.ListStoreProducts)
		r.Get("/api/stores/{id}/logo", catalogHandler.GetStoreLogo)
	})

	// --- 会員ルート（全ロール） ---
	r.Group(func(r chi.Router) {
		r.Use(requireAny)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(csrf)

		r.Post("/api/orders", orderHandler.Checkout)
		r.With(deps.RateLimiter.ReviewMiddleware()).Post("/api/products/{id}/reviews", reviewHandler.Post)

		// 出店申請（受理後、次回ログインからsellerロール）
		r.Post("/api/stores", storeHandler.Register)
	})

	// --- 出店者ルート ---
	r.Group(func(r chi.Router) {
		r.Use(requireSeller)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(csrf)

		r.Route("/api/seller", func(r chi.Router) {
			r.Get("/store", storeHandler.GetOwnStore)
			r.Put("/store", storeHandler.UpdateProfile)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.List)
				r.Post("/", productHandler.Create)
				r.Put("/{id}", productHandler.Update)
				r.Delete("/{id}", productHandler.Delete)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/sales", reportHandler.Sales)
				r.Get("/sales.csv", reportHandler.SalesCSV)
				r.Get("/stock", reportHandler.Stock)
				r.Get("/ratings", reportHandler.Ratings)
			})
		})
	})

	// --- 管理者ルート ---
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(csrf)

		r.Route("/api/admin", func(r chi.Router) {
			r.Get("/stores", adminHandler.ListStores)
			r.Patch("/stores/{id}/status", adminHandler.UpdateStoreStatus)
			r.Post("/stores/{id}/resend-activation", adminHandler.ResendActivation)
			r.Get("/reports/summary", adminHandler.PlatformSummary)
		})
	})

	return r
}
