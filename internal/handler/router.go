package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/shoplist/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPRecorder      middleware.HTTPRecorder // nilの場合は計測しない

	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない

	// 認証・ユーザー
	AuthService AuthServiceInterface
	UserService UserServiceInterface

	// 買い物リスト・アイテム
	ListService ListServiceInterface
	ItemService ItemServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → Metrics → SecurityHeaders → CORS → StripSlashes
//	  → (認証が必要なルート) TokenAuth → RateLimit
//
// トークン発行、ヘルスチェック、メトリクスは認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(chimiddleware.StripSlashes)

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	listHandler := NewListHandler(deps.ListService)
	itemHandler := NewItemHandler(deps.ItemService)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Post("/api/auth/token", authHandler.IssueToken)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: TokenAuth → RateLimit(分・日)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenAuthMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.Middleware())

		r.Get("/api/users/me", userHandler.Me)

		// 買い物リスト
		r.Route("/api/shopping-lists", func(r chi.Router) {
			r.Get("/", listHandler.ListLists)
			r.Post("/", listHandler.CreateList)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", listHandler.GetList)
				r.Put("/", listHandler.ReplaceList)
				r.Patch("/", listHandler.PatchList)
				r.Delete("/", listHandler.DeleteList)

				r.Put("/add-members", listHandler.AddMembers)
				r.Put("/remove-members", listHandler.RemoveMembers)

				// リスト内のアイテム
				r.Route("/shopping-items", func(r chi.Router) {
					r.Get("/", itemHandler.ListItems)
					r.Post("/", itemHandler.CreateItem)

					r.Route("/{itemID}", func(r chi.Router) {
						r.Get("/", itemHandler.GetItem)
						r.Put("/", itemHandler.ReplaceItem)
						r.Patch("/", itemHandler.PatchItem)
						r.Delete("/", itemHandler.DeleteItem)
					})
				})
			})
		})

		// リストをまたぐ一括操作
		r.Route("/api/shopping-items", func(r chi.Router) {
			r.Delete("/delete-all-purchased", itemHandler.DeleteAllPurchased)
			r.Patch("/mark-bulk-purchased", itemHandler.MarkBulkPurchased)
		})
	})

	return r
}
