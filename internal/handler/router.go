package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/guildgate/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール更新
	ProfileService ProfileServiceInterface
	AvatarMaxSize  int64

	// 監査ログ参照
	AuditReader AuditReader

	// メトリクス（いずれもnil可）
	HTTPMetrics    middleware.HTTPMetricsRecorder
	LoginMetrics   LoginMetrics
	ProfileMetrics ProfileMetrics
	MetricsHandler http.Handler

	// 静的ファイル配信ディレクトリ（空なら配信しない）
	StaticDir string
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → [RateLimit（/api配下）] → [Session（更新操作のみ）]
//
// レート制限は/api配下の全ルートに適用する。認証前のルート（login/callback）も対象。
// セッション必須なのはPOST /api/update-profileだけで、GET /api/userは
// 未認証を正常系として扱うためセッションミドルウェアの外に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.HTTPMetrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.LoginMetrics)
	userHandler := NewUserHandler(deps.AuthService, deps.AuditReader)
	profileHandler := NewProfileHandler(deps.ProfileService, deps.AvatarMaxSize, deps.ProfileMetrics)

	// 死活監視
	r.Get("/health", Healthcheck)

	// Prometheusスクレイプ
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware())

		// OAuthフローとセッション管理
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)

		// 未認証でも200を返すためセッションミドルウェアの外
		r.Get("/user", userHandler.Me)

		// 更新操作だけが認証必須
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Post("/update-profile", profileHandler.UpdateProfile)
		})
	})

	// フロントエンドの静的ファイル配信
	if deps.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(deps.StaticDir)))
	}

	return r
}

// Healthcheck は死活監視用のエンドポイント。
// GET /health
func Healthcheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
