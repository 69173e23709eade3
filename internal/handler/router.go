package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/artspace/internal/middleware"
	"github.com/hitoshi/artspace/internal/realtime"
)

// HealthChecker はヘルスチェックエンドポイントが依存するDB疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	StatusRecorder    middleware.StatusRecorder
	Logger            *slog.Logger

	// ヘルスチェック
	HealthChecker HealthChecker

	// 認証
	AuthService  AuthServiceInterface
	AuthConfig   AuthHandlerConfig
	Resolver     RoleResolverInterface
	SessionCache SessionCacheCleaner
	AuthMetrics  AuthMetricsRecorder

	// プロフィール
	ProfileService ProfileServiceInterface

	// ディレクトリ
	DirectoryService DirectoryServiceInterface

	// 予約
	BookingService BookingServiceInterface

	// リアルタイム配信
	Hub *realtime.Hub
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging →
//	  (保護ルートのみ) Session → RateLimit(General) → CSRF
//
// 認証ルート（/auth/*）とディレクトリ閲覧（/api/artists等）は
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusRecorder))

	authHandler := NewAuthHandler(deps.AuthService, deps.Resolver, deps.SessionCache, deps.AuthMetrics, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	artistHandler := NewArtistHandler(deps.DirectoryService)
	bookingHandler := NewBookingHandler(deps.BookingService)
	realtimeHandler := NewRealtimeHandler(deps.Hub, deps.CORSAllowedOrigin, deps.Logger)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", newHealthHandler(deps.HealthChecker))

	// CSRFトークン取得
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// 認証ルート（メール + OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/signin", authHandler.Signin)
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.Get("/resolve", authHandler.Resolve)
	})

	// アーティストディレクトリ（公開）
	r.Get("/api/artists", artistHandler.ListArtists)
	r.Get("/api/artists/{id}", artistHandler.GetArtist)
	r.Get("/api/art-forms", artistHandler.ListArtForms)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// プロフィール管理
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetProfile)
			r.Put("/", profileHandler.UpdateProfile)
			r.Post("/role", profileHandler.SelectRole)
			r.Put("/artist", profileHandler.CompleteArtistProfile)
		})

		// 予約管理
		r.Route("/api/bookings", func(r chi.Router) {
			// POST /api/bookings - 予約作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.BookingCreationMiddleware()).Post("/", bookingHandler.CreateBooking)
			r.Get("/", bookingHandler.ListMyBookings)
			r.Patch("/{id}/status", bookingHandler.UpdateBookingStatus)
		})
		r.Get("/api/artist/bookings", bookingHandler.ListArtistBookings)

		// リアルタイム配信（WebSocket）
		r.Get("/ws", realtimeHandler.Serve)
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unhealthy"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
