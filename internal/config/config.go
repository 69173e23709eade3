package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/artspace/internal/model"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// Signup / Role Resolution
	// DefaultSignupRole はメール/パスワードサインアップ時に役割指定がない場合の
	// デフォルト役割。空の場合は役割選択画面に委ねる。
	DefaultSignupRole model.UserType
	SignupIntentTTL   time.Duration
	AuthEntryPath     string
	RoleSelectPath    string
	CompleteArtistPath string
	ArtistLandingPath string
	ClientLandingPath string

	// Notification
	NotifyFnURL   string
	NotifyTimeout time.Duration

	// Rate Limit
	RateLimitGeneral int
	RateLimitBooking int

	// Server
	ServerPort  string
	MetricsPort string
	BaseURL     string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// サインアップ時のデフォルト役割。ソース実装間で "client" と役割選択委譲が
	// 混在していたため、設定で明示する。空（委譲）がデフォルト。
	role := model.UserType(os.Getenv("SIGNUP_DEFAULT_ROLE"))
	if role != model.UserTypeUnset && !role.IsValid() {
		return nil, fmt.Errorf("invalid SIGNUP_DEFAULT_ROLE: %q", role)
	}
	cfg.DefaultSignupRole = role

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SignupIntentTTL = getEnvDuration("SIGNUP_INTENT_TTL", 10*time.Minute)
	cfg.AuthEntryPath = getEnvString("AUTH_ENTRY_PATH", "/auth")
	cfg.RoleSelectPath = getEnvString("ROLE_SELECT_PATH", "/select-role")
	cfg.CompleteArtistPath = getEnvString("COMPLETE_ARTIST_PATH", "/complete-artist-profile")
	cfg.ArtistLandingPath = getEnvString("ARTIST_LANDING_PATH", "/dashboard")
	cfg.ClientLandingPath = getEnvString("CLIENT_LANDING_PATH", "/home")
	cfg.NotifyFnURL = getEnvString("NOTIFY_FN_URL", "")
	cfg.NotifyTimeout = getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitBooking = getEnvInt("RATE_LIMIT_BOOKING", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
