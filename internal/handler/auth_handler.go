// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/roleflow"
)

const (
	sessionCookieName = "session_id"
	oauthStateCookie  = "oauth_state"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password, fullName string, role model.UserType) (*model.User, *model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	BeginOAuth(ctx context.Context, role model.UserType) (string, error)
	HandleCallback(ctx context.Context, state, code string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// RoleResolverInterface はログイン後の遷移先を解決するインターフェース。
type RoleResolverInterface interface {
	ResolveUser(ctx context.Context, userID string) (roleflow.Resolution, error)
	ReleaseGuard(userID string)
}

// SessionCacheCleaner はサインアウト時のキャッシュ破棄インターフェース。
type SessionCacheCleaner interface {
	Clear(userID string)
}

// AuthMetricsRecorder は認証イベントのメトリクス記録インターフェース。
type AuthMetricsRecorder interface {
	RecordSignup(userType string)
	RecordSigninSuccess()
	RecordSigninFailure()
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は認証関連のHTTPハンドラー。
// メール/パスワード認証とGoogle OAuthの両方を扱う。
type AuthHandler struct {
	service  AuthServiceInterface
	resolver RoleResolverInterface
	cache    SessionCacheCleaner
	recorder AuthMetricsRecorder
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service AuthServiceInterface,
	resolver RoleResolverInterface,
	cache SessionCacheCleaner,
	recorder AuthMetricsRecorder,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		service:  service,
		resolver: resolver,
		cache:    cache,
		recorder: recorder,
		config:   config,
	}
}

// signupRequest はメール/パスワード登録リクエストのボディ。
type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	UserType string `json:"user_type,omitempty"`
}

// signinRequest はサインインリクエストのボディ。
type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FullName          string `json:"full_name"`
	AvatarURL         string `json:"avatar_url,omitempty"`
	UserType          string `json:"user_type"`
	IsProfileComplete bool   `json:"is_profile_complete"`
}

// resolveResponse はロール解決結果のAPIレスポンス。
type resolveResponse struct {
	State          string `json:"state"`
	RedirectPath   string `json:"redirect_path"`
	ShouldRedirect bool   `json:"should_redirect"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Signup はメール/パスワードでの新規登録を処理する。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, session, err := h.service.SignUp(
		r.Context(), req.Email, req.Password, req.FullName, model.UserType(req.UserType),
	)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.recorder.RecordSignup(string(user.UserType))
	h.setSessionCookie(w, session.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Signin はメール/パスワードでのサインインを処理する。
// POST /auth/signin
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	user, session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recorder.RecordSigninFailure()
		handleServiceError(w, err)
		return
	}

	h.recorder.RecordSigninSuccess()
	h.setSessionCookie(w, session.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google/login?role=artist|client
// 希望ロールはサーバー側のサインアップintentとして保存され、
// そのIDがOAuth stateとしてリダイレクトをまたいで運ばれる。
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	role := model.UserType(r.URL.Query().Get("role"))

	loginURL, err := h.service.BeginOAuth(r.Context(), role)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// stateをCookieにも保存し、コールバック時に照合する（CSRF対策）
	state := extractStateParam(loginURL)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, loginURL, http.StatusTemporaryRedirect)
}

// GoogleCallback はGoogle OAuthのコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
// 認証成功後はロール解決の結果に応じたパスへリダイレクトする。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. 認可コードの取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 3. 認証処理
	user, session, err := h.service.HandleCallback(r.Context(), state, code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// 4. セッションCookieを設定（HTTP Only）
	h.setSessionCookie(w, session.ID)

	// 5. ロール解決の結果に応じたパスへリダイレクト
	redirectPath := "/"
	if res, err := h.resolver.ResolveUser(r.Context(), user.ID); err != nil {
		slog.Error("role resolution failed after oauth", slog.String("error", err.Error()))
	} else {
		redirectPath = res.RedirectPath
	}

	http.Redirect(w, r, h.config.BaseURL+redirectPath, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// セッションCookieの取得
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		user, userErr := h.service.GetCurrentUser(r.Context(), cookie.Value)

		// セッションをDBから削除
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}

		// スナップショットキャッシュとリダイレクトガードを解除
		if userErr == nil && user != nil {
			h.cache.Clear(user.ID)
			h.resolver.ReleaseGuard(user.ID)
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Resolve は現在のユーザー状態から遷移先を解決して返す。
// GET /auth/resolve
// 未ログインの場合も200で未認証状態の解決結果を返す。
func (h *AuthHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
		if err != nil {
			slog.Error("failed to get current user", slog.String("error", err.Error()))
		} else if user != nil {
			userID = user.ID
		}
	}

	res, err := h.resolver.ResolveUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resolveResponse{
		State:          res.State.String(),
		RedirectPath:   res.RedirectPath,
		ShouldRedirect: res.ShouldRedirect,
	})
}

// currentUser はセッションCookieから現在のユーザーを取得する。
// 未認証の場合は401を書き込んでnilを返す。
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) *model.User {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		writeUnauthorized(w)
		return nil
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		writeUnauthorized(w)
		return nil
	}
	if user == nil {
		writeUnauthorized(w)
		return nil
	}
	return user
}

// setSessionCookie はセッションCookieを設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// extractStateParam はOAuth URLからstateクエリパラメータを取り出す。
func extractStateParam(loginURL string) string {
	parsed, err := url.Parse(loginURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("state")
}

// --- ヘルパー関数 ---

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:                user.ID,
		Email:             user.Email,
		FullName:          user.FullName,
		AvatarURL:         user.AvatarURL,
		UserType:          string(user.UserType),
		IsProfileComplete: user.IsProfileComplete,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は401の統一エラーレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequestBody はリクエストボディ解析失敗の統一エラーレスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeMissingField, model.ErrCodeInvalidRole, model.ErrCodeInvalidImageURL:
		return http.StatusBadRequest
	case model.ErrCodeUserNotFound, model.ErrCodeArtistNotFound, model.ErrCodeBookingNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeIntentExpired:
		return http.StatusGone
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
