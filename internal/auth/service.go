package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/artspace/internal/model"
	"github.com/hitoshi/artspace/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	Provider       string
}

// OAuthProvider はOAuth 2.0プロバイダーとのやり取りを抽象化する。
type OAuthProvider interface {
	GetLoginURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// RoleApplier はサインアップインテントのロールをユーザーへ適用する。
type RoleApplier interface {
	ApplyPendingRole(ctx context.Context, userID, intentID string) (model.UserType, error)
}

// Config は認証サービスの設定。
type Config struct {
	// DefaultSignupRole はメール/パスワード登録時にロール未指定の場合に
	// 割り当てるロール。空文字の場合はロール選択画面へ委ねる。
	DefaultSignupRole model.UserType
	SignupIntentTTL   time.Duration
	SessionMaxAge     time.Duration
}

// Service は認証処理を提供する。
type Service struct {
	users     repository.UserRepository
	identity  repository.IdentityRepository
	sessions  repository.SessionRepository
	intents   repository.SignupIntentRepository
	oauth     OAuthProvider
	roles     RoleApplier
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	identity repository.IdentityRepository,
	sessions repository.SessionRepository,
	intents repository.SignupIntentRepository,
	oauth OAuthProvider,
	roles RoleApplier,
	config Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		identity: identity,
		sessions: sessions,
		intents:  intents,
		oauth:    oauth,
		roles:    roles,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// SignUp はメールアドレスとパスワードで新規ユーザーを登録し、セッションを発行する。
// roleが空の場合はDefaultSignupRoleを適用する(それも空ならロール未設定のまま)。
func (s *Service) SignUp(ctx context.Context, email, password, fullName string, role model.UserType) (*model.User, *model.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, nil, model.NewMissingFieldError("email")
	}
	if password == "" {
		return nil, nil, model.NewMissingFieldError("password")
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, nil, model.NewMissingFieldError("full_name")
	}
	if role != model.UserTypeUnset && !role.IsValid() {
		return nil, nil, model.NewInvalidRoleError(string(role))
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewDuplicateEmailError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if role == model.UserTypeUnset {
		role = s.config.DefaultSignupRole
	}

	nowTime := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		UserType:     role,
		PasswordHash: string(hash),
		CreatedAt:    nowTime,
		UpdatedAt:    nowTime,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user signed up", "user_id", user.ID, "user_type", user.UserType)

	return user, session, nil
}

// SignIn はメールアドレスとパスワードを検証し、セッションを発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		// 存在しないメールとパスワード不一致を区別しない
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user signed in", "user_id", user.ID)

	return user, session, nil
}

// BeginOAuth はGoogle OAuthフローを開始する。
// 希望ロールをサインアップインテントとして永続化し、そのIDをstateに使う。
// コールバック時にstateからインテントを引き当てることで、リダイレクトを
// またいでもロール選択が失われない。
func (s *Service) BeginOAuth(ctx context.Context, role model.UserType) (string, error) {
	if role != model.UserTypeUnset && !role.IsValid() {
		return "", model.NewInvalidRoleError(string(role))
	}

	nowTime := s.now()
	intent := &model.SignupIntent{
		ID:        uuid.NewString(),
		Role:      role,
		ExpiresAt: nowTime.Add(s.config.SignupIntentTTL),
		CreatedAt: nowTime,
	}
	if err := s.intents.Create(ctx, intent); err != nil {
		return "", fmt.Errorf("failed to create signup intent: %w", err)
	}

	return s.oauth.GetLoginURL(intent.ID), nil
}

// HandleCallback はGoogle OAuthのコールバックを処理する。
// 初回ログインならユーザーとIDプロバイダー連携を作成し、ロール未設定の
// ユーザーにはstateに紐づくインテントのロールを適用する。ロール適用の
// 書き込みに失敗した場合はセッションを発行せずエラーを返す。
func (s *Service) HandleCallback(ctx context.Context, state, code string) (*model.User, *model.Session, error) {
	if _, err := uuid.Parse(state); err != nil {
		return nil, nil, fmt.Errorf("invalid oauth state: %w", err)
	}

	info, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.findOrCreateOAuthUser(ctx, info)
	if err != nil {
		return nil, nil, err
	}

	if user.UserType == model.UserTypeUnset {
		applied, err := s.roles.ApplyPendingRole(ctx, user.ID, state)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to apply pending role: %w", err)
		}
		user.UserType = applied
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("oauth callback completed", "user_id", user.ID, "user_type", user.UserType)

	return user, session, nil
}

// findOrCreateOAuthUser はIDプロバイダー連携からユーザーを引き当て、
// 未登録なら作成する。同一メールの既存ユーザーがいる場合は連携のみ追加する。
func (s *Service) findOrCreateOAuthUser(ctx context.Context, info *OAuthUserInfo) (*model.User, error) {
	identity, err := s.identity.FindByProviderAndProviderUserID(ctx, info.Provider, info.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity != nil {
		user, err := s.users.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("identity %s points to missing user %s", identity.ID, identity.UserID)
		}
		return user, nil
	}

	email := strings.TrimSpace(strings.ToLower(info.Email))

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		newIdentity := &model.Identity{
			ID:             uuid.NewString(),
			UserID:         existing.ID,
			Provider:       info.Provider,
			ProviderUserID: info.ProviderUserID,
			CreatedAt:      s.now(),
		}
		if err := s.identity.Create(ctx, newIdentity); err != nil {
			return nil, fmt.Errorf("failed to link identity: %w", err)
		}
		return existing, nil
	}

	nowTime := s.now()
	user := &model.User{
		ID:        uuid.NewString(),
		Email:     email,
		FullName:  info.Name,
		AvatarURL: info.AvatarURL,
		CreatedAt: nowTime,
		UpdatedAt: nowTime,
	}
	newIdentity := &model.Identity{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Provider:       info.Provider,
		ProviderUserID: info.ProviderUserID,
		CreatedAt:      nowTime,
	}
	if err := s.users.CreateWithIdentity(ctx, user, newIdentity); err != nil {
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}

	s.logger.Info("oauth user created", "user_id", user.ID, "provider", info.Provider)

	return user, nil
}

// GetCurrentUser はセッションIDから現在のユーザーを取得する。
// セッションが無効な場合は(nil, nil)を返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Logout はセッションを破棄する。存在しないセッションIDでもエラーにしない。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// createSession は新しいセッションを発行して永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	nowTime := s.now()
	session := &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: nowTime.Add(s.config.SessionMaxAge),
		CreatedAt: nowTime,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// generateSessionID は暗号学的に安全なランダムセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
