// Package auth はメール/パスワード認証とセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// passwordMinLength はパスワードの最小文字数。
const passwordMinLength = 8

// maxFullNameLength は表示名の最大文字数。
const maxFullNameLength = 100

// Provisioner はサインアップ直後のプロフィール自動作成インターフェース。
// Provisionはエラーを返さない。プロビジョニング失敗でサインアップを
// 失敗させないという可用性優先の契約をシグネチャで表現している。
type Provisioner interface {
	// Provision はプロフィールと既定カテゴリを作成する。失敗は内部でログに記録される。
	Provision(ctx context.Context, identityID, email, fullName string)
	// VerifyAndRepair はプロフィールの存在を確認し、欠けていれば修復を1回試みる。
	VerifyAndRepair(ctx context.Context, identityID, email, fullName string) error
}

// Sanitizer は表示名のサニタイズインターフェース。
type Sanitizer interface {
	SanitizeText(raw string) string
}

// MetricsRecorder は認証フローのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordSignup()
	RecordLoginFailure()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	provisioner Provisioner
	sanitizer   Sanitizer
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。
// metricsはnil許容で、nilの場合は記録をスキップする。
func NewService(
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	provisioner Provisioner,
	sanitizer Sanitizer,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		provisioner: provisioner,
		sanitizer:   sanitizer,
		metrics:     metrics,
		config:      config,
	}
}

// SignupResult はサインアップの結果。
// Tokenはクライアントに一度だけ渡す平文セッショントークンで、DBには保存されない。
type SignupResult struct {
	Identity *model.Identity
	Session  *model.Session
	Token    string
}

// Signup は新規Identityを作成し、プロビジョニングを起動してセッションを発行する。
//
// プロビジョニング（プロフィール + 既定カテゴリの作成）の失敗は
// サインアップを失敗させない。作成直後に存在確認を行い、
// 欠けていれば修復を1回試みるが、それでも失敗した場合も
// サインアップは成功として返し、修復エンドポイントに委ねる。
func (s *Service) Signup(ctx context.Context, email, password, fullName string) (*SignupResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < passwordMinLength {
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上にしてください", passwordMinLength))
	}

	fullName = s.sanitizeFullName(fullName)
	if len(fullName) > maxFullNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("表示名は%d文字以内にしてください", maxFullNameLength))
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &model.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}

	if err := s.identRepo.Create(ctx, identity); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSignup()
	}
	slog.Info("new identity created",
		slog.String("user_id", identity.ID),
		slog.String("email", identity.Email),
	)

	// プロビジョニング起動。失敗してもサインアップは続行する。
	s.provisioner.Provision(ctx, identity.ID, email, fullName)

	// プロフィール存在確認と修復。トリガー相当の処理と修復は
	// どちらも主キー単位で冪等であり、競合しても安全。
	if err := s.provisioner.VerifyAndRepair(ctx, identity.ID, email, fullName); err != nil {
		slog.Error("profile verification after signup failed",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	session, token, err := s.createSession(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SignupResult{Identity: identity, Session: session, Token: token}, nil
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
// メールアドレスの存在有無を漏らさないよう、不一致の原因は区別せず同一エラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	identity, err := s.identRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		s.recordLoginFailure(email)
		return nil, "", model.NewInvalidCredentialsError()
	}

	ok, err := VerifyPassword(password, identity.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.recordLoginFailure(email)
		return nil, "", model.NewInvalidCredentialsError()
	}

	session, token, err := s.createSession(ctx, identity.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", identity.ID))
	return session, token, nil
}

// Logout は平文トークンに対応するセッションを破棄する。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("session token is required")
	}

	if err := s.sessionRepo.DeleteByTokenHash(ctx, HashSessionToken(token)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentIdentity は平文トークンから現在のIdentityを取得する。
func (s *Service) GetCurrentIdentity(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	identity, err := s.identRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		return nil, model.NewUserNotFoundError()
	}

	return identity, nil
}

// createSession は平文トークンを生成し、ハッシュのみを永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, string, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &model.Session{
		TokenHash: HashSessionToken(token),
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to save session: %w", err)
	}

	return session, token, nil
}

// sanitizeFullName は表示名をサニタイズする。sanitizer未設定の場合はトリムのみ行う。
func (s *Service) sanitizeFullName(fullName string) string {
	if s.sanitizer != nil {
		return s.sanitizer.SanitizeText(fullName)
	}
	return strings.TrimSpace(fullName)
}

// recordLoginFailure はログイン失敗をログとメトリクスに記録する。
func (s *Service) recordLoginFailure(email string) {
	if s.metrics != nil {
		s.metrics.RecordLoginFailure()
	}
	slog.Warn("login failed", slog.String("email", email))
}

// validateEmail はメールアドレスの形式を検証する。
func validateEmail(email string) error {
	if email == "" {
		return model.NewValidationError("メールアドレスが空です")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	return nil
}

// GenerateSessionToken は暗号的に安全な不透明セッショントークンを生成する。
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSessionToken は平文トークンのSHA-256ハッシュ（hex）を返す。
// DBにはこのハッシュのみを保存し、平文トークンはクライアントのCookieにだけ存在する。
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
