// Package profile はプロフィールの参照・更新・修復のドメインロジックを提供する。
package profile

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hitoshi/taskman/internal/authz"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// maxFullNameLength は表示名の最大文字数。
const maxFullNameLength = 100

// maxAvatarURLLength はアバターURLの最大文字数。
const maxAvatarURLLength = 2048

// ProfileEnsurer は冪等な修復プロシージャのインターフェース。
// provision.Serviceが実装する。
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, principal authz.Principal, identityID, email, fullName string) error
}

// Sanitizer は入力テキストのサニタイズインターフェース。
type Sanitizer interface {
	SanitizeText(raw string) string
}

// UpdateParams はプロフィール更新の入力。nilフィールドは変更しない。
type UpdateParams struct {
	FullName    *string
	AvatarURL   *string
	Preferences map[string]any
}

// Service はプロフィール管理のサービス層。
type Service struct {
	profileRepo repository.ProfileRepository
	ensurer     ProfileEnsurer
	sanitizer   Sanitizer
	policies    *authz.PolicySet
}

// NewService はServiceを生成する。
func NewService(
	profileRepo repository.ProfileRepository,
	ensurer ProfileEnsurer,
	sanitizer Sanitizer,
	policies *authz.PolicySet,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		ensurer:     ensurer,
		sanitizer:   sanitizer,
		policies:    policies,
	}
}

// Get は本人のプロフィールを取得する。
// 存在しない場合はPROFILE_NOT_FOUNDエラーを返す（修復エンドポイントへの誘導付き）。
func (s *Service) Get(ctx context.Context, userID string) (*model.Profile, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableProfiles, authz.OpSelect, authz.Row{OwnerID: userID}); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	return profile, nil
}

// Update は本人のプロフィールを更新する。
// 表示名はサニタイズ後に文字数検証し、アバターURLはhttp(s)のみ許可する。
func (s *Service) Update(ctx context.Context, userID string, params UpdateParams) (*model.Profile, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableProfiles, authz.OpUpdate, authz.Row{OwnerID: userID}); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}

	if params.FullName != nil {
		fullName := s.sanitizer.SanitizeText(*params.FullName)
		if len(fullName) > maxFullNameLength {
			return nil, model.NewValidationError(fmt.Sprintf("表示名は%d文字以内にしてください", maxFullNameLength))
		}
		profile.FullName = fullName
	}

	if params.AvatarURL != nil {
		avatarURL := strings.TrimSpace(*params.AvatarURL)
		if err := validateAvatarURL(avatarURL); err != nil {
			return nil, err
		}
		profile.AvatarURL = avatarURL
	}

	if params.Preferences != nil {
		profile.Preferences = params.Preferences
	}

	updated, err := s.profileRepo.Update(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}
	if !updated {
		return nil, model.NewProfileNotFoundError()
	}

	return profile, nil
}

// Repair は本人のプロフィールを冪等に修復する。
// 既に存在する場合も成功として扱う（fire-and-forget）。
// メールアドレスと表示名は呼び出し元の申告値をそのまま使用し、空文字を許容する。
func (s *Service) Repair(ctx context.Context, userID, email, fullName string) error {
	fullName = s.sanitizer.SanitizeText(fullName)
	if len(fullName) > maxFullNameLength {
		return model.NewValidationError(fmt.Sprintf("表示名は%d文字以内にしてください", maxFullNameLength))
	}

	return s.ensurer.EnsureProfile(ctx, authz.Authenticated(userID), userID, strings.ToLower(strings.TrimSpace(email)), fullName)
}

// validateAvatarURL はアバターURLを検証する。空文字は「未設定」として許容する。
func validateAvatarURL(avatarURL string) error {
	if avatarURL == "" {
		return nil
	}
	if len(avatarURL) > maxAvatarURLLength {
		return model.NewValidationError(fmt.Sprintf("アバターURLは%d文字以内にしてください", maxAvatarURLLength))
	}
	u, err := url.Parse(avatarURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.NewValidationError("アバターURLはhttpまたはhttpsのURLを指定してください")
	}
	return nil
}
